// internal/explorer/explorer.go
package explorer

import (
	"net/url"
)

const baseURL = "https://explorer.solana.com"

// clusterParam пустой для mainnet, иначе ?cluster=<name>
func clusterParam(cluster string) string {
	switch cluster {
	case "", "mainnet-beta", "mainnet":
		return ""
	}
	return "?cluster=" + url.QueryEscape(cluster)
}

// AddressURL ссылка на аккаунт (mint, ATA, кошелёк).
func AddressURL(cluster, address string) string {
	return baseURL + "/address/" + address + clusterParam(cluster)
}

// TxURL ссылка на транзакцию по подписи.
func TxURL(cluster, signature string) string {
	return baseURL + "/tx/" + signature + clusterParam(cluster)
}
