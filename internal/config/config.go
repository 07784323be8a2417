// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/token-launcher/internal/fee"
)

// Config содержит настройки процесса. Загружается один раз при старте и
// передаётся по ссылке в калькулятор комиссий, билдер и энкодер метаданных.
type Config struct {
	Cluster      string        `mapstructure:"cluster"`
	RPCList      []string      `mapstructure:"rpc_list"`
	Commitment   string        `mapstructure:"commitment"`
	FeeRecipient string        `mapstructure:"fee_recipient"`
	Fees         FeesConfig    `mapstructure:"fees"`
	Storage      StorageConfig `mapstructure:"storage"`
	Vanity       VanityConfig  `mapstructure:"vanity"`
	Send         SendConfig    `mapstructure:"send"`
	Confirm      ConfirmConfig `mapstructure:"confirm"`
	DebugLogging bool          `mapstructure:"debug_logging"`
	LogFile      string        `mapstructure:"log_file"`
	PostgresURL  string        `mapstructure:"postgres_url"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
}

// FeesConfig задаёт сервисные комиссии в лампортах.
type FeesConfig struct {
	Base          uint64 `mapstructure:"base"`
	ServiceFee    uint64 `mapstructure:"service_fee"` // legacy, используется если base не задан
	RevokeMint    uint64 `mapstructure:"revoke_mint"`
	RevokeFreeze  uint64 `mapstructure:"revoke_freeze"`
	CustomCreator uint64 `mapstructure:"custom_creator"`
	Vanity        uint64 `mapstructure:"vanity"`
	// BaseSet: base задан явно (в файле или окружении), даже если он 0.
	BaseSet bool `mapstructure:"-"`
}

// StorageConfig описывает off-chain хранилище метаданных.
type StorageConfig struct {
	NFTStorageToken    string `mapstructure:"nft_storage_token"`
	NFTStorageEndpoint string `mapstructure:"nft_storage_endpoint"`
	GatewayURL         string `mapstructure:"gateway_url"`
	GCSBucket          string `mapstructure:"gcs_bucket"`
	GCSPublicBaseURL   string `mapstructure:"gcs_public_base_url"`
}

type VanityConfig struct {
	YieldEvery int `mapstructure:"yield_every"`
}

type SendConfig struct {
	MaxRetries    uint `mapstructure:"max_retries"`
	SkipPreflight bool `mapstructure:"skip_preflight"`
}

type ConfirmConfig struct {
	PollInterval   time.Duration `mapstructure:"-"`
	PollIntervalMS int           `mapstructure:"poll_interval_ms"`
	Timeout        time.Duration `mapstructure:"-"`
	TimeoutMS      int           `mapstructure:"timeout_ms"`
}

const (
	DefaultCluster            = "devnet"
	DefaultCommitment         = "confirmed"
	DefaultGatewayURL         = "https://nftstorage.link/ipfs/"
	DefaultNFTStorageEndpoint = "https://api.nft.storage/upload"
	DefaultGCSPublicBaseURL   = "https://storage.googleapis.com"
	DefaultYieldEvery         = 200
	DefaultSendMaxRetries     = 3
	DefaultPollIntervalMS     = 500
	DefaultConfirmTimeoutMS   = 90_000
	DefaultLogFile            = "launcher.log"
	envPrefix                 = "TOKEN_LAUNCHER"
)

var clusterEndpoints = map[string]string{
	"devnet":       "https://api.devnet.solana.com",
	"testnet":      "https://api.testnet.solana.com",
	"mainnet-beta": "https://api.mainnet-beta.solana.com",
}

// LoadConfig читает конфигурацию из файла (если путь задан) и переменных
// окружения с префиксом TOKEN_LAUNCHER_, затем валидирует её.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"cluster":                      DefaultCluster,
		"commitment":                   DefaultCommitment,
		"storage.gateway_url":          DefaultGatewayURL,
		"storage.nft_storage_endpoint": DefaultNFTStorageEndpoint,
		"storage.gcs_public_base_url":  DefaultGCSPublicBaseURL,
		"vanity.yield_every":           DefaultYieldEvery,
		"send.max_retries":             DefaultSendMaxRetries,
		"confirm.poll_interval_ms":     DefaultPollIntervalMS,
		"confirm.timeout_ms":           DefaultConfirmTimeoutMS,
		"log_file":                     DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Ключи без значения по умолчанию нужно объявить, иначе AutomaticEnv
	// не подхватит их при Unmarshal.
	for _, key := range []string{"fee_recipient", "storage.nft_storage_token", "storage.gcs_bucket", "postgres_url", "metrics_addr"} {
		v.SetDefault(key, "")
	}
	// fees.base без значения по умолчанию: IsSet различает "не задан" и 0.
	if err := v.BindEnv("fees.base"); err != nil {
		return nil, fmt.Errorf("bind env error: %w", err)
	}
	for _, key := range []string{"fees.service_fee", "fees.revoke_mint", "fees.revoke_freeze", "fees.custom_creator", "fees.vanity"} {
		v.SetDefault(key, uint64(0))
	}
	v.SetDefault("send.skip_preflight", false)
	v.SetDefault("debug_logging", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	cfg.Fees.BaseSet = v.IsSet("fees.base")

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	cfg.Confirm.PollInterval = time.Duration(cfg.Confirm.PollIntervalMS) * time.Millisecond
	cfg.Confirm.Timeout = time.Duration(cfg.Confirm.TimeoutMS) * time.Millisecond
	cfg.applyRPCFallback()

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FeeSchedule возвращает таблицу комиссий для калькулятора.
func (c *Config) FeeSchedule() fee.Schedule {
	base := c.Fees.Base
	if base == 0 && !c.Fees.BaseSet {
		base = c.Fees.ServiceFee
	}
	return fee.Schedule{
		Base:          base,
		RevokeMint:    c.Fees.RevokeMint,
		RevokeFreeze:  c.Fees.RevokeFreeze,
		CustomCreator: c.Fees.CustomCreator,
		Vanity:        c.Fees.Vanity,
	}
}

// applyRPCFallback подставляет публичный endpoint кластера, если rpc_list пуст.
func (c *Config) applyRPCFallback() {
	if len(c.RPCList) > 0 {
		return
	}
	if endpoint, ok := clusterEndpoints[c.Cluster]; ok {
		c.RPCList = []string{endpoint}
	}
}

func validateConfig(cfg *Config) error {
	if _, ok := clusterEndpoints[cfg.Cluster]; !ok {
		return fmt.Errorf("unknown cluster %q", cfg.Cluster)
	}
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	if cfg.Vanity.YieldEvery <= 0 {
		return errors.New("invalid vanity.yield_every")
	}
	if cfg.Confirm.PollIntervalMS <= 0 {
		return errors.New("invalid confirm.poll_interval_ms")
	}
	if cfg.Confirm.TimeoutMS <= 0 {
		return errors.New("invalid confirm.timeout_ms")
	}
	if cfg.Storage.GatewayURL != "" {
		if err := validateURLWithCache(cfg.Storage.GatewayURL, "http"); err != nil {
			return errors.New("invalid storage.gateway_url")
		}
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList == "" {
		return nil
	}
	// rpc_list в окружении приходит строкой через запятую
	var cleanRPCs []string
	for _, rpc := range strings.Split(envRPCList, ",") {
		clean := strings.TrimSpace(rpc)
		if clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
	return nil
}
