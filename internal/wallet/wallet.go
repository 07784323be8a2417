// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launcher/internal/signer"
)

// Wallet представляет локальный кошелёк Solana. Умеет только подписывать.
type Wallet struct {
	key solana.PrivateKey
	pub solana.PublicKey
}

var _ signer.RawSigner = (*Wallet)(nil)

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return fromBytes(privateKeyBytes)
}

func fromBytes(b []byte) (*Wallet, error) {
	if len(b) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(b))
	}
	key := solana.PrivateKey(b)
	return &Wallet{key: key, pub: key.PublicKey()}, nil
}

// SaveKeypairFile пишет ключ в формате solana-keygen с правами 0600.
// Существующий файл не перезаписывается.
func SaveKeypairFile(path string, key solana.PrivateKey) error {
	if len(key) != 64 {
		return fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(key))
	}
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("failed to encode keypair: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create keypair file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write keypair file: %w", err)
	}
	return f.Close()
}

// LoadKeypairFile читает keypair в формате solana-keygen (JSON-массив из 64 байт).
func LoadKeypairFile(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("failed to parse keypair file: %w", err)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("invalid byte %d at position %d", v, i)
		}
		raw[i] = byte(v)
	}
	return fromBytes(raw)
}

// LoadWallets загружает кошельки из CSV-файла с колонками: [Name, PrivateKeyBase58].
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		w, err := NewWallet(record[1])
		if err != nil {
			continue
		}
		wallets[record[0]] = w
	}
	return wallets, nil
}

func (w *Wallet) PublicKey() solana.PublicKey {
	if w == nil {
		return solana.PublicKey{}
	}
	return w.pub
}

// SignTransaction добавляет подпись кошелька, не затирая уже имеющиеся.
func (w *Wallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	return signer.PartialSign(tx, w.key)
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.pub.String()
}

// Broadcaster отправляет подписанную транзакцию.
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// Sender: кошелёк, который сам подписывает и отправляет транзакцию.
type Sender struct {
	*Wallet
	net    Broadcaster
	logger *zap.Logger
}

var _ signer.CombinedSigner = (*Sender)(nil)

func (s *Sender) PublicKey() solana.PublicKey {
	if s == nil {
		return solana.PublicKey{}
	}
	return s.Wallet.PublicKey()
}

func NewSender(w *Wallet, net Broadcaster, logger *zap.Logger) *Sender {
	return &Sender{Wallet: w, net: net, logger: logger.Named("wallet-sender")}
}

// SignAndSend подписывает дополнительными ключами и ключом кошелька, затем отправляет.
func (s *Sender) SignAndSend(ctx context.Context, tx *solana.Transaction, extra []solana.PrivateKey, opts rpc.TransactionOpts) (solana.Signature, error) {
	keys := make([]solana.PrivateKey, 0, len(extra)+1)
	keys = append(keys, extra...)
	keys = append(keys, s.key)
	if err := signer.PartialSign(tx, keys...); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	s.logger.Debug("Sending transaction",
		zap.String("payer", s.pub.String()),
		zap.Int("signers", len(keys)))
	return s.net.SendTransaction(ctx, tx, opts)
}
