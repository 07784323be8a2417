// internal/signer/signer.go
package signer

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrSigningUnsupported = errors.New("signing agent supports neither combined send nor raw signing")

// Identity is the minimum a connected agent exposes: its public key.
type Identity interface {
	PublicKey() solana.PublicKey
}

// CombinedSigner signs with its own key, adds the extra co-signers and broadcasts.
type CombinedSigner interface {
	Identity
	SignAndSend(ctx context.Context, tx *solana.Transaction, extra []solana.PrivateKey, opts rpc.TransactionOpts) (solana.Signature, error)
}

// RawSigner only adds its own signature; broadcasting is up to the caller.
type RawSigner interface {
	Identity
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// Connected reports whether id is a usable agent: not nil, not a nil
// pointer behind the interface and with a non-zero public key.
func Connected(id Identity) bool {
	if id == nil {
		return false
	}
	if v := reflect.ValueOf(id); v.Kind() == reflect.Ptr && v.IsNil() {
		return false
	}
	return !id.PublicKey().IsZero()
}

type Kind int

const (
	KindCombined Kind = iota + 1
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindCombined:
		return "combined"
	case KindRaw:
		return "raw"
	}
	return "unknown"
}

// Agent is a signing agent after its capabilities were probed. Exactly one of
// Combined and Raw is set, according to Kind.
type Agent struct {
	Kind     Kind
	Combined CombinedSigner
	Raw      RawSigner
}

func (a Agent) PublicKey() solana.PublicKey {
	if a.Kind == KindCombined {
		return a.Combined.PublicKey()
	}
	return a.Raw.PublicKey()
}

// Probe определяет возможности агента один раз. Combined имеет приоритет.
func Probe(v Identity) (Agent, error) {
	switch s := v.(type) {
	case CombinedSigner:
		return Agent{Kind: KindCombined, Combined: s}, nil
	case RawSigner:
		return Agent{Kind: KindRaw, Raw: s}, nil
	}
	return Agent{}, ErrSigningUnsupported
}

// PartialSign подписывает сообщение переданными ключами, не трогая остальные
// подписи. Ключ, который не входит в число подписантов, ошибка.
func PartialSign(tx *solana.Transaction, keys ...solana.PrivateKey) error {
	signers := tx.Message.AccountKeys[:tx.Message.Header.NumRequiredSignatures]
	if len(tx.Signatures) != len(signers) {
		sigs := make([]solana.Signature, len(signers))
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	for _, key := range keys {
		pub := key.PublicKey()
		idx := -1
		for i, s := range signers {
			if s.Equals(pub) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("key %s is not a required signer", pub)
		}
		sig, err := key.Sign(msg)
		if err != nil {
			return fmt.Errorf("failed to sign with %s: %w", pub, err)
		}
		tx.Signatures[idx] = sig
	}
	return nil
}

// ResetSignatures сбрасывает подписи перед сменой blockhash.
func ResetSignatures(tx *solana.Transaction) {
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
}

// Missing возвращает подписантов без подписи.
func Missing(tx *solana.Transaction) []solana.PublicKey {
	var out []solana.PublicKey
	signers := tx.Message.AccountKeys[:tx.Message.Header.NumRequiredSignatures]
	for i, s := range signers {
		if i >= len(tx.Signatures) || tx.Signatures[i] == (solana.Signature{}) {
			out = append(out, s)
		}
	}
	return out
}
