// internal/submit/submit.go
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launcher/internal/blockchain/solbc"
	logs "github.com/rovshanmuradov/token-launcher/internal/logger"
	"github.com/rovshanmuradov/token-launcher/internal/signer"
)

// DefaultMaxRetries: сколько раз узел сам переотправляет транзакцию.
const DefaultMaxRetries uint = 3

// ErrSubmissionConflict is returned when the single retry after an
// already-processed rejection hits the same condition.
var ErrSubmissionConflict = errors.New("submission conflict: transaction already processed")

// Network is the part of the chain connection the pipeline needs.
type Network interface {
	GetLatestBlockhash(ctx context.Context) (solbc.Recency, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error
}

var _ Network = (*solbc.Client)(nil)

// Receipt describes a confirmed submission.
type Receipt struct {
	Signature  solana.Signature
	Recency    solbc.Recency
	Attempts   int
	SignerKind signer.Kind
	Elapsed    time.Duration
}

type Pipeline struct {
	network Network
	opts    rpc.TransactionOpts
	logger  *zap.Logger
}

type Option func(*Pipeline)

// WithSendOptions переопределяет maxRetries и skipPreflight. Preflight всегда на confirmed.
func WithSendOptions(maxRetries uint, skipPreflight bool) Option {
	return func(p *Pipeline) {
		p.opts.MaxRetries = &maxRetries
		p.opts.SkipPreflight = skipPreflight
	}
}

func NewPipeline(network Network, logger *zap.Logger, opts ...Option) *Pipeline {
	maxRetries := DefaultMaxRetries
	p := &Pipeline{
		network: network,
		opts: rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
			MaxRetries:          &maxRetries,
		},
		logger: logger.Named("submit"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit signs tx with mintKey and the agent, broadcasts it and waits for
// confirmation. The blockhash is replaced right before signing. An
// already-processed rejection is retried once with a fresh blockhash.
func (p *Pipeline) Submit(ctx context.Context, tx *solana.Transaction, mintKey solana.PrivateKey, identity signer.Identity) (*Receipt, error) {
	agent, err := signer.Probe(identity)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := p.logger.With(
		zap.String("signer", agent.Kind.String()),
		zap.String("payer", agent.PublicKey().String()),
		zap.String("mint", mintKey.PublicKey().String()))

	receipt := &Receipt{SignerKind: agent.Kind, Attempts: 1}
	sig, rec, err := p.attempt(ctx, tx, mintKey, agent)
	if solbc.IsAlreadyProcessed(err) {
		logger.Warn("Transaction already processed, retrying with fresh blockhash", zap.Error(err))
		receipt.Attempts++
		sig, rec, err = p.attempt(ctx, tx, mintKey, agent)
		if solbc.IsAlreadyProcessed(err) {
			return nil, fmt.Errorf("%w: %v", ErrSubmissionConflict, err)
		}
	}
	if err != nil {
		return nil, err
	}

	logger = logs.WithTransaction(logger, sig.String())
	logger.Info("Transaction sent",
		zap.Int("attempts", receipt.Attempts),
		zap.Uint64("last_valid_block_height", rec.LastValidBlockHeight))

	if err := p.network.WaitForConfirmation(ctx, sig, rec.LastValidBlockHeight); err != nil {
		return nil, fmt.Errorf("failed to confirm transaction %s: %w", sig, err)
	}

	receipt.Signature = sig
	receipt.Recency = rec
	receipt.Elapsed = time.Since(start)
	logger.Info("Transaction confirmed",
		zap.Duration("elapsed", receipt.Elapsed))
	return receipt, nil
}

func (p *Pipeline) attempt(ctx context.Context, tx *solana.Transaction, mintKey solana.PrivateKey, agent signer.Agent) (solana.Signature, solbc.Recency, error) {
	rec, err := p.network.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, solbc.Recency{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	tx.Message.RecentBlockhash = rec.Blockhash
	signer.ResetSignatures(tx)

	var sig solana.Signature
	switch agent.Kind {
	case signer.KindCombined:
		sig, err = agent.Combined.SignAndSend(ctx, tx, []solana.PrivateKey{mintKey}, p.opts)
	case signer.KindRaw:
		sig, err = p.signAndSendRaw(ctx, tx, mintKey, agent.Raw)
	default:
		err = signer.ErrSigningUnsupported
	}
	return sig, rec, err
}

func (p *Pipeline) signAndSendRaw(ctx context.Context, tx *solana.Transaction, mintKey solana.PrivateKey, raw signer.RawSigner) (solana.Signature, error) {
	if err := signer.PartialSign(tx, mintKey); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign with mint key: %w", err)
	}
	if err := raw.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if missing := signer.Missing(tx); len(missing) > 0 {
		return solana.Signature{}, fmt.Errorf("transaction is missing %d signature(s), first %s", len(missing), missing[0])
	}
	return p.network.SendTransaction(ctx, tx, p.opts)
}
