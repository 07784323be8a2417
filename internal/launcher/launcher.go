// internal/launcher/launcher.go
package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/token-launcher/internal/config"
	"github.com/rovshanmuradov/token-launcher/internal/events"
	"github.com/rovshanmuradov/token-launcher/internal/explorer"
	"github.com/rovshanmuradov/token-launcher/internal/fee"
	logs "github.com/rovshanmuradov/token-launcher/internal/logger"
	"github.com/rovshanmuradov/token-launcher/internal/metadata"
	"github.com/rovshanmuradov/token-launcher/internal/metrics"
	"github.com/rovshanmuradov/token-launcher/internal/signer"
	"github.com/rovshanmuradov/token-launcher/internal/storage"
	"github.com/rovshanmuradov/token-launcher/internal/storage/models"
	"github.com/rovshanmuradov/token-launcher/internal/submit"
	"github.com/rovshanmuradov/token-launcher/internal/token"
	"github.com/rovshanmuradov/token-launcher/internal/vanity"
)

// ErrWalletNotConnected возвращается до начала сборки, если кошелька нет.
var ErrWalletNotConnected = errors.New("wallet not connected")

// Submitter отправляет собранную транзакцию и ждёт подтверждения.
type Submitter interface {
	Submit(ctx context.Context, tx *solana.Transaction, mintKey solana.PrivateKey, identity signer.Identity) (*submit.Receipt, error)
}

var _ Submitter = (*submit.Pipeline)(nil)

// Deps собирает зависимости сервиса. Store, Bus и Metrics необязательны.
type Deps struct {
	Config   *config.Config
	Builder  *token.Builder
	Encoder  *metadata.Encoder
	Searcher *vanity.Searcher
	Pipeline Submitter
	Rent     token.RentSource
	Store    storage.Storage
	Bus      *events.Bus
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// Result describes a confirmed token launch.
type Result struct {
	LaunchID        string
	Payer           solana.PublicKey
	Mint            solana.PublicKey
	ATA             solana.PublicKey
	MetadataAddress solana.PublicKey
	Signature       solana.Signature
	MetadataURI     string
	MetadataSource  metadata.Source
	Fee             fee.Breakdown
	FeeLamports     uint64
	Amount          uint64
	Name            string
	Symbol          string
	NameTruncated   bool
	SymbolTruncated bool
	AmountTruncated bool
	VanityMatched   bool
	VanityIters     int
	Attempts        int
	Elapsed         time.Duration

	MintURL string
	ATAURL  string
	TxURL   string
}

// Service runs one token launch end to end.
type Service struct {
	cfg      *config.Config
	builder  *token.Builder
	encoder  *metadata.Encoder
	searcher *vanity.Searcher
	pipeline Submitter
	rent     token.RentSource
	store    storage.Storage
	bus      *events.Bus
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func NewService(d Deps) (*Service, error) {
	switch {
	case d.Config == nil:
		return nil, errors.New("config is required")
	case d.Builder == nil:
		return nil, errors.New("builder is required")
	case d.Encoder == nil:
		return nil, errors.New("metadata encoder is required")
	case d.Searcher == nil:
		return nil, errors.New("vanity searcher is required")
	case d.Pipeline == nil:
		return nil, errors.New("submission pipeline is required")
	case d.Rent == nil:
		return nil, errors.New("rent source is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      d.Config,
		builder:  d.Builder,
		encoder:  d.Encoder,
		searcher: d.Searcher,
		pipeline: d.Pipeline,
		rent:     d.Rent,
		store:    d.Store,
		bus:      d.Bus,
		metrics:  d.Metrics,
		logger:   logger.Named("launcher"),
	}, nil
}

// Estimate возвращает комиссию, которая будет списана при Create.
func (s *Service) Estimate(req token.Request) fee.Breakdown {
	return s.builder.Estimate(req)
}

// prepared is what the concurrent preparation stage produces.
type prepared struct {
	key  *vanity.Result
	meta metadata.Result
	rent uint64
}

// Create validates req, prepares the mint key, metadata URI and rent
// concurrently, builds the transaction, submits it and waits for confirmation.
func (s *Service) Create(ctx context.Context, req token.Request, identity signer.Identity) (*Result, error) {
	if !signer.Connected(identity) {
		return nil, ErrWalletNotConnected
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	launchID := uuid.New().String()
	payer := identity.PublicKey()
	breakdown := s.builder.Estimate(req)
	logger := logs.WithLaunch(s.logger, launchID, payer.String()).With(zap.String("symbol", req.Symbol))

	logger.Info("Launch started",
		zap.String("name", req.Name),
		zap.Uint64("fee_lamports", breakdown.Total()))
	s.publish(events.NewLaunchStarted(launchID, payer.String(), req.Name, req.Symbol, breakdown.Total()))

	prep, err := s.prepare(ctx, launchID, req, payer)
	if err != nil {
		s.fail(logger, launchID, events.StageMintKey, err, start)
		return nil, err
	}
	mintKey := prep.key.Key
	defer zeroKey(mintKey)
	mint := mintKey.PublicKey()
	logger = logger.With(zap.String("mint", mint.String()))

	plan, err := s.builder.WithRent(prep.rent).Build(ctx, req, payer, mint, prep.meta.URI)
	if err != nil {
		s.fail(logger, launchID, events.StageBuild, err, start)
		return nil, err
	}
	tx, err := plan.Transaction(solana.Hash{})
	if err != nil {
		s.fail(logger, launchID, events.StageBuild, err, start)
		return nil, err
	}
	s.publish(events.NewLaunchStage(launchID, events.StageBuild, map[string]string{
		"instructions": fmt.Sprint(len(plan.Instructions)),
		"ata":          plan.ATA.String(),
	}))

	receipt, err := s.pipeline.Submit(ctx, tx, mintKey, identity)
	if err != nil {
		if s.metrics != nil {
			if agent, perr := signer.Probe(identity); perr == nil {
				s.metrics.RecordSubmit(agent.Kind.String(), 1, false)
			}
		}
		s.saveFailed(ctx, logger, launchID, req, plan, prep, err)
		s.fail(logger, launchID, events.StageSubmit, err, start)
		return nil, err
	}

	res := &Result{
		LaunchID:        launchID,
		Payer:           payer,
		Mint:            mint,
		ATA:             plan.ATA,
		MetadataAddress: plan.MetadataPDA,
		Signature:       receipt.Signature,
		MetadataURI:     prep.meta.URI,
		MetadataSource:  prep.meta.Source,
		Fee:             plan.Fee,
		FeeLamports:     plan.FeeLamports,
		Amount:          plan.Amount,
		Name:            plan.Name,
		Symbol:          plan.Symbol,
		NameTruncated:   plan.NameTruncated,
		SymbolTruncated: plan.SymbolTruncated,
		AmountTruncated: plan.AmountTruncated,
		VanityMatched:   prep.key.Matched,
		VanityIters:     prep.key.Iterations,
		Attempts:        receipt.Attempts,
		Elapsed:         time.Since(start),
		MintURL:         explorer.AddressURL(s.cfg.Cluster, mint.String()),
		ATAURL:          explorer.AddressURL(s.cfg.Cluster, plan.ATA.String()),
		TxURL:           explorer.TxURL(s.cfg.Cluster, receipt.Signature.String()),
	}

	s.publish(events.NewLaunchStage(launchID, events.StageConfirm, map[string]string{
		"signature": receipt.Signature.String(),
		"attempts":  fmt.Sprint(receipt.Attempts),
	}))
	s.publish(events.NewLaunchCompleted(launchID, mint.String(), plan.ATA.String(), receipt.Signature.String()))
	if s.metrics != nil {
		s.metrics.RecordSubmit(receipt.SignerKind.String(), receipt.Attempts, true)
		s.metrics.AddFee(plan.FeeLamports)
		s.metrics.RecordLaunch(true, res.Elapsed)
	}
	s.saveConfirmed(ctx, logger, req, res)

	logger.Info("Launch confirmed",
		zap.String("signature", res.Signature.String()),
		zap.String("metadata_source", string(res.MetadataSource)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// prepare runs the vanity search, the metadata encoding and the rent lookup
// in parallel. Only the search and the rent lookup can fail.
func (s *Service) prepare(ctx context.Context, launchID string, req token.Request, payer solana.PublicKey) (*prepared, error) {
	var prep prepared
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := s.searcher.Search(gctx, req.Vanity)
		if err != nil {
			return fmt.Errorf("failed to generate mint key: %w", err)
		}
		prep.key = res
		if s.metrics != nil && req.Vanity.Enabled() {
			s.metrics.RecordVanity(res.Iterations, res.Matched)
		}
		s.publish(events.NewLaunchStage(launchID, events.StageMintKey, map[string]string{
			"mint":       res.Key.PublicKey().String(),
			"matched":    fmt.Sprint(res.Matched),
			"iterations": fmt.Sprint(res.Iterations),
		}))
		return nil
	})

	g.Go(func() error {
		creator := s.builder.ResolveCreator(req, payer)
		prep.meta = s.encoder.Build(gctx, metadata.Input{
			Name:        req.Name,
			Symbol:      req.Symbol,
			Description: req.Description,
			Image:       req.LogoURL,
			Tags:        req.Tags,
			Creators:    []metadata.Creator{{Address: creator.String(), Share: 100}},
		})
		if s.metrics != nil {
			s.metrics.RecordMetadata(string(prep.meta.Source))
		}
		s.publish(events.NewLaunchStage(launchID, events.StageMetadata, map[string]string{
			"source": string(prep.meta.Source),
		}))
		return nil
	})

	g.Go(func() error {
		rent, err := s.rent.GetMinimumBalanceForRentExemption(gctx, token.MintSize)
		if err != nil {
			return fmt.Errorf("failed to get mint rent: %w", err)
		}
		prep.rent = rent
		return nil
	})

	if err := g.Wait(); err != nil {
		if prep.key != nil {
			zeroKey(prep.key.Key)
		}
		return nil, err
	}
	return &prep, nil
}

func (s *Service) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(e); err != nil {
		s.logger.Debug("Event not published", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}

func (s *Service) fail(logger *zap.Logger, launchID string, stage events.Stage, err error, start time.Time) {
	logger.Error("Launch failed", zap.String("stage", string(stage)), zap.Error(err))
	s.publish(events.NewLaunchFailed(launchID, stage, err))
	if s.metrics != nil {
		s.metrics.RecordLaunch(false, time.Since(start))
	}
}

func (s *Service) saveConfirmed(ctx context.Context, logger *zap.Logger, req token.Request, res *Result) {
	if s.store == nil {
		return
	}
	now := time.Now().UTC()
	launch := &models.Launch{
		LaunchID:         res.LaunchID,
		Cluster:          s.cfg.Cluster,
		Payer:            res.Payer.String(),
		Mint:             res.Mint.String(),
		ATA:              res.ATA.String(),
		MetadataAddress:  res.MetadataAddress.String(),
		Signature:        res.Signature.String(),
		Name:             res.Name,
		Symbol:           res.Symbol,
		Decimals:         req.Decimals,
		Supply:           req.Supply,
		Amount:           fmt.Sprint(res.Amount),
		MetadataURI:      res.MetadataURI,
		MetadataSource:   string(res.MetadataSource),
		FeeLamports:      res.FeeLamports,
		RevokeMint:       req.RevokeMintAuthority,
		RevokeFreeze:     req.RevokeFreezeAuthority,
		Immutable:        req.Immutable,
		VanityMatched:    res.VanityMatched,
		VanityIterations: res.VanityIters,
		Attempts:         res.Attempts,
		Status:           models.LaunchConfirmed,
		ConfirmedAt:      &now,
	}
	if err := s.store.SaveLaunch(context.WithoutCancel(ctx), launch); err != nil {
		// транзакция уже подтверждена, ошибку истории не пробрасываем
		logger.Warn("Failed to save launch history", zap.Error(err))
	}
}

func (s *Service) saveFailed(ctx context.Context, logger *zap.Logger, launchID string, req token.Request, plan *token.Plan, prep *prepared, cause error) {
	if s.store == nil {
		return
	}
	launch := &models.Launch{
		LaunchID:         launchID,
		Cluster:          s.cfg.Cluster,
		Payer:            plan.Payer.String(),
		Mint:             plan.Mint.String(),
		ATA:              plan.ATA.String(),
		MetadataAddress:  plan.MetadataPDA.String(),
		Name:             plan.Name,
		Symbol:           plan.Symbol,
		Decimals:         req.Decimals,
		Supply:           req.Supply,
		Amount:           fmt.Sprint(plan.Amount),
		MetadataURI:      prep.meta.URI,
		MetadataSource:   string(prep.meta.Source),
		FeeLamports:      plan.FeeLamports,
		RevokeMint:       req.RevokeMintAuthority,
		RevokeFreeze:     req.RevokeFreezeAuthority,
		Immutable:        req.Immutable,
		VanityMatched:    prep.key.Matched,
		VanityIterations: prep.key.Iterations,
		Status:           models.LaunchFailed,
		ErrorMessage:     cause.Error(),
	}
	if err := s.store.SaveLaunch(context.WithoutCancel(ctx), launch); err != nil {
		logger.Warn("Failed to save launch history", zap.Error(err))
	}
}

func zeroKey(k solana.PrivateKey) {
	for i := range k {
		k[i] = 0
	}
}
