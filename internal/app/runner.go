// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launcher/internal/amount"
	"github.com/rovshanmuradov/token-launcher/internal/blockchain/solbc"
	solrpc "github.com/rovshanmuradov/token-launcher/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/token-launcher/internal/config"
	"github.com/rovshanmuradov/token-launcher/internal/events"
	"github.com/rovshanmuradov/token-launcher/internal/export"
	"github.com/rovshanmuradov/token-launcher/internal/launcher"
	"github.com/rovshanmuradov/token-launcher/internal/metadata"
	"github.com/rovshanmuradov/token-launcher/internal/metrics"
	"github.com/rovshanmuradov/token-launcher/internal/signer"
	"github.com/rovshanmuradov/token-launcher/internal/storage"
	"github.com/rovshanmuradov/token-launcher/internal/storage/memory"
	"github.com/rovshanmuradov/token-launcher/internal/storage/postgres"
	"github.com/rovshanmuradov/token-launcher/internal/submit"
	"github.com/rovshanmuradov/token-launcher/internal/token"
	"github.com/rovshanmuradov/token-launcher/internal/vanity"
	"github.com/rovshanmuradov/token-launcher/internal/wallet"
)

// WalletSource указывает, откуда взять кошелёк плательщика.
type WalletSource struct {
	KeypairFile string
	WalletsCSV  string
	Name        string
	// Combined отдаёт подпись и отправку самому кошельку.
	Combined bool
}

// ErrNoHistoryStore is returned by ExportHistory when history lives only in
// this process's memory.
var ErrNoHistoryStore = errors.New("launch history export needs postgres_url: in-memory history is empty in a new process")

// Runner собирает зависимости процесса и запускает создание токена.
type Runner struct {
	logger  *zap.Logger
	config  *config.Config
	client  *solbc.Client
	service *launcher.Service
	store   storage.Storage
	// persistent is set when store outlives the process.
	persistent bool
	bus        *events.Bus
	shutdown   *ShutdownHandler
}

func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		logger:   logger,
		config:   cfg,
		shutdown: NewShutdownHandler(logger, 10*time.Second),
	}
}

// Initialize creates the RPC client, history storage, uploader, metrics and
// the launch service.
func (r *Runner) Initialize(ctx context.Context) error {
	cfg := r.config

	node, err := solrpc.NewClient(cfg.RPCList, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create rpc client: %w", err)
	}
	r.shutdown.AddFunc("rpc", func() error { node.Close(); return nil })
	r.logger.Info("RPC nodes", zap.Strings("urls", node.URLs()))
	r.client = solbc.NewClient(node, r.logger,
		solbc.WithCommitment(rpc.CommitmentType(cfg.Commitment)),
		solbc.WithConfirmPolling(cfg.Confirm.PollInterval, cfg.Confirm.Timeout))

	if r.store, err = r.openStorage(); err != nil {
		return err
	}

	uploader, err := r.selectUploader(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if cfg.MetricsAddr != "" {
		r.serveMetrics(collector.Handler())
	}

	r.bus = events.NewBus(r.logger, 64)
	r.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stats := r.bus.Stats()
		r.logger.Debug("Stopping event bus",
			zap.Int("pending", stats.PendingEvents),
			zap.Int("buffer", stats.BufferSize))
		return r.bus.Shutdown(ctx)
	})
	r.bus.SubscribeFunc(events.LaunchStage, func(_ context.Context, e events.Event) error {
		stage := e.(events.LaunchStageEvent)
		r.logger.Info("Launch stage done", zap.String("stage", string(stage.Stage)), zap.Any("detail", stage.Detail))
		return nil
	})

	r.service, err = launcher.NewService(launcher.Deps{
		Config:   cfg,
		Builder:  token.NewBuilder(cfg, r.client, r.logger),
		Encoder:  metadata.NewEncoder(uploader, r.logger),
		Searcher: vanity.NewSearcher(r.logger, vanity.WithYieldEvery(cfg.Vanity.YieldEvery)),
		Pipeline: submit.NewPipeline(r.client, r.logger, submit.WithSendOptions(cfg.Send.MaxRetries, cfg.Send.SkipPreflight)),
		Rent:     r.client,
		Store:    r.store,
		Bus:      r.bus,
		Metrics:  collector,
		Logger:   r.logger,
	})
	return err
}

func (r *Runner) openStorage() (storage.Storage, error) {
	if r.config.PostgresURL == "" {
		r.logger.Debug("postgres_url not set, launch history kept in memory")
		return memory.New(), nil
	}
	store, err := postgres.NewStorage(r.config.PostgresURL, r.logger)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(); err != nil {
		return nil, err
	}
	r.persistent = true
	return store, nil
}

// selectUploader: NFT.Storage, если задан токен, иначе GCS, иначе только inline URI.
func (r *Runner) selectUploader(ctx context.Context) (metadata.Uploader, error) {
	st := r.config.Storage
	switch {
	case st.NFTStorageToken != "":
		r.logger.Info("Metadata uploads go to NFT.Storage")
		return metadata.NewNFTStorageUploader(st.NFTStorageEndpoint, st.NFTStorageToken, st.GatewayURL), nil
	case st.GCSBucket != "":
		up, err := metadata.NewGCSUploader(ctx, st.GCSBucket, st.GCSPublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create gcs uploader: %w", err)
		}
		r.shutdown.Add("gcs", up)
		r.logger.Info("Metadata uploads go to GCS", zap.String("bucket", st.GCSBucket))
		return up, nil
	}
	r.logger.Info("No metadata storage configured, using inline URIs")
	return nil, nil
}

func (r *Runner) serveMetrics(h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: r.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	r.shutdown.AddFunc("metrics", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	r.logger.Info("Serving metrics", zap.String("addr", r.config.MetricsAddr))
}

// LoadIdentity загружает кошелёк плательщика.
func (r *Runner) LoadIdentity(src WalletSource) (signer.Identity, error) {
	var w *wallet.Wallet
	switch {
	case src.KeypairFile != "":
		var err error
		if w, err = wallet.LoadKeypairFile(src.KeypairFile); err != nil {
			return nil, err
		}
	case src.WalletsCSV != "":
		wallets, err := wallet.LoadWallets(src.WalletsCSV)
		if err != nil {
			return nil, err
		}
		var ok bool
		if w, ok = wallets[src.Name]; !ok {
			return nil, fmt.Errorf("wallet %q not found in %s", src.Name, src.WalletsCSV)
		}
	default:
		return nil, launcher.ErrWalletNotConnected
	}

	if src.Combined {
		return wallet.NewSender(w, r.client, r.logger), nil
	}
	return w, nil
}

// Estimate возвращает комиссию сервиса без отправки транзакции.
func (r *Runner) Estimate(req token.Request) uint64 {
	return r.service.Estimate(req).Total()
}

// Launch создаёт токен и печатает ссылки на обозреватель.
func (r *Runner) Launch(ctx context.Context, req token.Request, identity signer.Identity) (*launcher.Result, error) {
	if signer.Connected(identity) {
		if balance, err := r.client.GetBalance(ctx, identity.PublicKey()); err == nil {
			r.logger.Info("Payer balance", zap.String("balance", amount.FormatLamports(balance)))
		}
	}
	return r.service.Create(ctx, req, identity)
}

// ExportHistory выгружает историю запусков плательщика в файл.
func (r *Runner) ExportHistory(ctx context.Context, payer string, opts export.ExportOptions) (string, error) {
	if !r.persistent {
		return "", ErrNoHistoryStore
	}
	launches, err := r.store.ListLaunches(ctx, payer, 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to list launches: %w", err)
	}
	return export.NewLaunchExporter(r.logger).ExportLaunches(launches, opts)
}

// Shutdown closes everything Initialize opened.
func (r *Runner) Shutdown(ctx context.Context) error {
	return r.shutdown.Shutdown(ctx)
}
