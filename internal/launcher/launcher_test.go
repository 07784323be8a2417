// internal/launcher/launcher_test.go
package launcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/token-launcher/internal/blockchain/solbc"
	"github.com/rovshanmuradov/token-launcher/internal/config"
	"github.com/rovshanmuradov/token-launcher/internal/events"
	"github.com/rovshanmuradov/token-launcher/internal/metadata"
	"github.com/rovshanmuradov/token-launcher/internal/metrics"
	"github.com/rovshanmuradov/token-launcher/internal/storage/memory"
	"github.com/rovshanmuradov/token-launcher/internal/storage/models"
	"github.com/rovshanmuradov/token-launcher/internal/submit"
	"github.com/rovshanmuradov/token-launcher/internal/token"
	"github.com/rovshanmuradov/token-launcher/internal/vanity"
	"github.com/rovshanmuradov/token-launcher/internal/wallet"
)

const testRent = 1_461_600

// fakeNetwork отвечает фиксированными значениями и запоминает отправленные транзакции.
type fakeNetwork struct {
	mu      sync.Mutex
	sent    []*solana.Transaction
	rentErr error
	sendErr error
	blocks  int
}

func (f *fakeNetwork) GetMinimumBalanceForRentExemption(context.Context, uint64) (uint64, error) {
	return testRent, f.rentErr
}

func (f *fakeNetwork) GetLatestBlockhash(context.Context) (solbc.Recency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks++
	return solbc.Recency{Blockhash: solana.Hash{byte(f.blocks)}, LastValidBlockHeight: 150}, nil
}

func (f *fakeNetwork) SendTransaction(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeNetwork) WaitForConfirmation(context.Context, solana.Signature, uint64) error {
	return nil
}

type fixture struct {
	svc     *Service
	net     *fakeNetwork
	store   *memory.Store
	bus     *events.Bus
	reg     *prometheus.Registry
	wallet  *wallet.Wallet
	mintKey solana.PrivateKey
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	if cfg == nil {
		cfg = &config.Config{Cluster: "devnet"}
	}

	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	f := &fixture{
		net:     &fakeNetwork{},
		store:   memory.New(),
		bus:     events.NewBus(logger, 64),
		reg:     prometheus.NewRegistry(),
		wallet:  w,
		mintKey: solana.NewWallet().PrivateKey,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.bus.Shutdown(ctx)
	})

	searcher := vanity.NewSearcher(logger, vanity.WithGenerator(func() (solana.PrivateKey, error) {
		return f.mintKey, nil
	}))

	f.svc, err = NewService(Deps{
		Config:   cfg,
		Builder:  token.NewBuilder(cfg, f.net, logger),
		Encoder:  metadata.NewEncoder(nil, logger),
		Searcher: searcher,
		Pipeline: submit.NewPipeline(f.net, logger),
		Rent:     f.net,
		Store:    f.store,
		Bus:      f.bus,
		Metrics:  metrics.NewCollector(f.reg),
		Logger:   logger,
	})
	require.NoError(t, err)
	return f
}

func testRequest() token.Request {
	return token.Request{
		Name:                "Test",
		Symbol:              "tst",
		Decimals:            6,
		Supply:              "1000000",
		LogoURL:             "https://example.com/logo.png",
		RevokeMintAuthority: true,
	}
}

func TestCreateConfirmsAndRecordsLaunch(t *testing.T) {
	f := newFixture(t, nil)
	mint := f.mintKey.PublicKey()

	completed := make(chan events.Event, 1)
	f.bus.SubscribeFunc(events.LaunchCompleted, func(_ context.Context, e events.Event) error {
		completed <- e
		return nil
	})

	res, err := f.svc.Create(context.Background(), testRequest(), f.wallet)
	require.NoError(t, err)

	assert.Equal(t, mint, res.Mint)
	assert.Equal(t, f.wallet.PublicKey(), res.Payer)
	assert.Equal(t, "TST", res.Symbol)
	assert.Equal(t, uint64(1_000_000_000_000), res.Amount)
	assert.Equal(t, metadata.SourceInline, res.MetadataSource)
	assert.True(t, strings.HasPrefix(res.MetadataURI, "data:application/json,"))
	assert.Zero(t, res.FeeLamports)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "https://explorer.solana.com/address/"+mint.String()+"?cluster=devnet", res.MintURL)
	assert.Contains(t, res.TxURL, res.Signature.String())

	// ключ минта обнулён после отправки
	assert.Equal(t, make(solana.PrivateKey, len(f.mintKey)), f.mintKey)

	require.Len(t, f.net.sent, 1)
	tx := f.net.sent[0]
	assert.Len(t, tx.Message.Instructions, 6)
	require.Len(t, tx.Signatures, 2)
	assert.NoError(t, tx.VerifySignatures())

	saved, err := f.store.GetLaunch(context.Background(), mint.String())
	require.NoError(t, err)
	assert.Equal(t, models.LaunchConfirmed, saved.Status)
	assert.Equal(t, res.Signature.String(), saved.Signature)
	assert.Equal(t, res.LaunchID, saved.LaunchID)
	assert.NotNil(t, saved.ConfirmedAt)

	select {
	case e := <-completed:
		assert.Equal(t, res.Signature.String(), e.(events.LaunchCompletedEvent).Signature)
	case <-time.After(2 * time.Second):
		t.Fatal("launch completed event not delivered")
	}

	n, err := testutil.GatherAndCount(f.reg, "token_launcher_launches_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateChargesEstimatedFee(t *testing.T) {
	cfg := &config.Config{
		Cluster:      "mainnet-beta",
		FeeRecipient: solana.NewWallet().PublicKey().String(),
		Fees:         config.FeesConfig{Base: 10_000_000, RevokeMint: 1_000_000, Vanity: 5_000_000},
	}
	f := newFixture(t, cfg)

	req := testRequest()
	estimate := f.svc.Estimate(req)

	res, err := f.svc.Create(context.Background(), req, f.wallet)
	require.NoError(t, err)

	assert.Equal(t, uint64(11_000_000), estimate.Total())
	assert.Equal(t, estimate.Total(), res.FeeLamports)
	assert.Equal(t, estimate, res.Fee)
	assert.NotContains(t, res.MintURL, "cluster=")
	assert.Len(t, f.net.sent[0].Message.Instructions, 7)
}

type identity struct{ pub solana.PublicKey }

func (i identity) PublicKey() solana.PublicKey { return i.pub }

func TestCreateWithoutWallet(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), testRequest(), nil)
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	_, err = f.svc.Create(context.Background(), testRequest(), identity{})
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	assert.NotPanics(t, func() {
		_, err = f.svc.Create(context.Background(), testRequest(), (*wallet.Wallet)(nil))
	})
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	assert.NotPanics(t, func() {
		_, err = f.svc.Create(context.Background(), testRequest(), (*wallet.Sender)(nil))
	})
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	assert.Empty(t, f.net.sent)
}

func TestCreateInvalidRequest(t *testing.T) {
	f := newFixture(t, nil)
	req := testRequest()
	req.Supply = "1e6"

	_, err := f.svc.Create(context.Background(), req, f.wallet)
	assert.ErrorIs(t, err, token.ErrInvalidRequest)
	assert.Zero(t, f.net.blocks)
}

func TestCreateRentFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.net.rentErr = errors.New("node unavailable")

	_, err := f.svc.Create(context.Background(), testRequest(), f.wallet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node unavailable")
	assert.Empty(t, f.net.sent)
	assert.Equal(t, make(solana.PrivateKey, len(f.mintKey)), f.mintKey)
}

func TestCreateSendFailureIsSurfacedAndRecorded(t *testing.T) {
	f := newFixture(t, nil)
	f.net.sendErr = errors.New("insufficient lamports")
	mint := f.mintKey.PublicKey()

	_, err := f.svc.Create(context.Background(), testRequest(), f.wallet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient lamports")

	saved, err := f.store.GetLaunch(context.Background(), mint.String())
	require.NoError(t, err)
	assert.Equal(t, models.LaunchFailed, saved.Status)
	assert.Contains(t, saved.ErrorMessage, "insufficient lamports")
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)
}
