// ====================================
// File: cmd/launcher/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launcher/internal/amount"
	"github.com/rovshanmuradov/token-launcher/internal/app"
	"github.com/rovshanmuradov/token-launcher/internal/config"
	"github.com/rovshanmuradov/token-launcher/internal/export"
	"github.com/rovshanmuradov/token-launcher/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	requestPath := flag.String("request", "configs/token.json", "path to token request file")
	keypair := flag.String("keypair", "", "payer keypair file (JSON byte array)")
	walletsCSV := flag.String("wallets", "configs/wallets.csv", "wallets CSV with name,private_key columns")
	walletName := flag.String("wallet", "main", "wallet name in the wallets CSV")
	combined := flag.Bool("combined", false, "let the wallet sign and send in one step")
	estimate := flag.Bool("estimate", false, "print the service fee and exit")
	exportDir := flag.String("export", "", "export the payer's launch history to this directory and exit")
	exportFormat := flag.String("export-format", "csv", "history export format: csv or json")
	flag.Parse()

	if err := run(*configPath, *requestPath, app.WalletSource{
		KeypairFile: *keypair,
		WalletsCSV:  *walletsCSV,
		Name:        *walletName,
		Combined:    *combined,
	}, options{
		estimateOnly: *estimate,
		exportDir:    *exportDir,
		exportFormat: export.ExportFormat(*exportFormat),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	estimateOnly bool
	exportDir    string
	exportFormat export.ExportFormat
}

func run(configPath, requestPath string, src app.WalletSource, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	log.Info("Starting token launcher", zap.String("cluster", cfg.Cluster), zap.Strings("rpc", cfg.RPCList))

	runner := app.NewRunner(cfg, log.Logger)
	defer func() {
		if err := runner.Shutdown(context.Background()); err != nil {
			log.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()
	if err := runner.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize launcher: %w", err)
	}

	if opts.estimateOnly {
		req, err := app.LoadRequest(requestPath)
		if err != nil {
			return err
		}
		fmt.Printf("Service fee: %s\n", amount.FormatLamports(runner.Estimate(req)))
		return nil
	}

	identity, err := runner.LoadIdentity(src)
	if err != nil {
		return fmt.Errorf("failed to load wallet: %w", err)
	}

	if opts.exportDir != "" {
		path, err := runner.ExportHistory(ctx, identity.PublicKey().String(), export.ExportOptions{
			Format:    opts.exportFormat,
			OutputDir: opts.exportDir,
		})
		if err != nil {
			return err
		}
		fmt.Printf("History exported to %s\n", path)
		return nil
	}

	req, err := app.LoadRequest(requestPath)
	if err != nil {
		return err
	}

	done := log.TrackPerformance("launch")
	res, err := runner.Launch(ctx, req, identity)
	done()
	if err != nil {
		log.LogError("Launch failed", err, zap.String("symbol", req.Symbol))
		return err
	}

	fmt.Printf("Token %s (%s) created\n", res.Name, res.Symbol)
	fmt.Printf("  Mint:      %s\n", res.MintURL)
	fmt.Printf("  Account:   %s\n", res.ATAURL)
	fmt.Printf("  Tx:        %s\n", res.TxURL)
	fmt.Printf("  Metadata:  %s (%s)\n", res.MetadataURI, res.MetadataSource)
	fmt.Printf("  Fee:       %s\n", amount.FormatLamports(res.FeeLamports))
	if res.NameTruncated || res.SymbolTruncated || res.AmountTruncated {
		fmt.Println("  Note: name, symbol or supply were truncated to fit on-chain limits")
	}
	if req.Vanity.Enabled() && !res.VanityMatched {
		fmt.Printf("  Note: vanity pattern not found after %d keypairs, used the last one\n", res.VanityIters)
	}
	return nil
}
