// ====================================
// File: cmd/vanity/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launcher/internal/vanity"
	"github.com/rovshanmuradov/token-launcher/internal/wallet"
)

func main() {
	prefix := flag.String("prefix", "", "wanted address prefix")
	suffix := flag.String("suffix", "", "wanted address suffix")
	caseSensitive := flag.Bool("case-sensitive", false, "match case exactly")
	maxIter := flag.Int("max", 1_000_000, "maximum keypairs to try")
	timeout := flag.Duration("timeout", 0, "stop after this long and keep the last keypair")
	out := flag.String("out", "", "write the found keypair to this file (solana-keygen format, mode 0600)")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if *debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	res, err := vanity.NewSearcher(logger).Search(ctx, vanity.Options{
		Prefix:        *prefix,
		Suffix:        *suffix,
		CaseSensitive: *caseSensitive,
		MaxIterations: *maxIter,
	})
	if err != nil {
		logger.Fatal("Vanity search failed", zap.Error(err))
	}

	rate := float64(res.Iterations) / res.Elapsed.Seconds()
	fmt.Printf("Address:    %s\n", res.Key.PublicKey())
	fmt.Printf("Matched:    %t\n", res.Matched)
	fmt.Printf("Iterations: %d (%.0f/s, %s)\n", res.Iterations, rate, res.Elapsed.Round(time.Millisecond))
	if *out == "" {
		fmt.Println("Keypair not saved: pass -out to keep it")
		return
	}
	if err := wallet.SaveKeypairFile(*out, res.Key); err != nil {
		logger.Fatal("Failed to save keypair", zap.Error(err))
	}
	fmt.Printf("Keypair:    %s\n", *out)
}
