// internal/vanity/vanity.go
package vanity

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// DefaultYieldEvery is how many candidates are generated between scheduler yields.
const DefaultYieldEvery = 200

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Options describes the wanted address pattern. MaxIterations == 0 disables the search.
type Options struct {
	Prefix        string `mapstructure:"prefix" json:"prefix,omitempty"`
	Suffix        string `mapstructure:"suffix" json:"suffix,omitempty"`
	CaseSensitive bool   `mapstructure:"case_sensitive" json:"case_sensitive,omitempty"`
	MaxIterations int    `mapstructure:"max_iterations" json:"max_iterations,omitempty" validate:"gte=0"`
}

// Enabled reports whether the options ask for an actual search.
func (o Options) Enabled() bool {
	return (strings.TrimSpace(o.Prefix) != "" || strings.TrimSpace(o.Suffix) != "") && o.MaxIterations > 0
}

// Result is the keypair handed back by a search. Key is always usable; Matched
// tells a real hit apart from a search that ran out of iterations.
type Result struct {
	Key        solana.PrivateKey
	Matched    bool
	Iterations int
	Elapsed    time.Duration
}

// Generator produces a fresh random keypair.
type Generator func() (solana.PrivateKey, error)

// Searcher looks for keypairs whose base58 address matches a pattern.
type Searcher struct {
	logger     *zap.Logger
	generate   Generator
	yieldEvery int
}

type Option func(*Searcher)

// WithYieldEvery sets the yield cadence.
func WithYieldEvery(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.yieldEvery = n
		}
	}
}

// WithGenerator replaces the random key source.
func WithGenerator(g Generator) Option {
	return func(s *Searcher) {
		if g != nil {
			s.generate = g
		}
	}
}

func NewSearcher(logger *zap.Logger, opts ...Option) *Searcher {
	s := &Searcher{
		logger:     logger.Named("vanity"),
		generate:   solana.NewRandomPrivateKey,
		yieldEvery: DefaultYieldEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the first keypair whose address matches opts, or the last
// generated keypair once MaxIterations candidates were tried. It yields to the
// scheduler every yieldEvery candidates; a cancelled ctx ends the search early
// the same way exhaustion does. The only error is a failing key source.
func (s *Searcher) Search(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if !opts.Enabled() {
		key, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate keypair: %w", err)
		}
		return &Result{Key: key, Iterations: 1, Elapsed: time.Since(start)}, nil
	}

	normalize := func(x string) string {
		if opts.CaseSensitive {
			return x
		}
		return strings.ToLower(x)
	}
	prefix := normalize(strings.TrimSpace(opts.Prefix))
	suffix := normalize(strings.TrimSpace(opts.Suffix))

	if bad := invalidChars(prefix+suffix, normalize(base58Alphabet)); bad != "" {
		s.logger.Warn("Pattern contains characters outside base58, it can never match",
			zap.String("chars", bad))
	}

	var key solana.PrivateKey
	for i := 1; ; i++ {
		var err error
		key, err = s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate keypair: %w", err)
		}

		address := normalize(key.PublicKey().String())
		if strings.HasPrefix(address, prefix) && strings.HasSuffix(address, suffix) {
			s.logger.Debug("Vanity address found",
				zap.String("address", key.PublicKey().String()),
				zap.Int("iterations", i))
			return &Result{Key: key, Matched: true, Iterations: i, Elapsed: time.Since(start)}, nil
		}

		if i >= opts.MaxIterations {
			s.logger.Info("Vanity search exhausted, using last keypair",
				zap.Int("iterations", i),
				zap.String("prefix", opts.Prefix),
				zap.String("suffix", opts.Suffix))
			return &Result{Key: key, Iterations: i, Elapsed: time.Since(start)}, nil
		}

		if i%s.yieldEvery == 0 {
			runtime.Gosched()
			if ctx.Err() != nil {
				s.logger.Info("Vanity search cancelled, using last keypair", zap.Int("iterations", i))
				return &Result{Key: key, Iterations: i, Elapsed: time.Since(start)}, nil
			}
		}
	}
}

// invalidChars returns the characters of s that never appear in alphabet.
func invalidChars(s, alphabet string) string {
	var b strings.Builder
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) && !strings.ContainsRune(b.String(), r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
