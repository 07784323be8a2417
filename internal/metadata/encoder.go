// internal/metadata/encoder.go
package metadata

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Source tells where the final URI came from.
type Source string

const (
	SourceUpload      Source = "upload"
	SourceInline      Source = "inline"
	SourcePlaceholder Source = "placeholder"
)

// Uploader stores a metadata document off-chain and returns its public URI.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// Result is the outcome of Encoder.Build. URI is never longer than MaxURILength.
type Result struct {
	URI    string
	Source Source
	// Inline заполнен только если URI построен без загрузки.
	Inline *InlineResult
}

// Encoder produces the on-chain uri value for a new token.
type Encoder struct {
	uploader Uploader
	logger   *zap.Logger
}

// NewEncoder creates an encoder. uploader may be nil, then every URI is inline.
func NewEncoder(uploader Uploader, logger *zap.Logger) *Encoder {
	return &Encoder{
		uploader: uploader,
		logger:   logger.Named("metadata"),
	}
}

// Build uploads the full document when an uploader is configured and falls
// back to an inline data URI on any failure. Upload is attempted once.
func (e *Encoder) Build(ctx context.Context, in Input) Result {
	if e.uploader != nil {
		uri, err := e.upload(ctx, in)
		if err == nil {
			return Result{URI: uri, Source: SourceUpload}
		}
		e.logger.Warn("Metadata upload failed, using inline URI", zap.Error(err))
	}

	inline := BuildInlineURI(in)
	src := SourceInline
	if inline.Placeholder {
		src = SourcePlaceholder
	}
	if inline.NameTruncated || !inline.WithImage && in.Image != "" {
		e.logger.Debug("Inline metadata reduced",
			zap.String("name", inline.Name),
			zap.Bool("with_symbol", inline.WithSymbol),
			zap.Bool("with_image", inline.WithImage),
			zap.Bool("placeholder", inline.Placeholder))
	}
	return Result{URI: inline.URI, Source: src, Inline: &inline}
}

func (e *Encoder) upload(ctx context.Context, in Input) (string, error) {
	data, err := BuildDocument(in).Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	uri, err := e.uploader.Upload(ctx, data)
	if err != nil {
		return "", err
	}
	if uri == "" || len(uri) > MaxURILength {
		return "", fmt.Errorf("uploaded URI length %d out of range", len(uri))
	}
	return uri, nil
}
