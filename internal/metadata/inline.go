// internal/metadata/inline.go
package metadata

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rovshanmuradov/token-launcher/internal/blockchain/programs/tokenmetadata"
)

const (
	// MaxURILength is the Metaplex limit for the on-chain uri field.
	MaxURILength = 200

	dataURIPrefix  = "data:application/json,"
	startNameLimit = 32
)

// PlaceholderURI is returned when nothing else fits.
var PlaceholderURI = dataURIPrefix + EncodeURIComponent(`{"name":"t"}`)

// InlineResult describes which fields made it into an inline data URI.
type InlineResult struct {
	URI           string
	Name          string
	WithSymbol    bool
	WithImage     bool
	NameTruncated bool
	Placeholder   bool
}

type inlineDocument struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
	Image  string `json:"image,omitempty"`
}

// BuildInlineURI encodes a minimal document as a data URI no longer than
// MaxURILength. For every name length from 32 down to 1 it tries, in order:
// name+symbol+image, name+image, name+symbol, name. The image link is never
// cut; the name shrinks first.
func BuildInlineURI(in Input) InlineResult {
	symbol, _ := tokenmetadata.Truncate(in.Symbol, tokenmetadata.MaxSymbolLength)
	image := strings.TrimSpace(in.Image)
	nameRunes := []rune(in.Name)

	for limit := startNameLimit; limit > 0; limit-- {
		name := truncateRunes(in.Name, limit)
		truncated := len(nameRunes) > limit

		var tiers []inlineDocument
		if image != "" {
			tiers = append(tiers,
				inlineDocument{Name: name, Symbol: symbol, Image: image},
				inlineDocument{Name: name, Image: image},
			)
		}
		if symbol != "" {
			tiers = append(tiers, inlineDocument{Name: name, Symbol: symbol})
		}
		tiers = append(tiers, inlineDocument{Name: name})

		for _, doc := range tiers {
			uri := encodeInline(doc)
			if len(uri) <= MaxURILength {
				return InlineResult{
					URI:           uri,
					Name:          name,
					WithSymbol:    doc.Symbol != "",
					WithImage:     doc.Image != "",
					NameTruncated: truncated,
				}
			}
		}
	}

	return InlineResult{URI: PlaceholderURI, Name: "t", Placeholder: true, NameTruncated: true}
}

func encodeInline(doc inlineDocument) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// inlineDocument содержит только строки, ошибка невозможна
	_ = enc.Encode(doc)
	out := unescapeLineSeparators(strings.TrimSuffix(buf.String(), "\n"))
	return dataURIPrefix + EncodeURIComponent(out)
}

// unescapeLineSeparators puts U+2028 and U+2029 back as raw characters;
// encoding/json always escapes them.
func unescapeLineSeparators(s string) string {
	if !strings.Contains(s, `\u202`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		if rest := s[i:]; strings.HasPrefix(rest, `\u2028`) || strings.HasPrefix(rest, `\u2029`) {
			if rest[5] == '8' {
				b.WriteRune('\u2028')
			} else {
				b.WriteRune('\u2029')
			}
			i += 5
			continue
		}
		// экранированная пара копируется целиком
		b.WriteByte(s[i])
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

// EncodeURIComponent percent-encodes s leaving only A-Z a-z 0-9 - _ . ! ~ * ' ( ) as is.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
