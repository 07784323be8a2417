// internal/token/request_test.go
package token

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/token-launcher/internal/fee"
	"github.com/rovshanmuradov/token-launcher/internal/vanity"
)

func TestRequestNormalize(t *testing.T) {
	req := Request{Name: "  Moon ", Symbol: " moon ", Supply: " 10 ", CustomCreator: " abc "}.Normalize()

	assert.Equal(t, "Moon", req.Name)
	assert.Equal(t, "MOON", req.Symbol)
	assert.Equal(t, "10", req.Supply)
	assert.Equal(t, "abc", req.CustomCreator)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr bool
	}{
		{name: "Valid", mutate: func(*Request) {}},
		{name: "Fractional supply", mutate: func(r *Request) { r.Supply = "10.5" }},
		{name: "Tags", mutate: func(r *Request) { r.Tags = []string{"Meme", "NFT"} }},
		{name: "Logo URL", mutate: func(r *Request) { r.LogoURL = "https://x.io/l.png" }},
		{name: "Empty name", mutate: func(r *Request) { r.Name = "" }, wantErr: true},
		{name: "Long name", mutate: func(r *Request) { r.Name = "0123456789012345678901234567890" }, wantErr: true},
		{name: "Long symbol", mutate: func(r *Request) { r.Symbol = "ABCDEFGHIJK" }, wantErr: true},
		{name: "Decimals above 9", mutate: func(r *Request) { r.Decimals = 10 }, wantErr: true},
		{name: "Supply grammar", mutate: func(r *Request) { r.Supply = "1." }, wantErr: true},
		{name: "Negative supply", mutate: func(r *Request) { r.Supply = "-1" }, wantErr: true},
		{name: "Unknown tag", mutate: func(r *Request) { r.Tags = []string{"Gaming"} }, wantErr: true},
		{name: "Too many tags", mutate: func(r *Request) { r.Tags = []string{"Meme", "Airdrop", "NFT", "Tokenization"} }, wantErr: true},
		{name: "Duplicate tags", mutate: func(r *Request) { r.Tags = []string{"Meme", "Meme"} }, wantErr: true},
		{name: "Negative vanity budget", mutate: func(r *Request) { r.Vanity.MaxIterations = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestFeeFeatures(t *testing.T) {
	req := baseRequest()
	assert.Equal(t, fee.Features{}, req.FeeFeatures())

	req.RevokeFreezeAuthority = true
	req.CustomCreator = "x"
	req.Vanity = vanity.Options{Prefix: "ab", MaxIterations: 0}
	assert.Equal(t, fee.Features{RevokeFreeze: true, CustomCreator: true}, req.FeeFeatures())

	req.Vanity.MaxIterations = 1000
	assert.True(t, req.FeeFeatures().Vanity)
}
