// internal/blockchain/programs/tokenmetadata/tokenmetadata_test.go
package tokenmetadata

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstruction(t *testing.T, data DataV2) *CreateMetadataAccountV3Instruction {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	pda, _, err := FindMetadataAddress(mint)
	require.NoError(t, err)
	return &CreateMetadataAccountV3Instruction{
		Data:            data,
		IsMutable:       true,
		Metadata:        pda,
		Mint:            mint,
		MintAuthority:   payer,
		Payer:           payer,
		UpdateAuthority: payer,
	}
}

func TestFindMetadataAddressDeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	a, bumpA, err := FindMetadataAddress(mint)
	require.NoError(t, err)
	b, bumpB, err := FindMetadataAddress(mint)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, bumpA, bumpB)
	assert.NotEqual(t, mint, a)
}

func TestBuildEncodesDataV2(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	instr := newInstruction(t, DataV2{
		Name:     "Moon",
		Symbol:   "MOON",
		URI:      "https://x.io/m.json",
		Creators: []Creator{{Address: creator, Share: 100}},
	})

	ix, err := instr.Build()
	require.NoError(t, err)
	assert.Equal(t, ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)

	off := 0
	assert.Equal(t, CreateMetadataAccountV3, data[off])
	off++
	for _, want := range []string{"Moon", "MOON", "https://x.io/m.json"} {
		n := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		assert.Equal(t, want, string(data[off:off+n]))
		off += n
	}
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[off:]))
	off += 2
	assert.Equal(t, byte(1), data[off]) // Some(creators)
	off++
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[off:]))
	off += 4
	assert.Equal(t, creator[:], data[off:off+32])
	off += 32
	assert.Equal(t, []byte{0, 100, 0, 0, 1, 0}, data[off:])
}

func TestBuildWithoutCreators(t *testing.T) {
	ix, err := newInstruction(t, DataV2{Name: "A", Symbol: "", URI: "u"}).Build()
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	// 1 + (4+1) + 4 + (4+1) + 2 + creators/collection/uses + mutable + details
	assert.Len(t, data, 1+5+4+5+2+3+1+1)
}

func TestBuildAccounts(t *testing.T) {
	instr := newInstruction(t, DataV2{Name: "A", URI: "u"})
	ix, err := instr.Build()
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.Equal(t, instr.Metadata, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsWritable)
	assert.False(t, accounts[1].IsSigner)
	assert.True(t, accounts[2].IsSigner)
	assert.True(t, accounts[3].IsSigner && accounts[3].IsWritable)
	assert.Equal(t, solana.SystemProgramID, accounts[5].PublicKey)
}

func TestBuildRejectsOversizedFields(t *testing.T) {
	tests := []struct {
		name string
		data DataV2
	}{
		{name: "Name", data: DataV2{Name: strings.Repeat("n", 33)}},
		{name: "Symbol", data: DataV2{Name: "n", Symbol: strings.Repeat("S", 11)}},
		{name: "URI", data: DataV2{Name: "n", URI: strings.Repeat("u", 201)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newInstruction(t, tt.data).Build()
			assert.Error(t, err)
		})
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s, cut := Truncate("TOKEN", MaxSymbolLength)
	assert.Equal(t, "TOKEN", s)
	assert.False(t, cut)

	s, cut = Truncate("ÉÉÉÉÉÉ", MaxSymbolLength)
	assert.Equal(t, "ÉÉÉÉÉ", s)
	assert.True(t, cut)

	s, cut = Truncate("abcdefghi€", MaxSymbolLength)
	assert.Equal(t, "abcdefghi", s)
	assert.True(t, cut)
}
