// internal/blockchain/programs/tokenmetadata/tokenmetadata.go
package tokenmetadata

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

const (
	CreateMetadataAccountV3 uint8 = 33
)

// Лимиты полей DataV2 в байтах.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

// Truncate режет строку до max байт, не разрывая руну.
func Truncate(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// DataV2 без collection и uses, они всегда None.
type DataV2 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
}

// CreateMetadataAccountV3Instruction создает metadata-аккаунт для минта.
type CreateMetadataAccountV3Instruction struct {
	Data      DataV2
	IsMutable bool

	Metadata        solana.PublicKey
	Mint            solana.PublicKey
	MintAuthority   solana.PublicKey
	Payer           solana.PublicKey
	UpdateAuthority solana.PublicKey
}

// FindMetadataAddress возвращает PDA ["metadata", program, mint].
func FindMetadataAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte("metadata"),
		ProgramID[:],
		mint[:],
	}, ProgramID)
}

func (d DataV2) validate() error {
	if len(d.Name) > MaxNameLength {
		return fmt.Errorf("name is %d bytes, max %d", len(d.Name), MaxNameLength)
	}
	if len(d.Symbol) > MaxSymbolLength {
		return fmt.Errorf("symbol is %d bytes, max %d", len(d.Symbol), MaxSymbolLength)
	}
	if len(d.URI) > MaxURILength {
		return fmt.Errorf("uri is %d bytes, max %d", len(d.URI), MaxURILength)
	}
	return nil
}

// Build кодирует данные в borsh и собирает инструкцию.
func (instr *CreateMetadataAccountV3Instruction) Build() (solana.Instruction, error) {
	if err := instr.Data.validate(); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}

	data, err := instr.encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata instruction: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: instr.Metadata, IsWritable: true},
		{PublicKey: instr.Mint},
		{PublicKey: instr.MintAuthority, IsSigner: true},
		{PublicKey: instr.Payer, IsWritable: true, IsSigner: true},
		{PublicKey: instr.UpdateAuthority, IsSigner: true},
		{PublicKey: solana.SystemProgramID},
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

func (instr *CreateMetadataAccountV3Instruction) encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	steps := []func() error{
		func() error { return enc.WriteUint8(CreateMetadataAccountV3) },
		func() error { return writeString(enc, instr.Data.Name) },
		func() error { return writeString(enc, instr.Data.Symbol) },
		func() error { return writeString(enc, instr.Data.URI) },
		func() error { return enc.WriteUint16(instr.Data.SellerFeeBasisPoints, bin.LE) },
		func() error { return writeCreators(enc, instr.Data.Creators) },
		func() error { return enc.WriteUint8(0) }, // collection: None
		func() error { return enc.WriteUint8(0) }, // uses: None
		func() error { return enc.WriteBool(instr.IsMutable) },
		func() error { return enc.WriteUint8(0) }, // collection_details: None
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), bin.LE); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

func writeCreators(enc *bin.Encoder, creators []Creator) error {
	if len(creators) == 0 {
		return enc.WriteUint8(0)
	}
	if err := enc.WriteUint8(1); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(creators)), bin.LE); err != nil {
		return err
	}
	for _, c := range creators {
		if err := enc.WriteBytes(c.Address[:], false); err != nil {
			return err
		}
		if err := enc.WriteBool(c.Verified); err != nil {
			return err
		}
		if err := enc.WriteUint8(c.Share); err != nil {
			return err
		}
	}
	return nil
}
