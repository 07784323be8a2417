// internal/token/builder.go
package token

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	splToken "github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launcher/internal/amount"
	"github.com/rovshanmuradov/token-launcher/internal/blockchain/programs/tokenmetadata"
	"github.com/rovshanmuradov/token-launcher/internal/config"
	"github.com/rovshanmuradov/token-launcher/internal/fee"
)

// MintSize размер mint-аккаунта SPL Token в байтах.
const MintSize = 82

// Step identifies one instruction of the plan.
type Step string

const (
	StepFeeTransfer    Step = "fee_transfer"
	StepCreateMint     Step = "create_mint"
	StepInitializeMint Step = "initialize_mint"
	StepCreateATA      Step = "create_ata"
	StepMintTo         Step = "mint_to"
	StepCreateMetadata Step = "create_metadata"
	StepRevokeMint     Step = "revoke_mint"
	StepRevokeFreeze   Step = "revoke_freeze"
)

// RentSource отдает минимальный баланс для освобождения от ренты.
type RentSource interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}

// FixedRent возвращает заранее известное значение ренты.
type FixedRent uint64

func (f FixedRent) GetMinimumBalanceForRentExemption(context.Context, uint64) (uint64, error) {
	return uint64(f), nil
}

// Plan is the ordered instruction set of one token creation.
type Plan struct {
	Instructions []solana.Instruction
	Steps        []Step

	Payer       solana.PublicKey
	Mint        solana.PublicKey
	ATA         solana.PublicKey
	MetadataPDA solana.PublicKey
	Creator     solana.PublicKey

	Amount       uint64
	RentLamports uint64
	Fee          fee.Breakdown
	// FeeLamports is what the fee transfer moves; zero when no transfer is emitted.
	FeeLamports uint64

	Name            string
	Symbol          string
	NameTruncated   bool
	SymbolTruncated bool
	AmountTruncated bool
}

// Transaction собирает транзакцию с payer в роли fee payer.
func (p *Plan) Transaction(recent solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(p.Instructions, recent, solana.TransactionPayer(p.Payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// Builder composes the token creation instructions.
type Builder struct {
	schedule  fee.Schedule
	recipient *solana.PublicKey
	rent      RentSource
	logger    *zap.Logger
}

// NewBuilder reads the fee schedule and recipient from cfg. A malformed
// recipient is logged and treated as absent.
func NewBuilder(cfg *config.Config, rent RentSource, logger *zap.Logger) *Builder {
	logger = logger.Named("builder")
	b := &Builder{
		schedule: cfg.FeeSchedule(),
		rent:     rent,
		logger:   logger,
	}
	if cfg.FeeRecipient != "" {
		pk, err := solana.PublicKeyFromBase58(cfg.FeeRecipient)
		if err != nil {
			logger.Warn("Invalid fee recipient, fee transfer disabled",
				zap.String("fee_recipient", cfg.FeeRecipient), zap.Error(err))
		} else {
			b.recipient = &pk
		}
	}
	return b
}

// WithRent возвращает копию билдера с уже известной рентой.
func (b *Builder) WithRent(lamports uint64) *Builder {
	cp := *b
	cp.rent = FixedRent(lamports)
	return &cp
}

// Estimate считает комиссию так же, как Build.
func (b *Builder) Estimate(req Request) fee.Breakdown {
	return fee.Calculate(req.Normalize().FeeFeatures(), b.schedule)
}

// Build returns the instructions in protocol order: fee transfer, create mint,
// initialize mint, create ATA, mint_to, metadata, revoke mint, revoke freeze.
func (b *Builder) Build(ctx context.Context, req Request, payer, mint solana.PublicKey, uri string) (*Plan, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conv, err := amount.ToBaseUnits(req.Supply, req.Decimals)
	if err != nil {
		return nil, fmt.Errorf("failed to convert supply: %w", err)
	}
	supply, err := conv.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to convert supply: %w", err)
	}

	plan := &Plan{
		Payer:           payer,
		Mint:            mint,
		Amount:          supply,
		AmountTruncated: conv.Truncated,
		Fee:             fee.Calculate(req.FeeFeatures(), b.schedule),
	}
	add := func(step Step, ix solana.Instruction) {
		plan.Steps = append(plan.Steps, step)
		plan.Instructions = append(plan.Instructions, ix)
	}

	// 1. Комиссия сервиса
	if total := plan.Fee.Total(); total > 0 && b.recipient != nil {
		ix, err := system.NewTransferInstruction(total, payer, *b.recipient).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build fee transfer: %w", err)
		}
		plan.FeeLamports = total
		add(StepFeeTransfer, ix)
	}

	// 2. Mint-аккаунт
	rent, err := b.rent.GetMinimumBalanceForRentExemption(ctx, MintSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get rent exemption: %w", err)
	}
	plan.RentLamports = rent
	createIx, err := system.NewCreateAccountInstruction(rent, MintSize, solana.TokenProgramID, payer, mint).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build create account: %w", err)
	}
	add(StepCreateMint, createIx)

	// 3. Инициализация: payer и mint, и freeze authority
	initIx, err := splToken.NewInitializeMintInstruction(req.Decimals, payer, payer, mint, solana.SysVarRentPubkey).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize mint: %w", err)
	}
	add(StepInitializeMint, initIx)

	// 4. ATA плательщика
	ata, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive ATA: %w", err)
	}
	plan.ATA = ata
	ataIx, err := associatedtokenaccount.NewCreateInstruction(payer, payer, mint).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build create ATA: %w", err)
	}
	add(StepCreateATA, ataIx)

	// 5. Начальная эмиссия
	mintToIx, err := splToken.NewMintToInstruction(supply, mint, ata, payer, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build mint_to: %w", err)
	}
	add(StepMintTo, mintToIx)

	// 6. Метаданные
	metadataIx, err := b.metadataInstruction(plan, req, payer, mint, uri)
	if err != nil {
		return nil, err
	}
	add(StepCreateMetadata, metadataIx)

	// 7-8. Отзыв полномочий, строго после эмиссии и метаданных
	if req.RevokeMintAuthority {
		ix, err := revokeInstruction(splToken.AuthorityMintTokens, mint, payer)
		if err != nil {
			return nil, fmt.Errorf("failed to build revoke mint authority: %w", err)
		}
		add(StepRevokeMint, ix)
	}
	if req.RevokeFreezeAuthority {
		ix, err := revokeInstruction(splToken.AuthorityFreezeAccount, mint, payer)
		if err != nil {
			return nil, fmt.Errorf("failed to build revoke freeze authority: %w", err)
		}
		add(StepRevokeFreeze, ix)
	}

	b.logger.Debug("Token plan built",
		zap.String("mint", mint.String()),
		zap.String("ata", ata.String()),
		zap.Int("instructions", len(plan.Instructions)),
		zap.Uint64("fee_lamports", plan.FeeLamports),
		zap.Bool("name_truncated", plan.NameTruncated),
		zap.Bool("amount_truncated", plan.AmountTruncated))
	return plan, nil
}

func (b *Builder) metadataInstruction(plan *Plan, req Request, payer, mint solana.PublicKey, uri string) (solana.Instruction, error) {
	pda, _, err := tokenmetadata.FindMetadataAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive metadata address: %w", err)
	}
	plan.MetadataPDA = pda

	plan.Name, plan.NameTruncated = tokenmetadata.Truncate(req.Name, tokenmetadata.MaxNameLength)
	plan.Symbol, plan.SymbolTruncated = tokenmetadata.Truncate(req.Symbol, tokenmetadata.MaxSymbolLength)
	plan.Creator = b.ResolveCreator(req, payer)

	ix, err := (&tokenmetadata.CreateMetadataAccountV3Instruction{
		Data: tokenmetadata.DataV2{
			Name:   plan.Name,
			Symbol: plan.Symbol,
			URI:    uri,
			Creators: []tokenmetadata.Creator{
				{Address: plan.Creator, Share: 100},
			},
		},
		IsMutable:       !req.Immutable,
		Metadata:        pda,
		Mint:            mint,
		MintAuthority:   payer,
		Payer:           payer,
		UpdateAuthority: payer,
	}).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata instruction: %w", err)
	}
	return ix, nil
}

// ResolveCreator returns the custom creator when it is a valid key, payer otherwise.
func (b *Builder) ResolveCreator(req Request, payer solana.PublicKey) solana.PublicKey {
	if req.CustomCreator == "" {
		return payer
	}
	pk, err := solana.PublicKeyFromBase58(req.CustomCreator)
	if err != nil {
		b.logger.Warn("Invalid custom creator, using payer",
			zap.String("custom_creator", req.CustomCreator), zap.Error(err))
		return payer
	}
	return pk
}

func revokeInstruction(kind splToken.AuthorityType, mint, authority solana.PublicKey) (solana.Instruction, error) {
	// NewAuthority не задан: полномочие обнуляется
	return splToken.NewSetAuthorityInstructionBuilder().
		SetAuthorityType(kind).
		SetSubjectAccount(mint).
		SetAuthorityAccount(authority).
		ValidateAndBuild()
}
