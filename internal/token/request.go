// internal/token/request.go
package token

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rovshanmuradov/token-launcher/internal/fee"
	"github.com/rovshanmuradov/token-launcher/internal/vanity"
)

var ErrInvalidRequest = errors.New("invalid token request")

// Tags допустимые значения тегов.
var Tags = []string{"Meme", "Airdrop", "Tokenization", "NFT"}

var supplyPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Request описывает создаваемый токен. Владеет им вызывающий на время одного запуска.
type Request struct {
	Name                  string         `mapstructure:"name" json:"name" validate:"required,max=30"`
	Symbol                string         `mapstructure:"symbol" json:"symbol" validate:"required,max=10"`
	Decimals              uint8          `mapstructure:"decimals" json:"decimals" validate:"max=9"`
	Supply                string         `mapstructure:"supply" json:"supply" validate:"required,supply"`
	LogoURL               string         `mapstructure:"logo_url" json:"logo_url,omitempty" validate:"omitempty,url"`
	Description           string         `mapstructure:"description" json:"description,omitempty"`
	Tags                  []string       `mapstructure:"tags" json:"tags,omitempty" validate:"max=3,unique,dive,oneof=Meme Airdrop Tokenization NFT"`
	RevokeMintAuthority   bool           `mapstructure:"revoke_mint_authority" json:"revoke_mint_authority"`
	RevokeFreezeAuthority bool           `mapstructure:"revoke_freeze_authority" json:"revoke_freeze_authority"`
	Immutable             bool           `mapstructure:"immutable" json:"immutable"`
	CustomCreator         string         `mapstructure:"custom_creator" json:"custom_creator,omitempty"`
	Vanity                vanity.Options `mapstructure:"vanity" json:"vanity"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("supply", func(fl validator.FieldLevel) bool {
			return supplyPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Normalize возвращает копию запроса с обрезанными пробелами и символом в верхнем регистре.
func (r Request) Normalize() Request {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Supply = strings.TrimSpace(r.Supply)
	r.LogoURL = strings.TrimSpace(r.LogoURL)
	r.CustomCreator = strings.TrimSpace(r.CustomCreator)
	return r
}

// Validate проверяет поля формы. Ошибки оборачивают ErrInvalidRequest.
func (r Request) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// FeeFeatures returns the optional capabilities the request selects.
func (r Request) FeeFeatures() fee.Features {
	return fee.Features{
		RevokeMint:    r.RevokeMintAuthority,
		RevokeFreeze:  r.RevokeFreezeAuthority,
		CustomCreator: strings.TrimSpace(r.CustomCreator) != "",
		Vanity:        r.Vanity.Enabled(),
	}
}
