// internal/storage/models/launch.go
package models

import "time"

const (
	LaunchConfirmed = "confirmed"
	LaunchFailed    = "failed"
)

// Launch описывает одну попытку создания токена. Приватный ключ минта не хранится.
type Launch struct {
	BaseModel
	LaunchID         string     `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Cluster          string     `gorm:"not null;type:varchar(16)"`
	Payer            string     `gorm:"index;not null;type:varchar(44)"`
	Mint             string     `gorm:"index;not null;type:varchar(44)"`
	ATA              string     `gorm:"type:varchar(44)"`
	MetadataAddress  string     `gorm:"type:varchar(44)"`
	Signature        string     `gorm:"type:varchar(88)"`
	Name             string     `gorm:"not null;type:varchar(64)"`
	Symbol           string     `gorm:"not null;type:varchar(16)"`
	Decimals         uint8      `gorm:"not null"`
	Supply           string     `gorm:"not null;type:varchar(64)"`
	Amount           string     `gorm:"type:numeric(20,0)"`
	MetadataURI      string     `gorm:"type:varchar(200)"`
	MetadataSource   string     `gorm:"type:varchar(16)"`
	FeeLamports      uint64     `gorm:"type:numeric(20,0);not null;default:0"`
	RevokeMint       bool       `gorm:"not null;default:false"`
	RevokeFreeze     bool       `gorm:"not null;default:false"`
	Immutable        bool       `gorm:"not null;default:false"`
	VanityMatched    bool       `gorm:"not null;default:false"`
	VanityIterations int        `gorm:"not null;default:0"`
	Attempts         int        `gorm:"not null;default:0"`
	Status           string     `gorm:"index;not null;type:varchar(20)"`
	ErrorMessage     string     `gorm:"type:text"`
	ConfirmedAt      *time.Time `gorm:"index"`
}
