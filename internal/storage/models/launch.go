// internal/storage/models/launch.go
package models

import "time"

// Launch is one artist token launched on the bonding curve. Amounts are
// stored as decimal strings of the 18-decimal integer values.
type Launch struct {
	BaseModel
	Token          string `gorm:"unique;not null;type:varchar(128)"`
	Pair           string `gorm:"not null;type:varchar(128)"`
	TokenIndex     uint64 `gorm:"uniqueIndex;not null"`
	Creator        string `gorm:"index;not null;type:varchar(128)"`
	Name           string `gorm:"not null;type:varchar(100)"`
	Ticker         string `gorm:"not null;type:varchar(20)"`
	Hometown       string `gorm:"type:varchar(100)"`
	PrimaryGenre   string `gorm:"type:varchar(50)"`
	SecondaryGenre string `gorm:"type:varchar(50)"`
	SpotifyURL     string `gorm:"type:text"`
	AppleMusicURL  string `gorm:"type:text"`
	InstagramURL   string `gorm:"type:text"`
	TiktokURL      string `gorm:"type:text"`
	Graduated      bool   `gorm:"index;default:false"`
	LaunchedAt     time.Time
}
