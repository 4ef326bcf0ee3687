// internal/storage/models/trade.go
package models

import "time"

// Trade is one executed swap against a bonding pair.
type Trade struct {
	BaseModel
	Token      string    `gorm:"index;not null;type:varchar(128)"`
	Pair       string    `gorm:"not null;type:varchar(128)"`
	Trader     string    `gorm:"index;not null;type:varchar(128)"`
	Side       string    `gorm:"not null;type:varchar(10)"`
	AmountIn   string    `gorm:"not null;type:numeric(78,0)"`
	AmountOut  string    `gorm:"not null;type:numeric(78,0)"`
	Tax        string    `gorm:"not null;type:numeric(78,0)"`
	ExecutedAt time.Time `gorm:"index"`
}
