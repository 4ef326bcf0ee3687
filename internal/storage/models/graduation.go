// internal/storage/models/graduation.go
package models

import "time"

// Graduation is the one-time handoff of a token to the external AMM.
type Graduation struct {
	BaseModel
	Token        string    `gorm:"unique;not null;type:varchar(128)"`
	Pair         string    `gorm:"not null;type:varchar(128)"`
	TokenIndex   uint64    `gorm:"index;not null"`
	WrappedToken string    `gorm:"not null;type:varchar(128)"`
	Pool         string    `gorm:"not null;type:varchar(128)"`
	GraduatedAt  time.Time `gorm:"index"`
}
