// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/limelight-labs/limelight-core/internal/storage/models"
)

// Storage persists the bonding curve history.
type Storage interface {
	// Launches
	SaveLaunch(ctx context.Context, launch *models.Launch) error
	GetLaunch(ctx context.Context, token string) (*models.Launch, error)
	ListLaunches(ctx context.Context, limit, offset int) ([]*models.Launch, error)

	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, token string, limit, offset int) ([]*models.Trade, error)

	// Graduations
	SaveGraduation(ctx context.Context, grad *models.Graduation) error
	MarkGraduated(ctx context.Context, token string) error
	GetGraduation(ctx context.Context, token string) (*models.Graduation, error)

	RunMigrations() error
	Close() error
}
