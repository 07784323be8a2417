// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/token-launcher/internal/storage/models"
)

var ErrNotFound = errors.New("launch not found")

// Storage определяет интерфейс для работы с историей запусков
type Storage interface {
	SaveLaunch(ctx context.Context, launch *models.Launch) error
	// GetLaunch ищет запуск по адресу минта.
	GetLaunch(ctx context.Context, mint string) (*models.Launch, error)
	// ListLaunches возвращает запуски плательщика, новые первыми.
	ListLaunches(ctx context.Context, payer string, limit, offset int) ([]*models.Launch, error)

	RunMigrations() error
}
