// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/token-launcher/internal/storage"
	"github.com/rovshanmuradov/token-launcher/internal/storage/models"
)

// Store хранит историю в памяти процесса. Используется, когда postgres_url не задан.
type Store struct {
	mu       sync.RWMutex
	launches []*models.Launch
	nextID   uint
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) SaveLaunch(_ context.Context, launch *models.Launch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.launches {
		if l.LaunchID == launch.LaunchID {
			return fmt.Errorf("launch %s already exists", launch.LaunchID)
		}
	}
	s.nextID++
	cp := *launch
	cp.ID = s.nextID
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.launches = append(s.launches, &cp)

	launch.ID = cp.ID
	launch.CreatedAt = cp.CreatedAt
	launch.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *Store) GetLaunch(_ context.Context, mint string) (*models.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.launches) - 1; i >= 0; i-- {
		if s.launches[i].Mint == mint {
			cp := *s.launches[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListLaunches(_ context.Context, payer string, limit, offset int) ([]*models.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Launch
	for _, l := range s.launches {
		if l.Payer == payer {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// RunMigrations ничего не делает: схемы нет.
func (s *Store) RunMigrations() error {
	return nil
}
