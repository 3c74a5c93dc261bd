package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDBNotReady = errors.New("database not initialized")
	ErrNotFound   = errors.New("not found")
)

// SnapshotRepository stores opaque JSON state under a storage key.
type SnapshotRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	SetDB(db *gorm.DB)
}

type snapshotRepository struct {
	mu sync.RWMutex
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) conn() (*gorm.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	return r.db, nil
}

func (r *snapshotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := db.WithContext(ctx).Where("storage_key = ?", key).First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(snap.Payload), nil
}

func (r *snapshotRepository) Put(ctx context.Context, key string, payload []byte) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	snap := model.Snapshot{StorageKey: key, Payload: string(payload)}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "storage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&snap).Error
}

func (r *snapshotRepository) Delete(ctx context.Context, key string) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Where("storage_key = ?", key).Delete(&model.Snapshot{}).Error
}

func (r *snapshotRepository) SetDB(db *gorm.DB) {
	r.mu.Lock()
	r.db = db
	r.mu.Unlock()
}

// MemorySnapshotRepository keeps snapshots in process memory. It backs tests
// and deployments without a database.
type MemorySnapshotRepository struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{items: make(map[string][]byte)}
}

func (r *MemorySnapshotRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (r *MemorySnapshotRepository) Put(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = append([]byte(nil), payload...)
	return nil
}

func (r *MemorySnapshotRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func (r *MemorySnapshotRepository) SetDB(*gorm.DB) {}
