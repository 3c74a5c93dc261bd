package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, rec *model.OrderRecord) error
	FindByOrderID(ctx context.Context, orderID string) (*model.OrderRecord, error)
	ListByClient(ctx context.Context, clientID string) ([]model.OrderRecord, error)
	SetDB(db *gorm.DB)
}

type orderRepository struct {
	mu sync.RWMutex
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) conn() (*gorm.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	return r.db, nil
}

func (r *orderRepository) Create(ctx context.Context, rec *model.OrderRecord) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(rec).Error
}

func (r *orderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.OrderRecord, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	var rec model.OrderRecord
	if err := db.WithContext(ctx).Where("order_id = ?", orderID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *orderRepository) ListByClient(ctx context.Context, clientID string) ([]model.OrderRecord, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	var list []model.OrderRecord
	if err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) SetDB(db *gorm.DB) {
	r.mu.Lock()
	r.db = db
	r.mu.Unlock()
}

type MemoryOrderRepository struct {
	mu      sync.RWMutex
	records []model.OrderRecord
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{}
}

func (r *MemoryOrderRepository) Create(_ context.Context, rec *model.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = uint64(len(r.records) + 1)
	r.records = append(r.records, *rec)
	return nil
}

func (r *MemoryOrderRepository) FindByOrderID(_ context.Context, orderID string) (*model.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.records {
		if r.records[i].OrderID == orderID {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryOrderRepository) ListByClient(_ context.Context, clientID string) ([]model.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []model.OrderRecord
	for _, rec := range r.records {
		if rec.ClientID == clientID {
			list = append(list, rec)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (r *MemoryOrderRepository) SetDB(*gorm.DB) {}
