package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

const (
	CartStorageKey         = "fragrance-cart"
	ConversationStorageKey = "fragrance-chat-context"
)

// CartStorage is the persistence port of one session's cart.
type CartStorage interface {
	Load(ctx context.Context) (*model.CartState, error)
	Save(ctx context.Context, st model.CartState) error
}

// ConversationStorage is the persistence port of one session's conversation context.
type ConversationStorage interface {
	Load(ctx context.Context) (*model.ConversationContext, error)
	Save(ctx context.Context, cc model.ConversationContext) error
	Clear(ctx context.Context) error
}

type jsonStorage[T any] struct {
	repo SnapshotRepository
	key  string
}

func (s *jsonStorage[T]) Load(ctx context.Context) (*T, error) {
	b, err := s.repo.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return &v, nil
}

func (s *jsonStorage[T]) Save(ctx context.Context, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	return s.repo.Put(ctx, s.key, b)
}

func (s *jsonStorage[T]) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.key)
}

// NewCartStorage binds the cart storage key of clientID. Load returns nil
// without error when nothing was stored yet.
func NewCartStorage(repo SnapshotRepository, clientID string) CartStorage {
	return &jsonStorage[model.CartState]{repo: repo, key: CartStorageKey + ":" + clientID}
}

// NewConversationStorage binds the session-scoped conversation key of clientID.
func NewConversationStorage(repo SnapshotRepository, clientID string) ConversationStorage {
	return &jsonStorage[model.ConversationContext]{repo: repo, key: ConversationStorageKey + ":" + clientID}
}
