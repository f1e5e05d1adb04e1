// ABOUTME: Todo service implementing ownership-scoped item operations
// ABOUTME: The caller's identity is an explicit argument to every call

package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/todo-list/internal/store"
)

// Service enforces validation and ownership around an ItemStore.
type Service struct {
	items  store.ItemStore
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to stamp items.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service backed by items.
func NewService(items store.ItemStore, opts ...Option) *Service {
	s := &Service{
		items:  items,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "todo")
	return s
}

// ListOpen returns the owner's open items, most recently modified first.
func (s *Service) ListOpen(ctx context.Context, owner string) ([]*store.Item, error) {
	items, err := s.items.ListItems(ctx, owner, false)
	if err != nil {
		return nil, fmt.Errorf("listing open items: %w", err)
	}
	return items, nil
}

// ListCompleted returns the owner's completed items, most recently modified first.
func (s *Service) ListCompleted(ctx context.Context, owner string) ([]*store.Item, error) {
	items, err := s.items.ListItems(ctx, owner, true)
	if err != nil {
		return nil, fmt.Errorf("listing completed items: %w", err)
	}
	return items, nil
}

// Get returns one of the owner's items, or ErrNotFound.
func (s *Service) Get(ctx context.Context, owner string, id int64) (*store.Item, error) {
	item, err := s.items.GetItem(ctx, owner, id)
	if err != nil {
		return nil, mapStoreError(err, "getting item")
	}
	return item, nil
}

// Create validates in and stores a new open item for owner.
func (s *Service) Create(ctx context.Context, owner string, in Input) (*store.Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.normalize()

	item := &store.Item{
		OwnerID:      owner,
		Title:        in.Title,
		Description:  in.Description,
		LastModified: s.now().UTC(),
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Debug("item created", "id", item.ID, "owner", owner)
	return item, nil
}

// Update replaces the title and description of one of the owner's items.
// On validation failure the stored item is left unchanged.
func (s *Service) Update(ctx context.Context, owner string, id int64, in Input) (*store.Item, error) {
	item, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.normalize()

	item.Title = in.Title
	item.Description = in.Description
	item.LastModified = s.now().UTC()
	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, mapStoreError(err, "updating item")
	}

	s.logger.Debug("item updated", "id", id, "owner", owner)
	return item, nil
}

// Complete marks one of the owner's items as completed now. Completing an
// already completed item overwrites its completion time.
func (s *Service) Complete(ctx context.Context, owner string, id int64) (*store.Item, error) {
	if err := s.items.CompleteItem(ctx, owner, id, s.now().UTC()); err != nil {
		return nil, mapStoreError(err, "completing item")
	}

	s.logger.Debug("item completed", "id", id, "owner", owner)
	return s.Get(ctx, owner, id)
}

// Delete permanently removes one of the owner's items.
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	if err := s.items.DeleteItem(ctx, owner, id); err != nil {
		return mapStoreError(err, "deleting item")
	}

	s.logger.Debug("item deleted", "id", id, "owner", owner)
	return nil
}

func mapStoreError(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
