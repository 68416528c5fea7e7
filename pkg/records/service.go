// Package records is the boundary between callers and the item store. Every
// operation performs exactly one read or one durable write and surfaces store
// failures as *Error values of kind KindStore.
package records

import (
	"context"
	"errors"

	"github.com/itemdesk/itemdesk/pkg/stores"
	"github.com/itemdesk/itemdesk/pkg/telemetry"
)

// Record is one row of the managed table.
type Record = stores.Item

// ItemStore is the subset of stores.Store the service needs.
type ItemStore interface {
	InsertItem(ctx context.Context, name, description string) (int64, error)
	GetItem(ctx context.Context, id int64) (*stores.Item, error)
	ListItems(ctx context.Context) ([]*stores.Item, error)
	UpdateItem(ctx context.Context, id int64, name, description string) (int64, error)
	DeleteItem(ctx context.Context, id int64) (int64, error)
}

// Service mediates between callers and the item store.
type Service struct {
	store ItemStore
	tel   *telemetry.Telemetry
}

// Option configures a Service.
type Option func(*Service)

// WithTelemetry instruments every operation with a span, a timer and a
// log line.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Service) {
		s.tel = tel
	}
}

// NewService creates a service over an opened store handle.
func NewService(store ItemStore, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new record and returns it with the id the store assigned.
func (s *Service) Create(ctx context.Context, name, description string) (rec Record, err error) {
	op := s.tel.StartOperation(ctx, "records.create")
	defer func() { op.End(err) }()

	id, err := s.store.InsertItem(op.Ctx, name, description)
	if err != nil {
		return Record{}, NewStoreError("create", err)
	}

	op.Logger.WithItemID(id).Debug("item created")
	return Record{ID: id, Name: name, Description: description}, nil
}

// ListAll returns every record in the store. An empty table yields an empty
// slice, not an error.
func (s *Service) ListAll(ctx context.Context) (recs []Record, err error) {
	op := s.tel.StartOperation(ctx, "records.list")
	defer func() { op.End(err) }()

	items, err := s.store.ListItems(op.Ctx)
	if err != nil {
		return nil, NewStoreError("list", err)
	}

	recs = make([]Record, 0, len(items))
	for _, item := range items {
		recs = append(recs, *item)
	}
	return recs, nil
}

// Get returns the record with the given id. A missing id reports false with a
// nil error.
func (s *Service) Get(ctx context.Context, id int64) (rec Record, found bool, err error) {
	op := s.tel.StartOperation(ctx, "records.get", telemetry.AttrItemID.Int64(id))
	defer func() { op.End(err) }()

	item, err := s.store.GetItem(op.Ctx, id)
	if errors.Is(err, stores.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, NewStoreError("get", err)
	}
	return *item, true, nil
}

// Update replaces name and description of the record with the given id and
// returns the change count: 1 on success, 0 when no such id exists.
func (s *Service) Update(ctx context.Context, id int64, name, description string) (changed int64, err error) {
	op := s.tel.StartOperation(ctx, "records.update", telemetry.AttrItemID.Int64(id))
	defer func() { op.End(err) }()

	changed, err = s.store.UpdateItem(op.Ctx, id, name, description)
	if err != nil {
		return 0, NewStoreError("update", err)
	}
	return changed, nil
}

// Delete removes the record with the given id and returns the change count.
func (s *Service) Delete(ctx context.Context, id int64) (changed int64, err error) {
	op := s.tel.StartOperation(ctx, "records.delete", telemetry.AttrItemID.Int64(id))
	defer func() { op.End(err) }()

	changed, err = s.store.DeleteItem(op.Ctx, id)
	if err != nil {
		return 0, NewStoreError("delete", err)
	}
	return changed, nil
}
