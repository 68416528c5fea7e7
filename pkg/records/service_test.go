package records

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/itemdesk/itemdesk/pkg/stores"
	"github.com/itemdesk/itemdesk/pkg/telemetry"
)

// setupTestService creates a service over an in-memory SQLite store.
func setupTestService(t *testing.T) *Service {
	t.Helper()

	store, err := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewService(store, WithTelemetry(telemetry.Nop()))
}

// failingStore fails every call with the same diagnostic.
type failingStore struct {
	err error
}

func (f failingStore) InsertItem(context.Context, string, string) (int64, error) { return 0, f.err }
func (f failingStore) GetItem(context.Context, int64) (*stores.Item, error)     { return nil, f.err }
func (f failingStore) ListItems(context.Context) ([]*stores.Item, error)        { return nil, f.err }
func (f failingStore) UpdateItem(context.Context, int64, string, string) (int64, error) {
	return 0, f.err
}
func (f failingStore) DeleteItem(context.Context, int64) (int64, error) { return 0, f.err }

func TestAliceScenario(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, "Alice", "Engineer")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := Record{ID: 1, Name: "Alice", Description: "Engineer"}
	if rec != want {
		t.Fatalf("Create returned %+v, want %+v", rec, want)
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 || all[0] != want {
		t.Fatalf("ListAll returned %+v", all)
	}

	changed, err := svc.Update(ctx, 1, "Alice", "Senior Engineer")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if changed != 1 {
		t.Errorf("Update change count = %d, want 1", changed)
	}

	changed, err = svc.Delete(ctx, 1)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if changed != 1 {
		t.Errorf("Delete change count = %d, want 1", changed)
	}

	all, err = svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty store, got %+v", all)
	}
}

func TestCreateAssignsFreshIDs(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	inputs := []struct{ name, description string }{
		{"Alice", "Engineer"},
		{"Bob", "Engineer"},
		{"", ""},
		{"名前", "description, with \"quotes\"\nand a newline"},
	}

	seen := map[int64]bool{}
	for _, in := range inputs {
		rec, err := svc.Create(ctx, in.name, in.description)
		if err != nil {
			t.Fatalf("Create(%q): %v", in.name, err)
		}
		if seen[rec.ID] {
			t.Fatalf("id %d reused", rec.ID)
		}
		seen[rec.ID] = true

		all, err := svc.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll: %v", err)
		}
		matches := 0
		for _, r := range all {
			if r.ID == rec.ID {
				matches++
				if r.Name != in.name || r.Description != in.description {
					t.Errorf("stored %+v, want %q/%q", r, in.name, in.description)
				}
			}
		}
		if matches != 1 {
			t.Errorf("expected exactly one record with id %d, got %d", rec.ID, matches)
		}
	}
}

func TestListAllEmpty(t *testing.T) {
	svc := setupTestService(t)

	all, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll on empty store returned error: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", all)
	}
}

func TestUpdateMissingIDLeavesStoreUnchanged(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	orig, _ := svc.Create(ctx, "keep", "unchanged")

	changed, err := svc.Update(ctx, orig.ID+100, "x", "y")
	if err != nil {
		t.Fatalf("Update of missing id returned error: %v", err)
	}
	if changed != 0 {
		t.Errorf("change count = %d, want 0", changed)
	}

	all, _ := svc.ListAll(ctx)
	if len(all) != 1 || all[0] != orig {
		t.Errorf("store changed: %+v", all)
	}
}

func TestDeleteIsIdempotentInEffect(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	if changed, err := svc.Delete(ctx, 99); err != nil || changed != 0 {
		t.Fatalf("Delete(missing) = %d, %v; want 0, nil", changed, err)
	}

	rec, _ := svc.Create(ctx, "gone", "soon")

	first, err := svc.Delete(ctx, rec.ID)
	if err != nil || first != 1 {
		t.Fatalf("first Delete = %d, %v; want 1, nil", first, err)
	}
	second, err := svc.Delete(ctx, rec.ID)
	if err != nil || second != 0 {
		t.Fatalf("second Delete = %d, %v; want 0, nil", second, err)
	}
}

func TestGet(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	rec, _ := svc.Create(ctx, "Alice", "Engineer")

	got, found, err := svc.Get(ctx, rec.ID)
	if err != nil || !found || got != rec {
		t.Fatalf("Get = %+v, %v, %v", got, found, err)
	}

	_, found, err = svc.Get(ctx, rec.ID+1)
	if err != nil {
		t.Fatalf("Get(missing) returned error: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestStoreErrorsCarryDiagnostic(t *testing.T) {
	diag := errors.New("database is locked")
	svc := NewService(failingStore{err: diag})
	ctx := context.Background()

	checks := []struct {
		op  string
		err error
	}{}

	_, err := svc.Create(ctx, "a", "b")
	checks = append(checks, struct {
		op  string
		err error
	}{"create", err})
	_, err = svc.ListAll(ctx)
	checks = append(checks, struct {
		op  string
		err error
	}{"list", err})
	_, _, err = svc.Get(ctx, 1)
	checks = append(checks, struct {
		op  string
		err error
	}{"get", err})
	_, err = svc.Update(ctx, 1, "a", "b")
	checks = append(checks, struct {
		op  string
		err error
	}{"update", err})
	_, err = svc.Delete(ctx, 1)
	checks = append(checks, struct {
		op  string
		err error
	}{"delete", err})

	for _, c := range checks {
		if !IsStoreError(c.err) {
			t.Errorf("%s: expected store error, got %v", c.op, c.err)
			continue
		}
		if !errors.Is(c.err, diag) {
			t.Errorf("%s: expected wrapped diagnostic, got %v", c.op, c.err)
		}
		var e *Error
		errors.As(c.err, &e)
		if e.Op != c.op {
			t.Errorf("%s: op = %q", c.op, e.Op)
		}
		if !strings.Contains(e.Error(), "database is locked") {
			t.Errorf("%s: message lost: %q", c.op, e.Error())
		}
	}
}

func TestServiceWithoutTelemetry(t *testing.T) {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	svc := NewService(store)
	if _, err := svc.Create(ctx, "plain", "service"); err != nil {
		t.Fatalf("Create: %v", err)
	}
}
