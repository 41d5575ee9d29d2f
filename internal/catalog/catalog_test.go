package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.Put(ctx, Target{
		ID:      "iss",
		Name:    "ISS (ZARYA)",
		Pair:    tle.Pair{Line1: issLine1, Line2: issLine2},
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "iss")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "ISS (ZARYA)" || !got.Enabled {
		t.Errorf("unexpected target: %+v", got)
	}
	if got.Pair.Line1 != issLine1 || got.Pair.Line2 != issLine2 {
		t.Error("element lines did not round-trip")
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestPutValidatesElements(t *testing.T) {
	s := testStore(t)
	err := s.Put(context.Background(), Target{
		ID:   "junk",
		Pair: tle.Pair{Line1: "not a tle", Line2: "still not"},
	})
	if err == nil {
		t.Error("malformed elements accepted into the catalog")
	}
}

func TestPutUpsertsExisting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := Target{ID: "iss", Name: "first", Pair: tle.Pair{Line1: issLine1, Line2: issLine2}, Enabled: true}
	if err := s.Put(ctx, base); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	base.Name = "second"
	if err := s.Put(ctx, base); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := s.Get(ctx, "iss")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "second" {
		t.Errorf("Name = %q after upsert, want second", got.Name)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List returned %d targets, want 1", len(all))
	}
}

func TestSetEnabledAndDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, Target{ID: "iss", Pair: tle.Pair{Line1: issLine1, Line2: issLine2}, Enabled: true}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.SetEnabled(ctx, "iss", false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	got, _ := s.Get(ctx, "iss")
	if got.Enabled {
		t.Error("target still enabled")
	}

	if err := s.Delete(ctx, "iss"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "iss"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "iss"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: %v, want ErrNotFound", err)
	}
	if err := s.SetEnabled(ctx, "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetEnabled on missing target: %v, want ErrNotFound", err)
	}
}
