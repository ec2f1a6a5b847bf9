package repository

import (
	"context"
	"testing"

	"mastery-tracker/internal/domain"

	"github.com/rs/zerolog"
)

func TestStatusDefaultsToIdle(t *testing.T) {
	repo := NewStatusRepository(openTestDB(t), zerolog.Nop())

	s, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if s.Status != StatusIdle || s.UpdatedAt != nil || len(s.Meta) != 0 {
		t.Errorf("status = %+v, want idle without timestamp", s)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	repo := NewStatusRepository(openTestDB(t), zerolog.Nop())
	ctx := context.Background()

	if _, err := repo.Set(ctx, "running", map[string]string{"job": "export"}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, err := repo.Set(ctx, "idle", nil); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	s, err := repo.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != "idle" || len(s.Meta) != 0 || s.UpdatedAt == nil {
		t.Errorf("status = %+v", s)
	}

	if _, err := repo.Set(ctx, "", nil); !domain.IsValidation(err) {
		t.Errorf("Set(\"\") error = %v, want ValidationError", err)
	}
}
