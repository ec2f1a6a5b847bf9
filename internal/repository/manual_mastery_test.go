package repository

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mastery-tracker/internal/config"
	"mastery-tracker/internal/database"
	"mastery-tracker/internal/domain"

	"github.com/rs/zerolog"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "mastery.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("database.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRepo(t *testing.T, backupDir string) *ManualMasteryRepository {
	t.Helper()
	repo := NewManualMasteryRepository(openTestDB(t), &config.Config{BackupDir: backupDir}, zerolog.Nop())
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func TestNormalizeMastery(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{1234.9, 1234},
		{0, 0},
		{-5, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tt := range tests {
		if got := NormalizeMastery(tt.in); got != tt.want {
			t.Errorf("NormalizeMastery(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestUpsertIsCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t, "")
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, "Main#EUW", "Ahri", 1000); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	rec, err := repo.Upsert(ctx, " main#euw ", "AHRI", 2500.7)
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if rec.Mastery != 2500 {
		t.Errorf("Mastery = %d, want 2500", rec.Mastery)
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("records = %+v, want a single replaced record", all)
	}
	if all[0].Account != "main#euw" || all[0].Champion != "AHRI" {
		t.Errorf("record = %+v, want latest spelling", all[0])
	}
	if !all[0].UpdatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("UpdatedAt = %s, want %s", all[0].UpdatedAt, rec.UpdatedAt)
	}
}

func TestUpsertValidates(t *testing.T) {
	repo := newTestRepo(t, "")
	for _, tt := range []struct{ account, champion string }{{"", "Ahri"}, {"Main", " "}} {
		if _, err := repo.Upsert(context.Background(), tt.account, tt.champion, 1); !domain.IsValidation(err) {
			t.Errorf("Upsert(%q, %q) error = %v, want ValidationError", tt.account, tt.champion, err)
		}
	}
}

func TestGetAndRemove(t *testing.T) {
	repo := newTestRepo(t, "")
	ctx := context.Background()

	got, err := repo.Get(ctx, "Main", "Ahri")
	if err != nil || got != nil {
		t.Fatalf("Get() on empty store = %+v, %v; want nil, nil", got, err)
	}

	repo.Upsert(ctx, "Main", "Ahri", 10) //nolint:errcheck
	got, err = repo.Get(ctx, "MAIN", "ahri")
	if err != nil || got == nil || got.Mastery != 10 {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	removed, err := repo.Remove(ctx, "main", "AHRI")
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v; want true", removed, err)
	}
	removed, err = repo.Remove(ctx, "main", "ahri")
	if err != nil || removed {
		t.Errorf("second Remove() = %v, %v; want false", removed, err)
	}
}

func TestTotalsAndAccounts(t *testing.T) {
	repo := newTestRepo(t, "")
	ctx := context.Background()

	seed := []struct {
		account, champion string
		mastery           float64
	}{
		{"Main", "Ahri", 1000},
		{"Main", "Lux", 300},
		{"Smurf", "ahri", 500},
		{"Smurf", "Zed", 2000},
	}
	for _, s := range seed {
		if _, err := repo.Upsert(ctx, s.account, s.champion, s.mastery); err != nil {
			t.Fatal(err)
		}
	}

	totals, err := repo.TotalsByChampion(ctx)
	if err != nil {
		t.Fatalf("TotalsByChampion() error: %v", err)
	}
	want := []domain.ManualTotal{
		{Champion: "Zed", Mastery: 2000},
		{Champion: "Ahri", Mastery: 1500},
		{Champion: "Lux", Mastery: 300},
	}
	if len(totals) != len(want) {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("total %d = %+v, want %+v", i, totals[i], want[i])
		}
	}

	accounts, err := repo.Accounts(ctx)
	if err != nil {
		t.Fatalf("Accounts() error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("accounts = %+v", accounts)
	}
	if a := accounts[1]; a.Account != "Smurf" || a.Champions != 2 || a.Points != 2500 {
		t.Errorf("Smurf summary = %+v", a)
	}
	if accounts[1].UpdatedAt.Before(accounts[0].UpdatedAt) {
		t.Errorf("Smurf updated %s before Main %s", accounts[1].UpdatedAt, accounts[0].UpdatedAt)
	}

	list, err := repo.ListByAccount(ctx, "smurf")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Champion != "Zed" {
		t.Errorf("ListByAccount() = %+v, want Zed first", list)
	}
}

func TestWritesTakeBackups(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	repo := newTestRepo(t, dir)
	ctx := context.Background()

	repo.Upsert(ctx, "Main", "Ahri", 1) //nolint:errcheck
	repo.Upsert(ctx, "Main", "Lux", 1)  //nolint:errcheck
	repo.Remove(ctx, "Main", "Nobody")  //nolint:errcheck

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("backups = %d, want 2 (no backup for a no-op remove)", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "mastery-20250301-") || !strings.HasSuffix(e.Name(), ".db") {
			t.Errorf("backup name = %s", e.Name())
		}
	}
}

func TestBackupIsReadable(t *testing.T) {
	repo := newTestRepo(t, "")
	ctx := context.Background()
	repo.Upsert(ctx, "Main", "Ahri", 42) //nolint:errcheck

	path, err := repo.Backup(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}

	snap, err := database.Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer snap.Close()

	var mastery int
	if err := snap.QueryRow(`SELECT mastery FROM manual_mastery`).Scan(&mastery); err != nil {
		t.Fatal(err)
	}
	if mastery != 42 {
		t.Errorf("backup mastery = %d, want 42", mastery)
	}
}
