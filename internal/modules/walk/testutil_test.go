package walk

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pawmarket/internal/types"
)

// stubPricing quotes a flat linear price without bounds enforcement beyond
// the real service's range.
type stubPricing struct{}

func (stubPricing) Quote(durationMins int) (types.Money, error) {
	if durationMins < 15 || durationMins > 120 {
		return types.Money{}, ErrBadRequest
	}
	return types.Money{Amount: int64(durationMins) * 10, Currency: "USD"}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(setupTestStore(t), stubPricing{}, nil, nil)
}

func ownerCaller(id types.ID) Caller  { return Caller{ID: id, Role: RoleOwner} }
func walkerCaller(id types.ID) Caller { return Caller{ID: id, Role: RoleWalker} }

func mustBook(t *testing.T, svc *Service, owner types.ID, walker *types.ID) types.ID {
	t.Helper()
	w, err := svc.Book(context.Background(), BookCommand{
		Caller:         ownerCaller(owner),
		PetID:          "pet1",
		PetName:        "Biscuit",
		WalkerID:       walker,
		ScheduledAt:    time.Now().Add(2 * time.Hour),
		DurationMins:   30,
		PickupLocation: "12 Elm Street",
	})
	if err != nil {
		t.Fatalf("book walk: %v", err)
	}
	return w.ID
}

func assertStatus(t *testing.T, svc *Service, id types.ID, want Status) {
	t.Helper()
	w, err := svc.Get(context.Background(), Caller{Role: RoleAdmin}, id)
	if err != nil {
		t.Fatalf("get walk: %v", err)
	}
	if w.Status != want {
		t.Fatalf("expected status %s, got %s", want, w.Status)
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("PAW_TEST_DSN")
	if dsn == "" {
		t.Skip("PAW_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE walk_state_events, walks"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
