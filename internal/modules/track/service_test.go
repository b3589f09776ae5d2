package track

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pawmarket/internal/modules/walk"
	"pawmarket/internal/types"
)

type stubPricing struct{}

func (stubPricing) Quote(durationMins int) (types.Money, error) {
	return types.Money{Amount: int64(durationMins) * 10, Currency: "USD"}, nil
}

// testEnv wires the walk service (to drive a walk into a given status) and
// the tracking service over the same database.
type testEnv struct {
	walks *walk.Service
	track *Service
}

func setupTestEnv(t *testing.T) *testEnv {
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

	return &testEnv{
		walks: walk.NewService(walk.NewStore(db), stubPricing{}, nil, nil),
		track: NewService(NewStore(db)),
	}
}

// startedWalk books, accepts, and starts a walk for walker w1, returning its id.
func (e *testEnv) startedWalk(t *testing.T, owner, walker types.ID) types.ID {
	t.Helper()
	ctx := context.Background()
	w, err := e.walks.Book(ctx, walk.BookCommand{
		Caller:       walk.Caller{ID: owner, Role: walk.RoleOwner},
		PetID:        "pet1",
		PetName:      "Biscuit",
		WalkerID:     &walker,
		ScheduledAt:  time.Now().Add(time.Hour),
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	wc := walk.Caller{ID: walker, Role: walk.RoleWalker}
	if err := e.walks.Accept(ctx, walk.AcceptCommand{Caller: wc, WalkID: w.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := e.walks.Start(ctx, walk.StartCommand{Caller: wc, WalkID: w.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}
	return w.ID
}

func TestIngestAccumulates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	id := env.startedWalk(t, "o1", "w1")
	wc := walk.Caller{ID: "w1", Role: walk.RoleWalker}

	first, err := env.track.Ingest(ctx, IngestCommand{Caller: wc, WalkID: id, Lat: 40.7128, Lng: -74.0060})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.TotalDistanceKm != 0 {
		t.Errorf("first report should contribute no distance, got %v", first.TotalDistanceKm)
	}
	if first.RouteLen != 1 {
		t.Errorf("route length = %d, want 1", first.RouteLen)
	}

	second, err := env.track.Ingest(ctx, IngestCommand{Caller: wc, WalkID: id, Lat: 40.71325, Lng: -74.0060})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.TotalDistanceKm <= 0 {
		t.Errorf("expected accumulated distance, got %v", second.TotalDistanceKm)
	}
	if second.RouteLen != 2 {
		t.Errorf("route length = %d, want 2", second.RouteLen)
	}

	loc, err := env.track.Read(ctx, walk.Caller{ID: "o1", Role: walk.RoleOwner}, id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if loc.CurrentLocation == nil {
		t.Fatal("expected a current location")
	}
	if loc.CurrentLocation.Lat != 40.71325 {
		t.Errorf("current lat = %v, want 40.71325", loc.CurrentLocation.Lat)
	}
	if len(loc.Route) != 2 {
		t.Errorf("stored route length = %d, want 2", len(loc.Route))
	}
	if loc.TotalDistanceKm != second.TotalDistanceKm {
		t.Errorf("stored distance %v != returned %v", loc.TotalDistanceKm, second.TotalDistanceKm)
	}
	if loc.ElapsedSeconds < 0 {
		t.Errorf("elapsed seconds = %d", loc.ElapsedSeconds)
	}
}

func TestIngestByWrongWalkerForbidden(t *testing.T) {
	env := setupTestEnv(t)
	id := env.startedWalk(t, "o1", "w1")

	_, err := env.track.Ingest(context.Background(), IngestCommand{
		Caller: walk.Caller{ID: "intruder", Role: walk.RoleWalker},
		WalkID: id, Lat: 40.7, Lng: -74.0,
	})
	if !errors.Is(err, walk.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestIngestOutsideInProgress(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	id := env.startedWalk(t, "o1", "w1")
	wc := walk.Caller{ID: "w1", Role: walk.RoleWalker}

	if err := env.walks.Complete(ctx, walk.CompleteCommand{Caller: wc, WalkID: id}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := env.track.Ingest(ctx, IngestCommand{Caller: wc, WalkID: id, Lat: 40.7, Lng: -74.0})
	var stateErr *walk.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if stateErr.Current != walk.StatusCompleted {
		t.Errorf("conflict should cite completed, got %s", stateErr.Current)
	}
}

func TestReadByStrangerForbidden(t *testing.T) {
	env := setupTestEnv(t)
	id := env.startedWalk(t, "o1", "w1")

	_, err := env.track.Read(context.Background(), walk.Caller{ID: "o2", Role: walk.RoleOwner}, id)
	if !errors.Is(err, walk.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestReadUnknownWalk(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.track.Read(context.Background(), walk.Caller{Role: walk.RoleAdmin}, "missing")
	if !errors.Is(err, walk.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
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
