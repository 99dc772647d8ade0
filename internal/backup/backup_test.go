package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/storage/sqlite"
	"github.com/julianstephens/keeprun/internal/utils"
)

// setupTestDB creates an initialized keeprun database holding one user.
func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "keeprun.db")

	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if _, err := store.EnsureUser(context.Background(), "u1", "first@example.com"); err != nil {
		t.Fatalf("EnsureUser() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	return dbPath
}

func userEmail(t *testing.T, dbPath string) string {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	defer store.Close()
	u, err := store.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	return u.Email
}

func setEmail(t *testing.T, dbPath, email string) {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	defer store.Close()
	if _, err := store.EnsureUser(context.Background(), "u1", email); err != nil {
		t.Fatalf("EnsureUser() failed: %v", err)
	}
}

func newTestManager(dbPath string) (*Manager, *utils.FixedClock) {
	clock := utils.NewFixedClock(time.Date(2024, 3, 10, 8, 30, 0, 0, time.Local))
	return NewManager(dbPath).WithClock(clock), clock
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr, _ := newTestManager(dbPath)
	ctx := context.Background()

	info, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if info.Name != "keeprun-20240310-083000.db" {
		t.Errorf("Name = %s", info.Name)
	}
	if info.Size == 0 {
		t.Error("backup size is 0")
	}
	if err := Verify(ctx, info.Path); err != nil {
		t.Errorf("Verify() failed on fresh backup: %v", err)
	}
	if userEmail(t, info.Path) != "first@example.com" {
		t.Error("backup does not contain the user row")
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr, _ := newTestManager(dbPath)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		info, err := mgr.Create(ctx)
		if err != nil {
			t.Fatalf("Create() #%d failed: %v", i, err)
		}
		if seen[info.Name] {
			t.Errorf("duplicate backup name %s", info.Name)
		}
		seen[info.Name] = true
	}
	if !seen["keeprun-20240310-083000-2.db"] {
		t.Errorf("expected counter suffix, got %v", seen)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 3 {
		t.Errorf("List() returned %d backups, want 3", len(backups))
	}
}

func TestBackupRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr, clock := newTestManager(dbPath)
	ctx := context.Background()

	for i := 0; i < constants.MaxBackups+5; i++ {
		if _, err := mgr.Create(ctx); err != nil {
			t.Fatalf("Create() #%d failed: %v", i, err)
		}
		clock.Advance(time.Hour)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Fatalf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups are not sorted newest first at %d", i)
		}
	}
	// The five oldest are gone
	oldest := time.Date(2024, 3, 10, 8+5, 30, 0, 0, time.Local)
	if !backups[len(backups)-1].Timestamp.Equal(oldest) {
		t.Errorf("oldest kept backup = %v, want %v", backups[len(backups)-1].Timestamp, oldest)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr, _ := newTestManager(dbPath)

	if backups, err := mgr.List(); err != nil || len(backups) != 0 {
		t.Fatalf("List() on missing dir = %v, %v", backups, err)
	}

	if err := os.MkdirAll(mgr.BackupDir(), 0700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "keeprun-yesterday.db", "notes-20240101-1200.db"} {
		if err := os.WriteFile(filepath.Join(mgr.BackupDir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if backups, err := mgr.List(); err != nil || len(backups) != 0 {
		t.Errorf("List() = %v, %v; want no backups", backups, err)
	}
}

func TestRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr, clock := newTestManager(dbPath)
	ctx := context.Background()

	info, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	setEmail(t, dbPath, "second@example.com")
	clock.Advance(time.Minute)

	previous, err := mgr.Restore(ctx, mgr.Resolve(info.Name))
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if got := userEmail(t, dbPath); got != "first@example.com" {
		t.Errorf("email after restore = %q", got)
	}

	if previous == nil {
		t.Fatal("expected a pre-restore backup")
	}
	if got := userEmail(t, previous.Path); got != "second@example.com" {
		t.Errorf("pre-restore backup email = %q", got)
	}
	if _, err := os.Stat(dbPath + ".restore.tmp"); !os.IsNotExist(err) {
		t.Error("temporary restore file left behind")
	}
}

func TestRestoreRejectsInvalidBackups(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr, _ := newTestManager(dbPath)
	ctx := context.Background()

	if _, err := mgr.Restore(ctx, filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("expected error for missing backup")
	}

	corrupt := filepath.Join(t.TempDir(), "corrupt.db")
	if err := os.WriteFile(corrupt, []byte("this is not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(ctx, corrupt); err == nil {
		t.Error("expected error for corrupted backup")
	}

	if got := userEmail(t, dbPath); got != "first@example.com" {
		t.Errorf("database changed after failed restore: %q", got)
	}
}

func TestBackupWithNoDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "absent.db"))
	if _, err := mgr.Create(context.Background()); err == nil {
		t.Error("expected error when database does not exist")
	}
}

func TestResolve(t *testing.T) {
	mgr := NewManager("/data/keeprun.db")
	if got := mgr.Resolve("keeprun-20240310-083000.db"); got != filepath.Join("/data", "backups", "keeprun-20240310-083000.db") {
		t.Errorf("Resolve(name) = %s", got)
	}
	if got := mgr.Resolve("/tmp/x.db"); got != "/tmp/x.db" {
		t.Errorf("Resolve(path) = %s", got)
	}
}
