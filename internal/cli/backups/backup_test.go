package backups

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/storage/sqlite"
	"github.com/julianstephens/keeprun/internal/utils"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer, *utils.FixedClock) {
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "keeprun.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	clock := utils.NewFixedClock(time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC))
	out := &bytes.Buffer{}
	return &cli.Context{Store: store, Clock: clock, UserID: "local", Out: out}, out, clock
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out, clock := setupTestDB(t)

	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "keeprun-20240601-093000.db")

	clock.Advance(time.Hour)
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))

	out.Reset()
	require.NoError(t, (&BackupListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "2 total")
	assert.Contains(t, out.String(), "keeprun-20240601-103000.db")
}

func TestBackupListEmpty(t *testing.T) {
	ctx, out, _ := setupTestDB(t)

	require.NoError(t, (&BackupListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "No backups found.")
}

func TestBackupRestore(t *testing.T) {
	ctx, out, clock := setupTestDB(t)
	bg := context.Background()

	_, err := ctx.Store.EnsureUser(bg, "before", "")
	require.NoError(t, err)
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))

	_, err = ctx.Store.EnsureUser(bg, "after", "")
	require.NoError(t, err)
	clock.Advance(time.Minute)

	out.Reset()
	require.NoError(t, (&BackupRestoreCmd{BackupFile: "keeprun-20240601-093000.db", Yes: true}).Run(ctx))
	assert.Contains(t, out.String(), "restored successfully")
	assert.Contains(t, out.String(), "keeprun-20240601-093100.db")

	restored := sqlite.NewStore(ctx.Store.GetConfigPath())
	require.NoError(t, restored.Load())
	defer restored.Close()

	_, err = restored.GetUser(bg, "before")
	assert.NoError(t, err)
	_, err = restored.GetUser(bg, "after")
	assert.Error(t, err)
}

func TestBackupRestoreMissing(t *testing.T) {
	ctx, _, _ := setupTestDB(t)

	err := (&BackupRestoreCmd{BackupFile: "keeprun-19990101-000000.db", Yes: true}).Run(ctx)
	assert.Error(t, err)
}
