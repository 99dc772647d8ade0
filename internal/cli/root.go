package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/keeprun/internal/backup"
	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/habit"
	"github.com/julianstephens/keeprun/internal/keyring"
	"github.com/julianstephens/keeprun/internal/logger"
	"github.com/julianstephens/keeprun/internal/settings"
	"github.com/julianstephens/keeprun/internal/storage"
	"github.com/julianstephens/keeprun/internal/storage/postgres"
	"github.com/julianstephens/keeprun/internal/storage/sqlite"
	"github.com/julianstephens/keeprun/internal/utils"
)

type Context struct {
	Store storage.Provider
	Clock utils.Clock
	// UserID is the account local commands act on.
	UserID string
	// ConfigDir holds the server config file and logs.
	ConfigDir  string
	ConfigPath string
	Debug      bool
	Out        io.Writer
}

// Stdout returns the command output writer.
func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Stdout(), args...)
}

func (c *Context) clock() utils.Clock {
	if c.Clock == nil {
		return utils.SystemClock{}
	}
	return c.Clock
}

// EnsureUser makes sure the local user row exists before user-scoped writes.
func (c *Context) EnsureUser(ctx context.Context) error {
	_, err := c.Store.EnsureUser(ctx, c.UserID, "")
	return err
}

func (c *Context) Settings() *settings.Service {
	return settings.NewService(c.Store, nil)
}

// Engine builds a habit engine over the command's store and clock.
func (c *Context) Engine(unlockAfterAbandon bool) *habit.Engine {
	return habit.NewEngine(c.Store, habit.Options{
		Clock:              c.clock(),
		Settings:           c.Settings(),
		UnlockAfterAbandon: unlockAfterAbandon,
	})
}

// SQLitePath returns the database file path, or false for server databases.
func (c *Context) SQLitePath() (string, bool) {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return "", false
	}
	return c.Store.GetConfigPath(), true
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup(ctx context.Context) {
	path, ok := c.SQLitePath()
	if !ok {
		return
	}
	mgr := backup.NewManager(path).WithClock(c.clock())
	if _, err := mgr.Create(ctx); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ErrEmbeddedCredentials is returned for command-line connection strings that carry a password.
var ErrEmbeddedCredentials = errors.New("PostgreSQL connection strings with embedded credentials are not allowed on the command line")

// OpenStore picks the storage backend. An explicit target wins, then the
// environment, then the OS keyring, then the default SQLite file.
func OpenStore(target string, getenv func(string) string) (storage.Provider, error) {
	if target != "" {
		if postgres.IsConnString(target) {
			if _, err := postgres.ValidateConnString(target); err != nil {
				if errors.Is(err, postgres.ErrEmbeddedCredentials) {
					return nil, fmt.Errorf("%w: use %s, the OS keyring or .pgpass instead", ErrEmbeddedCredentials, constants.EnvDBConnection)
				}
				return nil, err
			}
			return postgres.New(target), nil
		}
		return sqlite.NewStore(ExpandPath(target)), nil
	}

	if conn := strings.TrimSpace(getenv(constants.EnvDBConnection)); conn != "" {
		return openTrusted(conn)
	}
	conn, err := keyring.GetConnectionString()
	switch {
	case err == nil && conn != "":
		return openTrusted(conn)
	case err != nil && !errors.Is(err, keyring.ErrNotFound) && !errors.Is(err, keyring.ErrKeyringUnavailable):
		return nil, err
	}
	return sqlite.NewStore(ExpandPath(constants.DefaultConfigPath)), nil
}

// openTrusted opens a connection string from a secret source, where passwords are allowed.
func openTrusted(conn string) (storage.Provider, error) {
	if postgres.IsConnString(conn) {
		return postgres.New(conn), nil
	}
	return sqlite.NewStore(ExpandPath(conn)), nil
}
