package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/cli/backups"
	"github.com/julianstephens/keeprun/internal/cli/habits"
	"github.com/julianstephens/keeprun/internal/cli/settings"
	"github.com/julianstephens/keeprun/internal/cli/system"
	"github.com/julianstephens/keeprun/internal/config"
	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	DB      string `help:"SQLite file path or PostgreSQL connection string. Credentials must NOT be embedded; use KEEPRUN_DB_CONNECTION, .pgpass or the OS keyring instead." type:"string"`
	Config  string `help:"Server config file." type:"path" default:"~/.config/keeprun/config.yaml"`
	User    string `help:"User id for local commands." default:"local"`
	Debug   bool   `help:"Enable debug logging."`

	Init     system.InitCmd       `cmd:"" help:"Initialize keeprun storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Serve    system.ServeCmd      `cmd:"" help:"Run the HTTP API server."`
	Cleanup  system.CleanupCmd    `cmd:"" help:"Purge old soft-deleted planner items."`
	Token    system.TokenCmd      `cmd:"" help:"Issue a bearer token for a user."`
	Secret   system.SecretCmd     `cmd:"" help:"Manage secrets in the OS keyring."`
	Habit    habits.HabitCmd      `cmd:"" help:"Track the active habit." default:"1"`
	Settings settings.SettingsCmd `cmd:"" help:"Manage day settings."`
	Backup   struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

// Commands that open storage themselves, or do not need it
var skipLoad = map[string]bool{
	"init":    true,
	"migrate": true,
	"doctor":  true,
	"token":   true,
	"secret":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Keep Run: one habit at a time, with a planner on the side"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	if CLI.Config == "" {
		CLI.Config = filepath.Join(cli.ExpandPath(filepath.Dir(constants.DefaultConfigPath)), config.DefaultFileName)
	}
	configDir := filepath.Dir(CLI.Config)
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store, err := cli.OpenStore(CLI.DB, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	appCtx := &cli.Context{
		Store:      store,
		UserID:     CLI.User,
		ConfigDir:  configDir,
		ConfigPath: CLI.Config,
		Debug:      CLI.Debug,
	}

	// Load the store before running the command
	if ctx.Selected() != nil && !skipLoad[commandName(ctx)] {
		if err := store.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		store.Close()
		os.Exit(1)
	}
}

// commandName returns the top-level command of the parsed invocation.
func commandName(ctx *kong.Context) string {
	node := ctx.Selected()
	for node.Parent != nil && node.Parent.Type == kong.CommandNode {
		node = node.Parent
	}
	return node.Name
}
