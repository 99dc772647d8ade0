package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/keeprun/internal/backup"
	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/keyring"
	"github.com/julianstephens/keeprun/internal/settings"
	"github.com/julianstephens/keeprun/internal/utils"
)

type DoctorCmd struct{}

// check is one diagnostic. Warnings never fail the run; dependent checks are
// skipped while the database is unreachable.
type check struct {
	name    string
	needsDB bool
	warn    bool
	run     func(context.Context, *cli.Context) error
}

var checks = []check{
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Active habits", needsDB: true, run: checkActiveHabits},
	{name: "Habit history", needsDB: true, run: checkHistoryDuplicates},
	{name: "Day settings", needsDB: true, run: checkDaySettings},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Backups present", warn: true, run: checkBackupsPresent},
	{name: "OS keyring", warn: true, run: checkKeyring},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := true
	if err := checkDBReachable(bg, ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(bg, ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warn:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(bg context.Context, ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(bg, 5*time.Second)
	defer cancel()
	return ctx.Store.Ping(pingCtx)
}

func checkSchemaVersion(_ context.Context, ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return err
	}
	if current != latest {
		return fmt.Errorf("schema version %d, expected %d", current, latest)
	}
	return nil
}

func checkActiveHabits(bg context.Context, ctx *cli.Context) error {
	n, err := ctx.Store.CountActiveHabitConflicts(bg)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%d user(s) have more than one active habit", n)
	}
	return nil
}

func checkHistoryDuplicates(bg context.Context, ctx *cli.Context) error {
	n, err := ctx.Store.CountDuplicateHistory(bg)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%d habit(s) have more than one history entry", n)
	}
	return nil
}

func checkDaySettings(bg context.Context, ctx *cli.Context) error {
	s, err := ctx.Settings().Get(bg, ctx.UserID)
	if err != nil {
		return err
	}
	return settings.Validate(s)
}

func checkClockTimezone(context.Context, *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	// IANA names in settings need the tz database
	if _, err := utils.LoadLocation("Asia/Seoul"); err != nil {
		return fmt.Errorf("timezone database is unavailable: %w", err)
	}
	return nil
}

func checkBackupsPresent(_ context.Context, ctx *cli.Context) error {
	path, ok := ctx.SQLitePath()
	if !ok {
		return nil
	}
	backups, err := backup.NewManager(path).List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found, run 'keeprun backup create'")
	}
	return nil
}

func checkKeyring(context.Context, *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}
