package system

import (
	"context"

	"github.com/julianstephens/keeprun/internal/cleanup"
	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/constants"
)

type CleanupCmd struct {
	RetentionDays int `help:"Purge soft-deleted items older than this many days." default:"90"`
}

func (c *CleanupCmd) Run(ctx *cli.Context) error {
	runner := cleanup.NewRunner(ctx.Store, c.RetentionDays, ctx.Clock, nil)
	res, err := runner.Run(context.Background())
	if err != nil {
		return err
	}
	ctx.Printf("Purged %d todo(s) and %d time block(s) deleted before %s\n",
		res.Todos, res.TimeBlocks, res.Cutoff.Format(constants.DateFormat))
	return nil
}
