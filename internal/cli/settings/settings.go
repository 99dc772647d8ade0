package settings

import (
	"context"

	"github.com/julianstephens/keeprun/internal/cli"
	settingssvc "github.com/julianstephens/keeprun/internal/settings"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	DayStart *string `help:"Time the logical day starts (HH:MM)."`
	Timezone *string `help:"IANA timezone name, or Local for the system timezone."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if err := ctx.EnsureUser(bg); err != nil {
		return err
	}
	svc := ctx.Settings()

	if c.DayStart == nil && c.Timezone == nil {
		s, err := svc.Get(bg, ctx.UserID)
		if err != nil {
			return err
		}
		if !c.List {
			ctx.Println("No changes specified. Use --list to view settings or flags to update them.")
			return nil
		}
		ctx.Println("Current Settings:")
		ctx.Printf("  Day Start:  %s\n", s.DayStartTime)
		ctx.Printf("  Timezone:   %s\n", s.Timezone)
		return nil
	}

	s, err := svc.Update(bg, ctx.UserID, settingssvc.Update{DayStartTime: c.DayStart, Timezone: c.Timezone})
	if err != nil {
		return err
	}
	ctx.Println("Settings updated successfully.")
	ctx.Printf("  Day Start:  %s\n", s.DayStartTime)
	ctx.Printf("  Timezone:   %s\n", s.Timezone)
	return nil
}
