package system

import (
	"os"
	"time"

	"github.com/julianstephens/keeprun/internal/auth"
	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/config"
)

// TokenCmd issues a bearer token signed with the server secret, for local
// clients and testing.
type TokenCmd struct {
	User  string        `arg:"" help:"User id placed in the token subject."`
	Email string        `help:"Email claim."`
	TTL   time.Duration `help:"Token lifetime." default:"24h"`
}

func (c *TokenCmd) Run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.ConfigPath)
	if err != nil {
		return err
	}
	secret, err := cfg.JWTSecret(os.Getenv)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(secret, auth.Options{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Clock:    ctx.Clock,
	})
	if err != nil {
		return err
	}

	token, err := verifier.Issue(auth.Identity{UserID: c.User, Email: c.Email}, c.TTL)
	if err != nil {
		return err
	}
	ctx.Println(token)
	return nil
}
