// Package cli holds the ledgerctl subcommands: schema migration, seeding,
// transfer recovery and balance reports run directly against the database.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"armory-backend/internal/application/policies/access"
	"armory-backend/internal/config"
	"armory-backend/internal/constants"
	"armory-backend/internal/infrastructure/database"

	"github.com/google/subcommands"
	"gorm.io/gorm"
)

// Env is what every command needs. Tests swap Open for an in-memory database.
type Env struct {
	Open func(ctx context.Context) (*gorm.DB, error)
	Out  io.Writer
}

// DefaultEnv connects with the same configuration the API server uses.
func DefaultEnv() *Env {
	return &Env{
		Open: func(ctx context.Context) (*gorm.DB, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			if cfg.DatabaseURL == "" {
				return nil, fmt.Errorf("DATABASE_URL is not set")
			}
			db, err := database.Open(cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			return db.WithContext(ctx), nil
		},
		Out: os.Stdout,
	}
}

// operator is the principal CLI actions run as.
var operator = access.Principal{UserID: "ledgerctl", Role: constants.Admin}

// Commands returns every subcommand bound to env.
func Commands(env *Env) []subcommands.Command {
	return []subcommands.Command{
		&migrateCmd{env: env},
		&seedCmd{env: env},
		&recoverCmd{env: env},
		&balancesCmd{env: env},
	}
}

func fail(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
