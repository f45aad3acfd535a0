package cli

import (
	"context"
	"flag"
	"fmt"

	"armory-backend/internal/infrastructure/database"

	"github.com/google/subcommands"
)

type migrateCmd struct {
	env *Env
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the ledger tables" }
func (*migrateCmd) Usage() string {
	return `migrate

  Runs the schema migration for every ledger table.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := c.env.Open(ctx)
	if err != nil {
		return fail("connecting: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fail("migrating: %v", err)
	}
	fmt.Fprintf(c.env.Out, "migrated %d tables\n", len(database.Models()))
	return subcommands.ExitSuccess
}
