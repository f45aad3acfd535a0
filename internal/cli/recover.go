package cli

import (
	"context"
	"flag"
	"fmt"

	"armory-backend/internal/application/audit"
	"armory-backend/internal/application/transfers"

	"github.com/google/subcommands"
)

type recoverCmd struct {
	env    *Env
	dryRun bool
}

func (*recoverCmd) Name() string     { return "recover-transfers" }
func (*recoverCmd) Synopsis() string { return "finish transfers interrupted between their two steps" }
func (*recoverCmd) Usage() string {
	return `recover-transfers [-dry-run]

  Applies the destination side of every transfer intent that stopped after
  its source side. With -dry-run, only lists the pending intents.
`
}

func (c *recoverCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "dry-run", false, "List pending intents without resuming them")
}

func (c *recoverCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := c.env.Open(ctx)
	if err != nil {
		return fail("connecting: %v", err)
	}
	svc := &transfers.Service{DB: db, Audit: audit.Nop{}}

	if c.dryRun {
		pending, err := svc.PendingIntents(ctx)
		if err != nil {
			return fail("listing intents: %v", err)
		}
		for _, in := range pending {
			fmt.Fprintf(c.env.Out, "%s %s step=%s attempts=%d\n", in.TransferID, in.Kind, in.Step, in.Attempts)
		}
		fmt.Fprintf(c.env.Out, "%d pending\n", len(pending))
		return subcommands.ExitSuccess
	}

	res, err := svc.Recover(ctx)
	if err != nil {
		return fail("recovering: %v", err)
	}
	fmt.Fprintf(c.env.Out, "scanned=%d resumed=%d failed=%d\n", res.Scanned, res.Resumed, res.Failed)
	for _, f := range res.Failures {
		fmt.Fprintln(c.env.Out, "  "+f)
	}
	if res.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
