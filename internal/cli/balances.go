package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"armory-backend/internal/application/assets"
	"armory-backend/internal/application/audit"
	"armory-backend/internal/domain"
	"armory-backend/internal/pkg/query"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

type balancesCmd struct {
	env     *Env
	base    string
	typ     string
	summary bool
	plain   bool
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "print asset balances as a table" }
func (*balancesCmd) Usage() string {
	return `balances [-base <base>] [-type <type>] [-summary] [-plain]

  Prints every asset's counters, or with -summary the totals per base and
  type including net movement. -plain skips terminal styling.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.base, "base", "", "Only this base")
	f.StringVar(&c.typ, "type", "", "Only this asset type")
	f.BoolVar(&c.summary, "summary", false, "Totals per base and type")
	f.BoolVar(&c.plain, "plain", false, "Render without styling")
}

func (c *balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := c.env.Open(ctx)
	if err != nil {
		return fail("connecting: %v", err)
	}
	svc := &assets.Service{DB: db, Audit: audit.Nop{}}

	var md string
	if c.summary {
		rows, err := svc.Summary(ctx, operator, assets.SummaryFilter{Base: c.base, Type: c.typ, ByType: true})
		if err != nil {
			return fail("summarizing: %v", err)
		}
		md = SummaryMarkdown(rows)
	} else {
		list, _, err := svc.List(ctx, operator, assets.ListFilter{
			Base: c.base, Type: c.typ, Page: query.Page{Limit: query.MaxLimit},
		})
		if err != nil {
			return fail("listing: %v", err)
		}
		md = BalancesMarkdown(list)
	}

	style := "dark"
	if c.plain {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(160))
	if err != nil {
		return fail("renderer: %v", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fail("rendering: %v", err)
	}
	fmt.Fprint(c.env.Out, out)
	return subcommands.ExitSuccess
}

// BalancesMarkdown renders one row per asset.
func BalancesMarkdown(list []domain.Asset) string {
	var b strings.Builder
	b.WriteString("# Asset balances\n\n")
	if len(list) == 0 {
		b.WriteString("_No assets._\n")
		return b.String()
	}
	b.WriteString("| Base | Type | Name | Opening | Purchased | In | Out | Assigned | Expended | Closing | Available |\n")
	b.WriteString("|---|---|---|--:|--:|--:|--:|--:|--:|--:|--:|\n")
	for _, a := range list {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %d | %d | %d | %d | %d | %d |\n",
			a.Base, a.Type, a.Name, a.OpeningBalance, a.Purchases, a.TransferIn, a.TransferOut,
			a.Assigned, a.Expended, a.ClosingBalance, a.Available)
	}
	return b.String()
}

// SummaryMarkdown renders the per-base totals with net movement.
func SummaryMarkdown(rows []assets.SummaryRow) string {
	var b strings.Builder
	b.WriteString("# Base summary\n\n")
	if len(rows) == 0 {
		b.WriteString("_No assets._\n")
		return b.String()
	}
	b.WriteString("| Base | Type | Assets | Opening | Net movement | Assigned | Expended | Closing | Available |\n")
	b.WriteString("|---|---|--:|--:|--:|--:|--:|--:|--:|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | %d | %d | %d |\n",
			r.Base, r.Type, r.Assets, r.OpeningBalance, r.NetMovement, r.Assigned, r.Expended,
			r.ClosingBalance, r.Available)
	}
	return b.String()
}
