package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"github.com/warp/cashbook/report"
)

type summaryCmd struct {
	store  string
	from   string
	to     string
	format string
	style  string
	width  int
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the sales summary of a date range" }
func (*summaryCmd) Usage() string {
	return `summary [-store <id>] [-from <date>] [-to <date>] [-format term|md|html]

  Totals the sales days between -from and -to, both inclusive. Either
  bound may be omitted. The default format renders the report for the
  terminal.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.store, "store", "", "store id (default: active store)")
	f.StringVar(&c.from, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&c.to, "to", "", "last day, YYYY-MM-DD")
	f.StringVar(&c.format, "format", "term", "output format: term, md or html")
	f.StringVar(&c.style, "style", "", "terminal style (default: detect)")
	f.IntVar(&c.width, "width", 100, "terminal word wrap")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch c.format {
	case "term", "md", "html":
	default:
		fmt.Fprintf(stderr, "Error: unknown format %q.\n", c.format)
		return subcommands.ExitUsageError
	}

	book, release, err := openBook(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening cash book: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	storeID, err := book.ResolveStore(ctx, c.store)
	if err != nil {
		fmt.Fprintf(stderr, "Error resolving store: %v\n", err)
		return subcommands.ExitFailure
	}
	st, err := book.Stores.Get(ctx, storeID)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading store: %v\n", err)
		return subcommands.ExitFailure
	}

	days, err := book.Sales.Range(ctx, storeID, c.from, c.to)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading sales: %v\n", err)
		return subcommands.ExitFailure
	}
	engine := book.Engine()
	md := report.Markdown(engine, st.Name, report.Summarize(engine, c.from, c.to, days), days)

	out := md
	switch c.format {
	case "html":
		out, err = report.HTML(md)
	case "term":
		out, err = report.Terminal(md, c.style, c.width)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error rendering summary: %v\n", err)
		return subcommands.ExitFailure
	}
	io.WriteString(stdout, out)
	return subcommands.ExitSuccess
}
