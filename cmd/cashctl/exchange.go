package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/report"
)

type importCmd struct {
	store  string
	entity string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "merge a CSV file into a store partition" }
func (*importCmd) Usage() string {
	return `import -entity <entity> [-store <id>] <file.csv>

  Merges the rows of the CSV file into the store's partition. Rows that
  cannot be parsed are reported and skipped. Use "-" to read stdin.

  Entities: sales_records, employees, salary_advances, salary_data, stores.
  The active store is used when -store is not given.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.store, "store", "", "store id (default: active store)")
	f.StringVar(&c.entity, "entity", csvcodec.EntitySales, "entity to import")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one input file is required.")
		return subcommands.ExitUsageError
	}

	var in io.Reader = os.Stdin
	if name := f.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(stderr, "Error opening %s: %v\n", name, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		in = file
	}

	book, release, err := openBook(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening cash book: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	storeID := c.store
	if c.entity != csvcodec.EntityStore {
		if storeID, err = book.ResolveStore(ctx, c.store); err != nil {
			fmt.Fprintf(stderr, "Error resolving store: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	res, err := book.Import(ctx, storeID, c.entity, in)
	if err != nil {
		fmt.Fprintf(stderr, "Error importing %s: %v\n", c.entity, err)
		return subcommands.ExitFailure
	}

	for _, e := range res.Errors {
		fmt.Fprintf(stderr, "skipped %v\n", e)
	}
	fmt.Fprintf(stdout, "Imported %d %s (%d duplicates, %d skipped)\n",
		res.Imported, res.Entity, res.Duplicates, res.Skipped())
	return subcommands.ExitSuccess
}

type exportCmd struct {
	store  string
	entity string
	out    string
	xlsx   bool
	from   string
	to     string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a store partition as CSV or a sales workbook" }
func (*exportCmd) Usage() string {
	return `export -entity <entity> [-store <id>] [-o <file>]
export -xlsx [-store <id>] [-from <date>] [-to <date>] -o <file.xlsx>

  Writes the partition as CSV to stdout, or to the file given with -o.
  With -xlsx, writes the sales of the date range as an Excel workbook.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.store, "store", "", "store id (default: active store)")
	f.StringVar(&c.entity, "entity", csvcodec.EntitySales, "entity to export")
	f.StringVar(&c.out, "o", "", "output file (default: stdout)")
	f.BoolVar(&c.xlsx, "xlsx", false, "write a sales workbook instead of CSV")
	f.StringVar(&c.from, "from", "", "first day of the workbook, YYYY-MM-DD")
	f.StringVar(&c.to, "to", "", "last day of the workbook, YYYY-MM-DD")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.xlsx && c.out == "" {
		fmt.Fprintln(stderr, "Error: -xlsx requires -o.")
		return subcommands.ExitUsageError
	}

	book, release, err := openBook(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening cash book: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	storeID := c.store
	if c.xlsx || c.entity != csvcodec.EntityStore {
		if storeID, err = book.ResolveStore(ctx, c.store); err != nil {
			fmt.Fprintf(stderr, "Error resolving store: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	var w io.Writer = stdout
	if c.out != "" {
		file, err := os.Create(c.out)
		if err != nil {
			fmt.Fprintf(stderr, "Error creating %s: %v\n", c.out, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		w = file
	}

	if c.xlsx {
		days, err := book.Sales.Range(ctx, storeID, c.from, c.to)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading sales: %v\n", err)
			return subcommands.ExitFailure
		}
		sum := report.Summarize(book.Engine(), c.from, c.to, days)
		if err := report.WriteSalesWorkbook(w, book.Engine(), sum, days); err != nil {
			fmt.Fprintf(stderr, "Error writing workbook: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	data, err := book.Export(ctx, storeID, c.entity)
	if err != nil {
		fmt.Fprintf(stderr, "Error exporting %s: %v\n", c.entity, err)
		return subcommands.ExitFailure
	}
	if _, err := w.Write(data); err != nil {
		fmt.Fprintf(stderr, "Error writing export: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
