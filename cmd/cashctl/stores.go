package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/warp/cashbook/till"
)

type storesCmd struct {
	activate string
	add      string
	address  string
}

func (*storesCmd) Name() string     { return "stores" }
func (*storesCmd) Synopsis() string { return "list stores, add one or select the active store" }
func (*storesCmd) Usage() string {
	return `stores [-add <name> [-address <address>]] [-activate <id>]

  Lists the store registry. The active store is marked with "*".
`
}

func (c *storesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.add, "add", "", "name of a store to create")
	f.StringVar(&c.address, "address", "", "address of the created store")
	f.StringVar(&c.activate, "activate", "", "id of the store to make active")
}

func (c *storesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	book, release, err := openBook(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening cash book: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	if c.add != "" {
		st, err := book.Stores.Upsert(ctx, till.Store{Name: c.add, Address: c.address})
		if err != nil {
			fmt.Fprintf(stderr, "Error creating store: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Created store %s (%s)\n", st.Name, st.ID)
	}

	if c.activate != "" {
		if err := book.Context.SetActiveStore(ctx, c.activate); err != nil {
			fmt.Fprintf(stderr, "Error selecting store: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	stores, err := book.Stores.List(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error listing stores: %v\n", err)
		return subcommands.ExitFailure
	}
	active, _ := book.Context.ActiveStoreID(ctx)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tADDRESS")
	for _, st := range stores {
		mark := ""
		if st.ID == active {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, st.ID, st.Name, st.Address)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
