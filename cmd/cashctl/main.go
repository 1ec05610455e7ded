// Command cashctl works on a cash book offline: it imports and exports CSV
// partitions, prints sales summaries and manages the store registry. It reads
// the same CASHBOOK_* configuration as the server.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/warp/cashbook/config"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/store"
)

// Commands are the registered subcommands.
var Commands = []subcommands.Command{
	&importCmd{},
	&exportCmd{},
	&summaryCmd{},
	&storesCmd{},
}

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	// openBook opens the configured book. The returned func releases it.
	openBook = openConfiguredBook
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func openConfiguredBook(ctx context.Context) (*records.Book, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	engine, err := cfg.Engine()
	if err != nil {
		return nil, nil, err
	}
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// Logs go to stderr; stdout carries command output.
	log := cfg.Logger()
	log.SetOutput(stderr)

	opts := []records.Option{records.WithEngine(engine), records.WithLogger(log)}
	if cfg.SnapshotDir != "" {
		opts = append(opts, records.WithSnapshotSink(records.DirSink{Dir: cfg.SnapshotDir}))
	}
	book, err := records.Open(ctx, backend, opts...)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return book, func() { backend.Close() }, nil
}
