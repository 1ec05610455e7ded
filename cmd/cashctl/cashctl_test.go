package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/till"
	"github.com/xuri/excelize/v2"
)

// withBook points every command at one in-memory book and captures output.
func withBook(t *testing.T) (*records.Book, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	log, _ := test.NewNullLogger()
	book, err := records.Open(context.Background(), records.NewMemoryBackend(),
		records.WithLogger(log),
		records.WithClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	prevOpen, prevOut, prevErr := openBook, stdout, stderr
	openBook = func(context.Context) (*records.Book, func(), error) { return book, func() {}, nil }
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { openBook, stdout, stderr = prevOpen, prevOut, prevErr })
	return book, &out, &errOut
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestImportCmd(t *testing.T) {
	book, out, errOut := withBook(t)
	path := filepath.Join(t.TempDir(), "employees.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvcodec.EmployeeTemplate()+",9999999999,2023-01-01\n"), 0o644))

	// WHEN: The employee template plus a nameless row is imported
	status := run(t, &importCmd{}, "-entity", csvcodec.EntityEmployee, path)

	// THEN: Good rows land in the active store, the bad one is reported
	assert.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out.String(), "Imported 2 employees")
	assert.Contains(t, errOut.String(), "line 4")

	employees, err := book.Employees.List(context.Background(), records.DefaultStoreID)
	require.NoError(t, err)
	assert.Len(t, employees, 2)
}

func TestImportCmd_Usage(t *testing.T) {
	withBook(t)
	assert.Equal(t, subcommands.ExitUsageError, run(t, &importCmd{}))
	assert.Equal(t, subcommands.ExitFailure, run(t, &importCmd{}, "-entity", "invoices", "/does/not/exist.csv"))
}

func TestExportCmd(t *testing.T) {
	book, out, _ := withBook(t)
	ctx := context.Background()
	_, err := book.Sales.Upsert(ctx, records.DefaultStoreID, till.SalesRecord{
		Date:          "2024-02-28",
		OpeningCash:   decimal.NewFromInt(1000),
		TotalSalesPOS: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	// WHEN: Sales are exported to stdout
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{}))

	// THEN: The CSV export carries the header and the day
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvcodec.SalesHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-02-28,"))

	// WHEN: The same range is written as a workbook
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{}, "-xlsx", "-o", path))

	// THEN: The workbook has the sales sheet
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExportCmd_XLSXNeedsFile(t *testing.T) {
	withBook(t)
	assert.Equal(t, subcommands.ExitUsageError, run(t, &exportCmd{}, "-xlsx"))
}

func TestSummaryCmd(t *testing.T) {
	book, out, _ := withBook(t)
	_, err := book.Sales.Upsert(context.Background(), records.DefaultStoreID, till.SalesRecord{
		Date:          "2024-02-28",
		TotalSalesPOS: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	// WHEN: The summary is printed as markdown
	require.Equal(t, subcommands.ExitSuccess, run(t, &summaryCmd{}, "-format", "md"))

	// THEN: It is titled with the store name and lists the day
	assert.Contains(t, out.String(), "# ")
	assert.Contains(t, out.String(), "2024-02-28")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &summaryCmd{}, "-style", "notty"))
	assert.Contains(t, out.String(), "2024-02-28")

	assert.Equal(t, subcommands.ExitUsageError, run(t, &summaryCmd{}, "-format", "pdf"))
}

func TestStoresCmd(t *testing.T) {
	book, out, errOut := withBook(t)

	// WHEN: A store is added
	require.Equal(t, subcommands.ExitSuccess, run(t, &storesCmd{}, "-add", "Market Road", "-address", "12 Market Rd"))

	// THEN: The default store is still active and both are listed
	assert.Contains(t, out.String(), "Created store Market Road")
	assert.Contains(t, out.String(), "*  "+records.DefaultStoreID)
	assert.Contains(t, out.String(), "12 Market Rd")

	stores, err := book.Stores.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 2)
	var added string
	for _, s := range stores {
		if s.Name == "Market Road" {
			added = s.ID
		}
	}

	// WHEN: The new store is activated
	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &storesCmd{}, "-activate", added))
	active, err := book.Context.ActiveStoreID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, added, active)

	// WHEN: An unknown store is activated
	assert.Equal(t, subcommands.ExitFailure, run(t, &storesCmd{}, "-activate", "nope"))
	assert.Contains(t, errOut.String(), "Error selecting store")
}
