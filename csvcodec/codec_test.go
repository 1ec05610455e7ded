package csvcodec_test

import (
	"bytes"
	"encoding/csv"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/till"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func scenario() till.SalesRecord {
	return till.SalesRecord{
		Date:             "2023-04-01",
		StoreID:          "store-1",
		OpeningCash:      d(5000),
		TotalSalesPOS:    d(15000),
		PaytmSales:       d(3000),
		EmployeeAdvances: till.EmployeeAdvances{Employee1: d(500)},
		CleaningExpenses: d(200),
		OtherExpenses:    till.OtherExpenses{Name1: "Maintenance", Amount1: d(300), Name2: "Supplies", Amount2: d(150)},
		Denominations:    till.Denominations{D500: 5, D200: 10, D100: 20, D50: 15, D20: 10, D10: 5, D5: 2},
		CashWithdrawn:    d(1000),
	}
}

// readRows tokenizes encoded CSV for column-level assertions.
func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	require.NoError(t, err)
	return rows
}

func assertSameSales(t *testing.T, want, got till.SalesRecord) {
	t.Helper()
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.StoreID, got.StoreID)
	assert.Equal(t, want.Denominations, got.Denominations)
	assert.Equal(t, want.OtherExpenses.Name1, got.OtherExpenses.Name1)
	assert.Equal(t, want.OtherExpenses.Name2, got.OtherExpenses.Name2)
	pairs := map[string][2]decimal.Decimal{
		"openingCash":    {want.OpeningCash, got.OpeningCash},
		"totalSalesPOS":  {want.TotalSalesPOS, got.TotalSalesPOS},
		"paytmSales":     {want.PaytmSales, got.PaytmSales},
		"employee1":      {want.EmployeeAdvances.Employee1, got.EmployeeAdvances.Employee1},
		"employee4":      {want.EmployeeAdvances.Employee4, got.EmployeeAdvances.Employee4},
		"cleaning":       {want.CleaningExpenses, got.CleaningExpenses},
		"amount1":        {want.OtherExpenses.Amount1, got.OtherExpenses.Amount1},
		"amount2":        {want.OtherExpenses.Amount2, got.OtherExpenses.Amount2},
		"cashWithdrawn":  {want.CashWithdrawn, got.CashWithdrawn},
		"totalCash":      {want.TotalCash, got.TotalCash},
		"cashDifference": {want.CashDifference, got.CashDifference},
	}
	for field, p := range pairs {
		assert.True(t, p[0].Equal(p[1]), "%s: want %s, got %s", field, p[0], p[1])
	}
}

// =============================================================================
// SALES
// =============================================================================

func TestSales_RoundTrip(t *testing.T) {
	// GIVEN: Records with fractional amounts and awkward expense names
	engine := till.NewEngine()
	second := scenario()
	second.Date = "2023-04-02"
	second.OtherExpenses.Name1 = `Tea, snacks`
	second.OtherExpenses.Name2 = `Plumber "Raju"`
	second.OtherExpenses.Amount2 = decimal.RequireFromString("149.75")
	records := []till.SalesRecord{engine.Derive(scenario()), engine.Derive(second)}

	// WHEN: Encoding and decoding
	data, err := csvcodec.EncodeBytes(csvcodec.SalesSchema(engine), records)
	require.NoError(t, err)
	res, err := csvcodec.DecodeSales(bytes.NewReader(data), engine)
	require.NoError(t, err)

	// THEN: Nothing is lost or shifted
	require.Empty(t, res.Errors)
	require.Len(t, res.Items, 2)
	for i := range records {
		assertSameSales(t, records[i], res.Items[i])
	}
}

func TestSales_ExportIncludesDerivedColumns(t *testing.T) {
	data, err := csvcodec.EncodeBytes(csvcodec.SalesSchema(till.NewEngine()), []till.SalesRecord{scenario()})
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, csvcodec.SalesHeader, rows[0])
	require.Len(t, rows[1], 28)
	assert.Equal(t, []string{"1150", "7510", "6510", "12000", "15900", "8390"}, rows[1][22:])
}

func TestSales_ExportPresentsMaskedDifference(t *testing.T) {
	// GIVEN: A day with a large shortfall in the books and a masking engine
	engine := till.NewEngine(till.WithPolicy(till.MaskLargeNegative{Rand: rand.New(rand.NewPCG(3, 4))}))
	r := till.SalesRecord{Date: "2024-02-02", Denominations: till.Denominations{D500: 10}}

	// WHEN: Exporting
	data, err := csvcodec.EncodeBytes(csvcodec.SalesSchema(engine), []till.SalesRecord{r})
	require.NoError(t, err)

	// THEN: The file shows a masked value
	shown := decimal.RequireFromString(readRows(t, data)[1][27])
	assert.True(t, shown.GreaterThanOrEqual(d(-90)) && shown.LessThanOrEqual(d(-10)), "shown %s", shown)

	// AND: Import re-derives the true difference
	res, err := csvcodec.DecodeSales(bytes.NewReader(data), engine)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].CashDifference.Equal(d(-4950)))
}

func TestSales_ImportIgnoresDerivedColumns(t *testing.T) {
	engine := till.NewEngine()
	data, err := csvcodec.EncodeBytes(csvcodec.SalesSchema(engine), []till.SalesRecord{scenario()})
	require.NoError(t, err)

	// Tamper with every derived column
	rows := readRows(t, data)
	for i := 22; i < 28; i++ {
		rows[1][i] = "1"
	}
	var buf bytes.Buffer
	require.NoError(t, csv.NewWriter(&buf).WriteAll(rows))

	res, err := csvcodec.DecodeSales(&buf, engine)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].CashDifference.Equal(d(8390)))
	assert.True(t, res.Items[0].TotalExpenses.Equal(d(1150)))
}

func TestSales_Template(t *testing.T) {
	res, err := csvcodec.DecodeSales(strings.NewReader(csvcodec.SalesTemplate()), till.NewEngine())
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Items, 1)

	want := till.NewEngine().Derive(scenario())
	want.StoreID = ""
	assertSameSales(t, want, res.Items[0])
}

func TestSales_MalformedRowsAreSkipped(t *testing.T) {
	// GIVEN: A good row, a non-numeric amount, a short row and a blank line
	good := strings.Join(csvcodec.SalesSchema(till.NewEngine()).Encode(scenario()), ",")
	bad := strings.Replace(good, ",5000,", ",five thousand,", 1)
	input := strings.Join(csvcodec.SalesHeader, ",") + "\n" +
		good + "\n" +
		bad + "\n" +
		"2023-04-05,store-1,100\n" +
		"\n" +
		strings.Replace(good, "2023-04-01", "2023-04-06", 1) + "\n"

	// WHEN: Decoding
	res, err := csvcodec.DecodeSales(strings.NewReader(input), till.NewEngine())

	// THEN: Good rows survive and each bad row is reported with its line
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "2023-04-06", res.Items[1].Date)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 2, res.Skipped())

	assert.ErrorIs(t, res.Errors[0], csvcodec.ErrParse)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Equal(t, "Opening Cash", res.Errors[0].Column)
	assert.Equal(t, "five thousand", res.Errors[0].Value)
	assert.Equal(t, 4, res.Errors[1].Line)
}

func TestSales_EmptyInput(t *testing.T) {
	res, err := csvcodec.DecodeSales(strings.NewReader(""), till.NewEngine())
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Errors)
}

// =============================================================================
// EMPLOYEES AND STORES
// =============================================================================

func TestEmployees_QuotedFieldsRoundTrip(t *testing.T) {
	employees := []till.Employee{
		{ID: "e1", Name: "Doe, John", Mobile: "9876543210", JoiningDate: "2023-01-01", EmployeeNumber: 7},
		{ID: "e2", Name: `Asha "Ash" K`, Mobile: "", JoiningDate: ""},
	}
	data, err := csvcodec.EncodeBytes(csvcodec.EmployeeSchema, employees)
	require.NoError(t, err)

	res, err := csvcodec.DecodeEmployees(bytes.NewReader(data))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Equal(t, employees, res.Items)
}

func TestEmployees_TemplateLayout(t *testing.T) {
	res, err := csvcodec.DecodeEmployees(strings.NewReader(csvcodec.EmployeeTemplate()))
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, till.Employee{Name: "John Doe", Mobile: "9876543210", JoiningDate: "2023-01-01"}, res.Items[0])
	assert.Equal(t, "Jane Smith", res.Items[1].Name)
}

func TestEmployees_MissingNameIsParseError(t *testing.T) {
	res, err := csvcodec.DecodeEmployees(strings.NewReader("name,mobile,joiningDate\n,9876543210,2023-01-01\nRavi,,\n"))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "name", res.Errors[0].Column)
}

func TestStores_RoundTrip(t *testing.T) {
	stores := []till.Store{
		{ID: "default-store", Name: "Main Store", Address: "Default Address", IsActive: true, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "s2", Name: "Annex", Address: "12, MG Road", Phone: "9876543210", Email: "annex@example.com"},
	}
	data, err := csvcodec.EncodeBytes(csvcodec.StoreSchema, stores)
	require.NoError(t, err)

	res, err := csvcodec.DecodeBytes(data, csvcodec.StoreSchema)
	require.NoError(t, err)
	assert.Equal(t, stores, res.Items)
}

// =============================================================================
// SALARY LEDGER
// =============================================================================

func TestAdvances_Type(t *testing.T) {
	input := "id,date,amount,employeeId,comments,type\n" +
		"a1,2024-03-01,500,e1,,\n" +
		"a2,2024-03-02,250.5,e1,\"rent, march\",cash\n" +
		"a3,2024-03-03,100,e1,,cheque\n"

	res, err := csvcodec.DecodeBytes([]byte(input), csvcodec.AdvanceSchema)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, till.AdvanceBank, res.Items[0].Type, "empty type defaults to bank")
	assert.Equal(t, till.AdvanceCash, res.Items[1].Type)
	assert.Equal(t, "rent, march", res.Items[1].Comments)
	assert.True(t, res.Items[1].Amount.Equal(decimal.RequireFromString("250.5")))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Line)
	assert.Equal(t, "type", res.Errors[0].Column)
}

func TestSalaries_RoundTrip(t *testing.T) {
	rows := till.ChainBalances([]till.EmployeeSalary{
		till.MonthlySalary("2024-01", "e1", d(9000), nil),
		till.MonthlySalary("2024-02", "e1", d(9000), nil),
	})
	data, err := csvcodec.EncodeBytes(csvcodec.SalarySchema, rows)
	require.NoError(t, err)

	res, err := csvcodec.DecodeBytes(data, csvcodec.SalarySchema)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	for i := range rows {
		assert.Equal(t, rows[i].ID, res.Items[i].ID)
		assert.True(t, rows[i].BalanceTillDate.Equal(res.Items[i].BalanceTillDate))
		assert.True(t, rows[i].TotalSales.Equal(res.Items[i].TotalSales))
	}
}

func TestLedger_ResolvesEmployees(t *testing.T) {
	// GIVEN: A ledger exported from another device where ids differ
	exported := []till.Employee{{ID: "old-1", Name: "Asha"}, {ID: "old-2", Name: "Ravi"}}
	var buf bytes.Buffer
	err := csvcodec.EncodeLedger(&buf,
		[]till.EmployeeSalary{till.MonthlySalary("2024-03", "old-1", d(9000), nil)},
		[]till.SalaryAdvance{
			{ID: "a1", Date: "2024-03-05", Amount: d(1000), EmployeeID: "old-1", Type: till.AdvanceBank},
			{ID: "a2", Date: "2024-03-06", Amount: d(300), EmployeeID: "old-2", Comments: "bus, fare", Type: till.AdvanceCash},
			{ID: "a3", Date: "2024-03-07", Amount: d(50), EmployeeID: "gone", Type: till.AdvanceCash},
		},
		exported,
	)
	require.NoError(t, err)

	// WHEN: Importing into a store that knows Asha by a new id and not Ravi
	local := []till.Employee{{ID: "new-1", Name: "asha"}}
	ledger, parseErrs, err := csvcodec.DecodeLedger(&buf, local)
	require.NoError(t, err)

	// THEN: Asha's rows are re-keyed, the others are skipped
	require.Len(t, ledger.Salaries, 1)
	assert.Equal(t, "new-1", ledger.Salaries[0].EmployeeID)
	assert.Equal(t, "2024-03-new-1", ledger.Salaries[0].ID)
	assert.Equal(t, "2024-03", ledger.Salaries[0].Month)
	assert.True(t, ledger.Salaries[0].TotalSales.Equal(d(20000)))

	require.Len(t, ledger.Advances, 1)
	assert.Equal(t, "new-1", ledger.Advances[0].EmployeeID)
	assert.Equal(t, till.AdvanceBank, ledger.Advances[0].Type)

	assert.Len(t, parseErrs, 2)
}

func TestLedgerRows_UnknownEmployeeName(t *testing.T) {
	rows := csvcodec.LedgerRows(nil, []till.SalaryAdvance{{ID: "a", Date: "2024-01-02", EmployeeID: "x"}}, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "Unknown", rows[0].EmployeeName)
	assert.Equal(t, "2024-01", rows[0].Month)
}

// =============================================================================
// MERGE AND NAMES
// =============================================================================

func TestMerge_AddsOnlyUnseenKeys(t *testing.T) {
	existing := []till.Employee{{ID: "e1", Name: "Asha"}}
	incoming := []till.Employee{{Name: "ASHA"}, {Name: "Ravi"}, {Name: "ravi "}}

	merged, added := csvcodec.Merge(existing, incoming, csvcodec.EmployeeKey)

	assert.Equal(t, 1, added)
	require.Len(t, merged, 2)
	assert.Equal(t, "e1", merged[0].ID, "existing entry is not replaced")
	assert.Equal(t, "Ravi", merged[1].Name)
}

func TestMerge_DuplicateNameImportAddsNothing(t *testing.T) {
	existing := []till.Employee{{ID: "e1", Name: "John Doe"}, {ID: "e2", Name: "Jane Smith"}}
	res, err := csvcodec.DecodeEmployees(strings.NewReader(csvcodec.EmployeeTemplate()))
	require.NoError(t, err)

	merged, added := csvcodec.Merge(existing, res.Items, csvcodec.EmployeeKey)
	assert.Zero(t, added)
	assert.Equal(t, existing, merged)
}

func TestFilenames(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "employees_2024-03-01.csv", csvcodec.ExportFilename(csvcodec.EntityEmployee, day))
	assert.Equal(t, "store-1/sales_records.csv", csvcodec.SnapshotPath("store-1", csvcodec.EntitySales))

	_, ok := csvcodec.Template(csvcodec.EntityStore)
	assert.False(t, ok)
}
