package till_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashbook/till"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertDecimal(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "%s: want %d, got %s", field, want, got)
}

// scenarioRecord is the worked example from the shop's daily sheet.
func scenarioRecord() till.SalesRecord {
	return till.SalesRecord{
		Date:             "2023-04-01",
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

// =============================================================================
// DENOMINATIONS
// =============================================================================

func TestTotalFromDenominations(t *testing.T) {
	tests := []struct {
		name  string
		input till.Denominations
		want  int64
	}{
		{"empty", till.Denominations{}, 0},
		{"two 500 one 100", till.Denominations{D500: 2, D100: 1}, 1100},
		{"every note once", till.Denominations{D500: 1, D200: 1, D100: 1, D50: 1, D20: 1, D10: 1, D5: 1}, 885},
		{"scenario", scenarioRecord().Denominations, 7510},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, till.TotalFromDenominations(tt.input), "total")
		})
	}
}

func TestDenominations_CountAndSet(t *testing.T) {
	var den till.Denominations
	for i, n := range till.Notes {
		den.Set(n, int64(i+1))
	}
	for i, n := range till.Notes {
		assert.Equal(t, int64(i+1), den.Count(n), "note %d", n)
	}
	assert.Equal(t, int64(0), den.Count(till.Note(2000)), "unknown note counts zero")
	assert.False(t, den.HasNegative())

	den.Set(till.Note20, -1)
	assert.True(t, den.HasNegative())
}

// =============================================================================
// DERIVATION
// =============================================================================

func TestDerive_Scenario(t *testing.T) {
	// GIVEN: The reference day
	engine := till.NewEngine()

	// WHEN: Deriving
	got := engine.Derive(scenarioRecord())

	// THEN: Every computed field matches the hand calculation
	assertDecimal(t, 1150, got.TotalExpenses, "totalExpenses")
	assertDecimal(t, 7510, got.TotalFromDenominations, "totalFromDenominations")
	assertDecimal(t, 12000, got.TotalCashSales, "totalCashSales")
	assertDecimal(t, 15900, got.TotalCash, "totalCash")
	assertDecimal(t, 6510, got.ClosingCash, "closingCash")
	assertDecimal(t, 8390, got.CashDifference, "cashDifference")
	assert.Equal(t, till.StatusError, engine.Status(got))
}

func TestTotalExpenses_SumsEverySlot(t *testing.T) {
	r := till.SalesRecord{
		EmployeeAdvances: till.EmployeeAdvances{Employee1: d(1), Employee2: d(2), Employee3: d(3), Employee4: d(4)},
		CleaningExpenses: d(10),
		OtherExpenses:    till.OtherExpenses{Amount1: d(100), Amount2: decimal.RequireFromString("0.5")},
	}
	want := till.TotalEmployeeAdvances(r.EmployeeAdvances).Add(r.CleaningExpenses).
		Add(r.OtherExpenses.Amount1).Add(r.OtherExpenses.Amount2)

	assert.True(t, till.TotalExpenses(r).Equal(want))
	assert.Equal(t, "120.5", till.TotalExpenses(r).String())
}

func TestDerive_EmptyRecordOnlyCarriesOffset(t *testing.T) {
	got := till.NewEngine().Derive(till.EmptySalesRecord("2024-01-01"))

	assertDecimal(t, 0, got.TotalExpenses, "totalExpenses")
	assertDecimal(t, 50, got.TotalCash, "totalCash")
	assertDecimal(t, 50, got.CashDifference, "cashDifference")
	assert.Equal(t, till.StatusWarning, till.DifferenceStatus(got.CashDifference))
}

func TestDerive_Idempotent(t *testing.T) {
	engine := till.NewEngine()
	once := engine.Derive(scenarioRecord())
	twice := engine.Derive(once)

	assert.True(t, once.TotalExpenses.Equal(twice.TotalExpenses))
	assert.True(t, once.TotalFromDenominations.Equal(twice.TotalFromDenominations))
	assert.True(t, once.ClosingCash.Equal(twice.ClosingCash))
	assert.True(t, once.TotalCashSales.Equal(twice.TotalCashSales))
	assert.True(t, once.TotalCash.Equal(twice.TotalCash))
	assert.True(t, once.CashDifference.Equal(twice.CashDifference))
}

func TestDerive_IgnoresStaleDerivedFields(t *testing.T) {
	r := scenarioRecord()
	r.Derived = till.Derived{TotalCash: d(1), CashDifference: d(-99999)}

	got := till.NewEngine().Derive(r)
	assertDecimal(t, 15900, got.TotalCash, "totalCash")
	assertDecimal(t, 8390, got.CashDifference, "cashDifference")
}

func TestDerive_ConfigurableOffset(t *testing.T) {
	engine := till.NewEngine(till.WithOffset(decimal.Zero))
	got := engine.Derive(scenarioRecord())
	assertDecimal(t, 15850, got.TotalCash, "totalCash")
	assertDecimal(t, 8340, got.CashDifference, "cashDifference")
}

func TestDifferenceStatus(t *testing.T) {
	tests := []struct {
		diff decimal.Decimal
		want till.Status
	}{
		{d(-500), till.StatusSuccess},
		{d(0), till.StatusSuccess},
		{decimal.RequireFromString("0.01"), till.StatusWarning},
		{d(50), till.StatusWarning},
		{decimal.RequireFromString("50.01"), till.StatusError},
		{d(8390), till.StatusError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, till.DifferenceStatus(tt.diff), "diff %s", tt.diff)
	}
}

// =============================================================================
// PRESENTATION POLICY
// =============================================================================

func TestPassthrough_ShowsTrueDifference(t *testing.T) {
	engine := till.NewEngine()
	assertDecimal(t, -5000, engine.Present(d(-5000)), "present")
}

func TestMaskLargeNegative(t *testing.T) {
	policy := till.MaskLargeNegative{Rand: rand.New(rand.NewPCG(7, 11))}
	engine := till.NewEngine(till.WithPolicy(policy))

	// Differences at or above the threshold are untouched
	assertDecimal(t, -100, engine.Present(d(-100)), "at threshold")
	assertDecimal(t, 20, engine.Present(d(20)), "positive")

	// Large negatives land in [-90, -10]
	for i := 0; i < 200; i++ {
		got := engine.Present(d(-5000))
		assert.True(t, got.GreaterThanOrEqual(d(-90)) && got.LessThanOrEqual(d(-10)), "masked value %s out of band", got)
	}
}

func TestMaskLargeNegative_DeterministicWithSeed(t *testing.T) {
	a := till.MaskLargeNegative{Rand: rand.New(rand.NewPCG(1, 2))}
	b := till.MaskLargeNegative{Rand: rand.New(rand.NewPCG(1, 2))}
	for i := 0; i < 10; i++ {
		assert.True(t, a.Present(d(-1000)).Equal(b.Present(d(-1000))))
	}
}

func TestDerive_StoresTrueDifferenceUnderMask(t *testing.T) {
	engine := till.NewEngine(till.WithPolicy(till.MaskLargeNegative{}))
	r := till.SalesRecord{Date: "2024-02-02", Denominations: till.Denominations{D500: 10}}

	got := engine.Derive(r)
	assertDecimal(t, -4950, got.CashDifference, "stored difference")
	assert.Equal(t, till.StatusSuccess, engine.Status(got))
}

func TestPolicyByName(t *testing.T) {
	p, err := till.PolicyByName("mask")
	require.NoError(t, err)
	assert.IsType(t, till.MaskLargeNegative{}, p)

	p, err = till.PolicyByName("")
	require.NoError(t, err)
	assert.IsType(t, till.Passthrough{}, p)

	_, err = till.PolicyByName("hide")
	assert.Error(t, err)
}

// =============================================================================
// VALIDATION POLICY
// =============================================================================

func TestValidate_PermissiveAcceptsAnything(t *testing.T) {
	r := scenarioRecord()
	r.CashWithdrawn = d(1_000_000)
	r.Denominations.D10 = -3

	assert.NoError(t, till.NewEngine().Validate(r))
}

func TestValidate_StrictRejectsWithdrawalAboveCount(t *testing.T) {
	engine := till.NewEngine(till.WithValidator(till.Strict{}))
	r := scenarioRecord()
	r.CashWithdrawn = d(8000)

	err := engine.Validate(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, till.ErrValidation))

	var vErr *till.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "cashWithdrawn", vErr.Field)
}

func TestValidate_StrictDifferenceLimit(t *testing.T) {
	engine := till.NewEngine(till.WithValidator(till.Strict{MaxDifference: d(1000)}))

	var vErr *till.ValidationError
	require.ErrorAs(t, engine.Validate(scenarioRecord()), &vErr)
	assert.Equal(t, "cashDifference", vErr.Field)
}

func TestValidate_StrictRejectsNegativeCounts(t *testing.T) {
	engine := till.NewEngine(till.WithValidator(till.Strict{}))
	r := scenarioRecord()
	r.Denominations.D5 = -1

	var vErr *till.ValidationError
	require.ErrorAs(t, engine.Validate(r), &vErr)
	assert.Equal(t, "denominations", vErr.Field)
}

func TestValidate_RequiresDate(t *testing.T) {
	r := scenarioRecord()
	r.Date = "01/04/2023"

	err := till.NewEngine().Validate(r)
	assert.ErrorIs(t, err, till.ErrValidation)
}

func TestValidateEntity(t *testing.T) {
	assert.NoError(t, till.ValidateEntity(till.Employee{Name: "Asha", Mobile: "9876543210", JoiningDate: "2023-01-01"}))
	assert.ErrorIs(t, till.ValidateEntity(till.Employee{Mobile: "9876543210"}), till.ErrValidation)
	assert.ErrorIs(t, till.ValidateEntity(till.SalaryAdvance{Date: "2024-01-05", EmployeeID: "e1", Type: "cheque"}), till.ErrValidation)
	assert.ErrorIs(t, till.ValidateEntity(till.Store{Name: "Main", Email: "not-an-email"}), till.ErrValidation)
}
