package till_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashbook/till"
)

func advance(id, date, employeeID string, amount int64, kind till.AdvanceType) till.SalaryAdvance {
	return till.SalaryAdvance{ID: id, Date: date, Amount: d(amount), EmployeeID: employeeID, Type: kind}
}

func TestMonthlySalary_SplitsAdvances(t *testing.T) {
	advances := []till.SalaryAdvance{
		advance("a1", "2024-03-02", "e1", 1000, till.AdvanceBank),
		advance("a2", "2024-03-15", "e1", 500, till.AdvanceCash),
		advance("a3", "2024-04-01", "e1", 700, till.AdvanceCash), // next month
		advance("a4", "2024-03-03", "e2", 900, till.AdvanceBank), // other employee
	}

	got := till.MonthlySalary("2024-03", "e1", d(9000), advances)

	assert.Equal(t, "2024-03-e1", got.ID)
	assertDecimal(t, 1000, got.MonthlyBankTransfers, "bank")
	assertDecimal(t, 500, got.MonthlyCashWithdrawn, "cash")
	assertDecimal(t, 1500, got.TotalSalaryAdvance, "total advance")
	assertDecimal(t, -7500, got.BalanceCurrent, "balance current")
	assertDecimal(t, -7500, got.BalanceTillDate, "balance till date")
	assertDecimal(t, 20000, got.TotalSales, "estimated sales")
}

func TestEstimatedSales_Rounds(t *testing.T) {
	// 10000 / 0.45 = 22222.22...
	assertDecimal(t, 22222, till.EstimatedSales(d(10000)), "sales")
}

func TestChainBalances_CarriesForward(t *testing.T) {
	// GIVEN: Statements out of month order for two employees
	rows := []till.EmployeeSalary{
		{ID: "2024-03-e1", Month: "2024-03", EmployeeID: "e1", BalanceCurrent: d(-100)},
		{ID: "2024-01-e1", Month: "2024-01", EmployeeID: "e1", BalanceCurrent: d(300)},
		{ID: "2024-01-e2", Month: "2024-01", EmployeeID: "e2", BalanceCurrent: d(50)},
		{ID: "2024-02-e1", Month: "2024-02", EmployeeID: "e1", BalanceCurrent: d(-50)},
	}

	// WHEN: Chaining
	got := till.ChainBalances(rows)

	// THEN: Order is kept and each month adds its latest predecessor
	require.Len(t, got, 4)
	assert.Equal(t, "2024-03-e1", got[0].ID)
	assertDecimal(t, 150, got[0].BalanceTillDate, "e1 march")
	assertDecimal(t, 300, got[1].BalanceTillDate, "e1 january")
	assertDecimal(t, 50, got[2].BalanceTillDate, "e2 january")
	assertDecimal(t, 250, got[3].BalanceTillDate, "e1 february")

	// Input untouched
	assert.True(t, rows[0].BalanceTillDate.IsZero())
}

func TestChainBalances_Invariant(t *testing.T) {
	rows := till.ChainBalances([]till.EmployeeSalary{
		{Month: "2023-11", EmployeeID: "e1", BalanceCurrent: d(10)},
		{Month: "2024-02", EmployeeID: "e1", BalanceCurrent: d(-40)},
		{Month: "2023-12", EmployeeID: "e1", BalanceCurrent: d(25)},
	})

	for _, r := range rows {
		prior, ok := till.LatestPrior(rows, r.EmployeeID, r.Month)
		want := r.BalanceCurrent
		if ok {
			want = want.Add(prior.BalanceTillDate)
		}
		assert.True(t, want.Equal(r.BalanceTillDate), "month %s", r.Month)
	}
}

func TestSummarizeEmployee(t *testing.T) {
	rows := []till.EmployeeSalary{
		till.MonthlySalary("2024-01", "e1", d(8000), []till.SalaryAdvance{advance("a", "2024-01-10", "e1", 3000, till.AdvanceBank)}),
		till.MonthlySalary("2024-02", "e1", d(8000), []till.SalaryAdvance{advance("b", "2024-02-10", "e1", 1000, till.AdvanceCash)}),
	}

	all := till.SummarizeEmployee(rows, "e1", "")
	assertDecimal(t, 16000, all.TotalSalary, "salary")
	assertDecimal(t, 3000, all.TotalBank, "bank")
	assertDecimal(t, 1000, all.TotalCash, "cash")
	assertDecimal(t, -12000, all.NetBalance, "net")

	feb := till.SummarizeEmployee(rows, "e1", "2024-02")
	assertDecimal(t, 8000, feb.TotalSalary, "feb salary")
	assertDecimal(t, -7000, feb.NetBalance, "feb net")
}
