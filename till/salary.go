/*
salary.go - Monthly salary statements and balance carry-forward

PURPOSE:
  Closes a month for an employee: splits the month's advances into bank
  transfers and cash withdrawals, estimates the sales the salary implies,
  and carries the running balance forward from the previous statement.

CRITICAL INVARIANT:
  balanceTillDate(M) = balanceCurrent(M) + balanceTillDate(P)
  where P is the latest month before M with a statement for the same
  employee. With no such month, balanceTillDate(M) = balanceCurrent(M).

  ChainBalances re-establishes the invariant over a whole partition and
  must run after any statement is inserted, replaced or removed.
*/
package till

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SalesToSalaryRatio is the share of sales a salary is expected to represent.
var SalesToSalaryRatio = decimal.RequireFromString("0.45")

// EstimatedSales is round(salary / 0.45).
func EstimatedSales(salary decimal.Decimal) decimal.Decimal {
	return salary.Div(SalesToSalaryRatio).Round(0)
}

// AdvanceTotals splits an employee's advances for a month by payment type.
func AdvanceTotals(advances []SalaryAdvance, employeeID, month string) (bank, cash decimal.Decimal) {
	bank, cash = decimal.Zero, decimal.Zero
	for _, a := range advances {
		if a.EmployeeID != employeeID || a.Month() != month {
			continue
		}
		if a.Type == AdvanceBank {
			bank = bank.Add(a.Amount)
		} else {
			cash = cash.Add(a.Amount)
		}
	}
	return bank, cash
}

// MonthlySalary builds the statement for one employee and month.
// BalanceTillDate is left equal to BalanceCurrent; ChainBalances links it.
func MonthlySalary(month, employeeID string, salary decimal.Decimal, advances []SalaryAdvance) EmployeeSalary {
	bank, cash := AdvanceTotals(advances, employeeID, month)
	total := bank.Add(cash)
	current := total.Sub(salary)
	return EmployeeSalary{
		ID:                   SalaryID(month, employeeID),
		Month:                month,
		EmployeeID:           employeeID,
		Salary:               salary,
		TotalSales:           EstimatedSales(salary),
		MonthlyBankTransfers: bank,
		MonthlyCashWithdrawn: cash,
		TotalSalaryAdvance:   total,
		BalanceCurrent:       current,
		BalanceTillDate:      current,
	}
}

// LatestPrior returns the employee's latest statement before month.
func LatestPrior(rows []EmployeeSalary, employeeID, month string) (EmployeeSalary, bool) {
	var (
		best  EmployeeSalary
		found bool
	)
	for _, r := range rows {
		if r.EmployeeID != employeeID || r.Month >= month {
			continue
		}
		if !found || r.Month > best.Month {
			best, found = r, true
		}
	}
	return best, found
}

// ChainBalances recomputes BalanceTillDate for every statement.
// The input order is preserved; the input slice is not modified.
func ChainBalances(rows []EmployeeSalary) []EmployeeSalary {
	out := make([]EmployeeSalary, len(rows))
	copy(out, rows)

	byEmployee := make(map[string][]int)
	for i, r := range out {
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], i)
	}
	for _, idx := range byEmployee {
		sort.SliceStable(idx, func(a, b int) bool { return out[idx[a]].Month < out[idx[b]].Month })
		running := decimal.Zero
		for n, i := range idx {
			if n == 0 {
				running = out[i].BalanceCurrent
			} else {
				running = running.Add(out[i].BalanceCurrent)
			}
			out[i].BalanceTillDate = running
		}
	}
	return out
}

// EmployeeSummary totals an employee's statements.
type EmployeeSummary struct {
	EmployeeID  string          `json:"employeeId"`
	Month       string          `json:"month,omitempty"`
	TotalSalary decimal.Decimal `json:"totalSalary"`
	TotalBank   decimal.Decimal `json:"totalBank"`
	TotalCash   decimal.Decimal `json:"totalCash"`
	NetBalance  decimal.Decimal `json:"netBalance"`
}

// SummarizeEmployee totals the statements of one employee.
// An empty month means all months.
func SummarizeEmployee(rows []EmployeeSalary, employeeID, month string) EmployeeSummary {
	s := EmployeeSummary{
		EmployeeID:  employeeID,
		Month:       month,
		TotalSalary: decimal.Zero,
		TotalBank:   decimal.Zero,
		TotalCash:   decimal.Zero,
	}
	for _, r := range rows {
		if r.EmployeeID != employeeID || (month != "" && r.Month != month) {
			continue
		}
		s.TotalSalary = s.TotalSalary.Add(r.Salary)
		s.TotalBank = s.TotalBank.Add(r.MonthlyBankTransfers)
		s.TotalCash = s.TotalCash.Add(r.MonthlyCashWithdrawn)
	}
	s.NetBalance = s.TotalBank.Add(s.TotalCash).Sub(s.TotalSalary)
	return s
}
