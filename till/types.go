/*
Package till provides the core cash reconciliation engine.

PURPOSE:
  This package contains the domain types and pure calculations that turn
  a shop's raw daily inputs (sales, expenses, counted notes) into audited
  figures: total expenses, expected cash, closing cash and the cash
  difference between what the books expect and what the till holds.

KEY CONCEPTS IN THIS FILE (types.go):
  - SalesRecord: One day of trading for one store (inputs + derived fields)
  - Derived: The computed block, always a function of the inputs
  - Employee, SalaryAdvance, EmployeeSalary: Staff ledger entities
  - Store: A retail location; every other entity is partitioned by store id

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, never float64
  2. Purity: Derived fields are recomputed by Engine.Derive, never edited
  3. Zero values: A missing amount is decimal zero, a missing count is 0

SEE ALSO:
  - engine.go: Derivation of the computed fields
  - denomination.go: Note counting
  - salary.go: Monthly salary ledger and balance carry-forward
*/
package till

import (
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by sales records and advances.
const DateLayout = "2006-01-02"

// MonthLayout is the format of salary months.
const MonthLayout = "2006-01"

// =============================================================================
// SALES RECORD
// =============================================================================

// EmployeeAdvances holds the four fixed advance slots of a daily record.
type EmployeeAdvances struct {
	Employee1 decimal.Decimal `json:"employee1"`
	Employee2 decimal.Decimal `json:"employee2"`
	Employee3 decimal.Decimal `json:"employee3"`
	Employee4 decimal.Decimal `json:"employee4"`
}

// Slots returns the advances in slot order.
func (a EmployeeAdvances) Slots() [4]decimal.Decimal {
	return [4]decimal.Decimal{a.Employee1, a.Employee2, a.Employee3, a.Employee4}
}

// OtherExpenses holds the two free-form expense slots.
type OtherExpenses struct {
	Name1   string          `json:"name1"`
	Amount1 decimal.Decimal `json:"amount1"`
	Name2   string          `json:"name2"`
	Amount2 decimal.Decimal `json:"amount2"`
}

// Derived is the computed block of a SalesRecord.
// It is overwritten by Engine.Derive on every save and display.
type Derived struct {
	TotalExpenses          decimal.Decimal `json:"totalExpenses"`
	TotalFromDenominations decimal.Decimal `json:"totalFromDenominations"`
	ClosingCash            decimal.Decimal `json:"closingCash"`
	TotalCashSales         decimal.Decimal `json:"totalCashSales"`
	TotalCash              decimal.Decimal `json:"totalCash"`
	CashDifference         decimal.Decimal `json:"cashDifference"`
}

// SalesRecord is one day of trading for one store.
// The natural key is (StoreID, Date).
type SalesRecord struct {
	Date             string           `json:"date" validate:"required,datetime=2006-01-02"`
	StoreID          string           `json:"storeId,omitempty"`
	OpeningCash      decimal.Decimal  `json:"openingCash"`
	TotalSalesPOS    decimal.Decimal  `json:"totalSalesPOS"`
	PaytmSales       decimal.Decimal  `json:"paytmSales"`
	EmployeeAdvances EmployeeAdvances `json:"employeeAdvances"`
	CleaningExpenses decimal.Decimal  `json:"cleaningExpenses"`
	OtherExpenses    OtherExpenses    `json:"otherExpenses"`
	Denominations    Denominations    `json:"denominations"`
	CashWithdrawn    decimal.Decimal  `json:"cashWithdrawn"`

	Derived
}

// EmptySalesRecord returns the blank entry template for a day.
func EmptySalesRecord(date string) SalesRecord {
	return SalesRecord{Date: date}
}

// =============================================================================
// STAFF LEDGER
// =============================================================================

// Employee is a member of staff of one store.
type Employee struct {
	ID             string `json:"id"`
	Name           string `json:"name" validate:"required"`
	Mobile         string `json:"mobile" validate:"omitempty,mobile"`
	JoiningDate    string `json:"joiningDate" validate:"omitempty,datetime=2006-01-02"`
	EmployeeNumber int    `json:"employeeNumber,omitempty"`
}

// AdvanceType says how an advance was paid out.
type AdvanceType string

const (
	AdvanceBank AdvanceType = "bank"
	AdvanceCash AdvanceType = "cash"
)

// SalaryAdvance is a payment made to an employee ahead of salary.
type SalaryAdvance struct {
	ID         string          `json:"id"`
	Date       string          `json:"date" validate:"required,datetime=2006-01-02"`
	Amount     decimal.Decimal `json:"amount"`
	EmployeeID string          `json:"employeeId" validate:"required"`
	Comments   string          `json:"comments"`
	Type       AdvanceType     `json:"type" validate:"oneof=bank cash"`
}

// Month returns the YYYY-MM month of the advance.
func (a SalaryAdvance) Month() string {
	if len(a.Date) < 7 {
		return a.Date
	}
	return a.Date[:7]
}

// EmployeeSalary is the monthly salary statement of one employee.
// BalanceTillDate carries forward from the employee's previous statement.
type EmployeeSalary struct {
	ID                   string          `json:"id"`
	Month                string          `json:"month" validate:"required,datetime=2006-01"`
	EmployeeID           string          `json:"employeeId" validate:"required"`
	Salary               decimal.Decimal `json:"salary"`
	TotalSales           decimal.Decimal `json:"totalSales"`
	MonthlyBankTransfers decimal.Decimal `json:"monthlyBankTransfers"`
	MonthlyCashWithdrawn decimal.Decimal `json:"monthlyCashWithdrawn"`
	TotalSalaryAdvance   decimal.Decimal `json:"totalSalaryAdvance"`
	BalanceCurrent       decimal.Decimal `json:"balanceCurrent"`
	BalanceTillDate      decimal.Decimal `json:"balanceTillDate"`
}

// SalaryID is the id of the statement for an employee and month.
func SalaryID(month, employeeID string) string {
	return month + "-" + employeeID
}

// =============================================================================
// STORE
// =============================================================================

// Store is a retail location. All other entities are partitioned by its ID.
type Store struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,mobile"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
}
