package csvcodec

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/warp/cashbook/till"
)

// Entity names used in filenames, routes and snapshot paths.
const (
	EntitySales    = "sales_records"
	EntityEmployee = "employees"
	EntityAdvance  = "salary_advances"
	EntitySalary   = "salary_data"
	EntityStore    = "stores"
)

var errDateRequired = errors.New("date is required")

// =============================================================================
// SALES
// =============================================================================

// SalesHeader is the export layout: inputs first, derived columns last.
var SalesHeader = []string{
	"Date", "Store ID", "Opening Cash", "Total POS Sales", "Paytm Sales",
	"Employee1 Advance", "Employee2 Advance", "Employee3 Advance", "Employee4 Advance",
	"Cleaning Expenses",
	"Other Expense 1 Name", "Other Expense 1 Amount", "Other Expense 2 Name", "Other Expense 2 Amount",
	"Rs.500 Count", "Rs.200 Count", "Rs.100 Count", "Rs.50 Count", "Rs.20 Count", "Rs.10 Count", "Rs.5 Count",
	"Cash Withdrawn",
	"Total Expenses", "Total from Denominations", "Closing Cash", "Total Cash Sales", "Total Cash", "Cash Difference",
}

// salesInputColumns is the number of leading input columns in SalesHeader.
const salesInputColumns = 22

// SalesTemplateHeader is the layout of the blank entry template. It has no
// Store ID and no derived columns.
var SalesTemplateHeader = []string{
	"date", "openingCash", "totalSalesPOS", "paytmSales",
	"employeeAdvances.employee1", "employeeAdvances.employee2", "employeeAdvances.employee3", "employeeAdvances.employee4",
	"cleaningExpenses",
	"otherExpenses.name1", "otherExpenses.amount1", "otherExpenses.name2", "otherExpenses.amount2",
	"denominations.d500", "denominations.d200", "denominations.d100", "denominations.d50",
	"denominations.d20", "denominations.d10", "denominations.d5",
	"cashWithdrawn",
}

// SalesSchema exports derived sales records and re-derives them on import.
// The Cash Difference column carries the engine's presented value; the
// stored difference is always recomputed from the inputs.
func SalesSchema(engine *till.Engine) Schema[till.SalesRecord] {
	return Schema[till.SalesRecord]{
		Header:     SalesHeader,
		MinColumns: salesInputColumns,
		Key:        func(r till.SalesRecord) string { return r.Date },
		Encode: func(r till.SalesRecord) []string {
			r = engine.Derive(r)
			row := []string{r.Date, r.StoreID}
			row = append(row, salesInputs(r)...)
			return append(row,
				money(r.TotalExpenses),
				money(r.TotalFromDenominations),
				money(r.ClosingCash),
				money(r.TotalCashSales),
				money(r.TotalCash),
				money(engine.Present(r.CashDifference)),
			)
		},
		Decode: func(row Row) (till.SalesRecord, error) {
			r := decodeSalesInputs(&row, 2)
			r.Date = row.String(0)
			r.StoreID = row.String(1)
			if r.Date == "" {
				row.Fail(0, errDateRequired)
			}
			if err := row.Err(); err != nil {
				return r, err
			}
			return engine.Derive(r), nil
		},
	}
}

// SalesTemplateSchema reads rows in the template layout.
func SalesTemplateSchema(engine *till.Engine) Schema[till.SalesRecord] {
	return Schema[till.SalesRecord]{
		Header:     SalesTemplateHeader,
		MinColumns: len(SalesTemplateHeader),
		Key:        func(r till.SalesRecord) string { return r.Date },
		Encode: func(r till.SalesRecord) []string {
			return append([]string{r.Date}, salesInputs(r)...)
		},
		Decode: func(row Row) (till.SalesRecord, error) {
			r := decodeSalesInputs(&row, 1)
			r.Date = row.String(0)
			if r.Date == "" {
				row.Fail(0, errDateRequired)
			}
			if err := row.Err(); err != nil {
				return r, err
			}
			return engine.Derive(r), nil
		},
	}
}

// DecodeSales reads either sales layout, chosen by the first header cell.
func DecodeSales(r io.Reader, engine *till.Engine) (Result[till.SalesRecord], error) {
	return DecodeWith(r, func(header []string) Schema[till.SalesRecord] {
		if len(header) > 0 && strings.TrimSpace(header[0]) == "date" {
			return SalesTemplateSchema(engine)
		}
		return SalesSchema(engine)
	})
}

// salesInputs encodes every input column after the date and store id.
func salesInputs(r till.SalesRecord) []string {
	row := []string{
		money(r.OpeningCash),
		money(r.TotalSalesPOS),
		money(r.PaytmSales),
	}
	for _, a := range r.EmployeeAdvances.Slots() {
		row = append(row, money(a))
	}
	row = append(row,
		money(r.CleaningExpenses),
		r.OtherExpenses.Name1, money(r.OtherExpenses.Amount1),
		r.OtherExpenses.Name2, money(r.OtherExpenses.Amount2),
	)
	for _, n := range till.Notes {
		row = append(row, count(r.Denominations.Count(n)))
	}
	return append(row, money(r.CashWithdrawn))
}

// decodeSalesInputs reads the input columns starting at column i.
func decodeSalesInputs(row *Row, i int) till.SalesRecord {
	var r till.SalesRecord
	r.OpeningCash = row.Money(i)
	r.TotalSalesPOS = row.Money(i + 1)
	r.PaytmSales = row.Money(i + 2)
	r.EmployeeAdvances = till.EmployeeAdvances{
		Employee1: row.Money(i + 3),
		Employee2: row.Money(i + 4),
		Employee3: row.Money(i + 5),
		Employee4: row.Money(i + 6),
	}
	r.CleaningExpenses = row.Money(i + 7)
	r.OtherExpenses = till.OtherExpenses{
		Name1:   row.String(i + 8),
		Amount1: row.Money(i + 9),
		Name2:   row.String(i + 10),
		Amount2: row.Money(i + 11),
	}
	for n, note := range till.Notes {
		r.Denominations.Set(note, row.Count(i+12+n))
	}
	r.CashWithdrawn = row.Money(i + 12 + len(till.Notes))
	return r
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeSchema is the store-scoped employee export.
var EmployeeSchema = Schema[till.Employee]{
	Header:     []string{"id", "name", "mobile", "joiningDate", "employeeNumber"},
	MinColumns: 2,
	Key:        EmployeeKey,
	Encode: func(e till.Employee) []string {
		num := ""
		if e.EmployeeNumber != 0 {
			num = strconv.Itoa(e.EmployeeNumber)
		}
		return []string{e.ID, e.Name, e.Mobile, e.JoiningDate, num}
	},
	Decode: func(row Row) (till.Employee, error) {
		e := till.Employee{
			ID:             row.String(0),
			Name:           row.String(1),
			Mobile:         row.String(2),
			JoiningDate:    row.String(3),
			EmployeeNumber: int(row.Count(4)),
		}
		if e.Name == "" {
			row.Fail(1, fmt.Errorf("name is required"))
		}
		return e, row.Err()
	},
}

// EmployeeTemplateSchema is the name,mobile,joiningDate layout. Ids are
// assigned by the repository on import.
var EmployeeTemplateSchema = Schema[till.Employee]{
	Header:     []string{"name", "mobile", "joiningDate"},
	MinColumns: 1,
	Key:        EmployeeKey,
	Encode: func(e till.Employee) []string {
		return []string{e.Name, e.Mobile, e.JoiningDate}
	},
	Decode: func(row Row) (till.Employee, error) {
		e := till.Employee{
			Name:        row.String(0),
			Mobile:      row.String(1),
			JoiningDate: row.String(2),
		}
		if e.Name == "" {
			row.Fail(0, fmt.Errorf("name is required"))
		}
		return e, row.Err()
	},
}

// EmployeeKey dedupes employees by case-insensitive name.
func EmployeeKey(e till.Employee) string {
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// DecodeEmployees reads either employee layout, chosen by the first header cell.
func DecodeEmployees(r io.Reader) (Result[till.Employee], error) {
	return DecodeWith(r, func(header []string) Schema[till.Employee] {
		if len(header) > 0 && strings.EqualFold(strings.TrimSpace(header[0]), "id") {
			return EmployeeSchema
		}
		return EmployeeTemplateSchema
	})
}

// =============================================================================
// STORES
// =============================================================================

// StoreSchema is the store registry layout.
var StoreSchema = Schema[till.Store]{
	Header:     []string{"id", "name", "address", "phone", "email", "isActive", "createdAt"},
	MinColumns: 2,
	Key:        func(s till.Store) string { return s.ID },
	Encode: func(s till.Store) []string {
		return []string{s.ID, s.Name, s.Address, s.Phone, s.Email, strconv.FormatBool(s.IsActive), s.CreatedAt}
	},
	Decode: func(row Row) (till.Store, error) {
		s := till.Store{
			ID:        row.String(0),
			Name:      row.String(1),
			Address:   row.String(2),
			Phone:     row.String(3),
			Email:     row.String(4),
			IsActive:  row.Bool(5),
			CreatedAt: row.String(6),
		}
		if s.ID == "" {
			row.Fail(0, fmt.Errorf("id is required"))
		}
		return s, row.Err()
	},
}

// =============================================================================
// SALARY LEDGER
// =============================================================================

// AdvanceSchema is the per-store advance snapshot layout.
var AdvanceSchema = Schema[till.SalaryAdvance]{
	Header:     []string{"id", "date", "amount", "employeeId", "comments", "type"},
	MinColumns: 4,
	Key:        func(a till.SalaryAdvance) string { return a.ID },
	Encode: func(a till.SalaryAdvance) []string {
		return []string{a.ID, a.Date, money(a.Amount), a.EmployeeID, a.Comments, string(a.Type)}
	},
	Decode: func(row Row) (till.SalaryAdvance, error) {
		a := till.SalaryAdvance{
			ID:         row.String(0),
			Date:       row.String(1),
			Amount:     row.Money(2),
			EmployeeID: row.String(3),
			Comments:   row.String(4),
			Type:       till.AdvanceBank,
		}
		switch t := strings.ToLower(row.String(5)); t {
		case "":
		case string(till.AdvanceBank), string(till.AdvanceCash):
			a.Type = till.AdvanceType(t)
		default:
			row.Fail(5, fmt.Errorf("unknown advance type %q", t))
		}
		if a.EmployeeID == "" {
			row.Fail(3, fmt.Errorf("employeeId is required"))
		}
		return a, row.Err()
	},
}

// SalarySchema is the per-store monthly statement layout.
var SalarySchema = Schema[till.EmployeeSalary]{
	Header: []string{
		"id", "month", "employeeId", "salary", "totalSales",
		"monthlyBankTransfers", "monthlyCashWithdrawn", "totalSalaryAdvance",
		"balanceCurrent", "balanceTillDate",
	},
	MinColumns: 4,
	Key:        func(s till.EmployeeSalary) string { return s.ID },
	Encode: func(s till.EmployeeSalary) []string {
		return []string{
			s.ID, s.Month, s.EmployeeID,
			money(s.Salary), money(s.TotalSales),
			money(s.MonthlyBankTransfers), money(s.MonthlyCashWithdrawn), money(s.TotalSalaryAdvance),
			money(s.BalanceCurrent), money(s.BalanceTillDate),
		}
	},
	Decode: func(row Row) (till.EmployeeSalary, error) {
		s := till.EmployeeSalary{
			ID:                   row.String(0),
			Month:                row.String(1),
			EmployeeID:           row.String(2),
			Salary:               row.Money(3),
			TotalSales:           row.Money(4),
			MonthlyBankTransfers: row.Money(5),
			MonthlyCashWithdrawn: row.Money(6),
			TotalSalaryAdvance:   row.Money(7),
			BalanceCurrent:       row.Money(8),
			BalanceTillDate:      row.Money(9),
		}
		if s.Month == "" || s.EmployeeID == "" {
			row.Fail(1, fmt.Errorf("month and employeeId are required"))
		}
		if s.ID == "" {
			s.ID = till.SalaryID(s.Month, s.EmployeeID)
		}
		return s, row.Err()
	},
}
