package csvcodec

import (
	"path"
	"strings"
	"time"

	"github.com/warp/cashbook/till"
)

// Merge appends the incoming items whose key is not already present.
// Existing items are never replaced, and duplicates within incoming keep
// their first occurrence. added is the number of items appended.
func Merge[T any](existing, incoming []T, key func(T) string) (merged []T, added int) {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged = make([]T, 0, len(existing)+len(incoming))
	for _, item := range existing {
		seen[key(item)] = true
		merged = append(merged, item)
	}
	for _, item := range incoming {
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, item)
		added++
	}
	return merged, added
}

// ExportFilename is the download name of a bulk export, e.g.
// employees_2024-03-01.csv.
func ExportFilename(entity string, day time.Time) string {
	return entity + "_" + day.Format(till.DateLayout) + ".csv"
}

// SnapshotPath is the slash-separated path of a store's snapshot file.
func SnapshotPath(storeID, entity string) string {
	return path.Join(storeID, entity+".csv")
}

// =============================================================================
// TEMPLATES
// =============================================================================

// EmployeeTemplate is the sample employee import file.
func EmployeeTemplate() string {
	return "name,mobile,joiningDate\n" +
		"John Doe,9876543210,2023-01-01\n" +
		"Jane Smith,8765432109,2023-02-15\n"
}

// SalesTemplate is the sample sales import file.
func SalesTemplate() string {
	return strings.Join(SalesTemplateHeader, ",") + "\n" +
		"2023-04-01,5000,15000,3000,500,0,0,0,200,Maintenance,300,Supplies,150,5,10,20,15,10,5,2,1000\n"
}

// Template returns the sample file for an entity.
func Template(entity string) (string, bool) {
	switch entity {
	case EntityEmployee:
		return EmployeeTemplate(), true
	case EntitySales:
		return SalesTemplate(), true
	}
	return "", false
}
