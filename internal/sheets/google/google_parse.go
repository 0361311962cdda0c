package google

import (
	"fmt"
	"strings"
	"time"

	"finanzas/internal/core"
)

const sheetDateLayout = "2006-01-02 15:04"

// transactionRow renders t as the columns
// ID | Date | Kind | Category | Amount | Description | User.
func transactionRow(t core.Transaction, loc *time.Location) []any {
	return []any{
		t.ID,
		t.Date.In(loc).Format(sheetDateLayout),
		string(t.Kind),
		t.Category,
		core.FormatAmount(t.Amount),
		t.Description,
		t.UserID,
	}
}

func firstColumn(values [][]interface{}) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out
}

// findRow returns the 1-based sheet row holding id, or -1.
func findRow(ids []string, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, v := range ids {
		if v == id {
			return i + 1
		}
	}
	return -1
}
