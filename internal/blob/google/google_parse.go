package google

import (
	"fmt"
	"sort"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"
)

// slotRow locates a slot in the sheet. Rows are 1-based as in A1 notation.
type slotRow struct {
	row   int
	value string
}

// indexRows maps each key in column A to its row. Blank keys are skipped and
// the first occurrence of a duplicated key wins.
func indexRows(values [][]interface{}) map[string]slotRow {
	out := make(map[string]slotRow, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(row[0]))
		if key == "" {
			continue
		}
		if _, seen := out[key]; seen {
			continue
		}
		value := ""
		if len(row) > 1 {
			value = fmt.Sprint(row[1])
		}
		out[key] = slotRow{row: i + 1, value: value}
	}
	return out
}

// planWrites splits blobs into in-place updates of known rows and new rows
// to append. Both are ordered by key so calls are deterministic.
func planWrites(sheet string, index map[string]slotRow, blobs map[string][]byte) ([]*gsheet.ValueRange, [][]interface{}) {
	keys := make([]string, 0, len(blobs))
	for k := range blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var updates []*gsheet.ValueRange
	var appends [][]interface{}
	for _, k := range keys {
		v := string(blobs[k])
		if r, ok := index[k]; ok {
			updates = append(updates, &gsheet.ValueRange{
				Range:  fmt.Sprintf("%s!A%d:B%d", sheet, r.row, r.row),
				Values: [][]interface{}{{k, v}},
			})
			continue
		}
		appends = append(appends, []interface{}{k, v})
	}
	return updates, appends
}
