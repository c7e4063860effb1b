package google

import (
	"fmt"
	"strings"
)

// findRowByID returns the 1-based row number whose first cell equals id, or
// 0 when no row matches. values is a single-column range as returned by the
// Sheets API.
func findRowByID(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// columnLetter converts a 1-based column index to its A1 letter form.
func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
