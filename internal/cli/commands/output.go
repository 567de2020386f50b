package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
)

// invalidInput renders a validation failure as one line per field
func invalidInput(err error) error {
	verr, ok := apperr.AsValidation(err)
	if !ok {
		return err
	}

	fields := make([]string, 0, len(verr.Fields))
	for field := range verr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := make([]string, len(fields))
	for i, field := range fields {
		lines[i] = fmt.Sprintf("  %s: %s", field, verr.Fields[field])
	}
	return fmt.Errorf("invalid input:\n%s", strings.Join(lines, "\n"))
}

// truncate shortens s to n runes for table cells
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
