// Package formatting parses loosely formatted values: byte sizes written
// by operators in config files and JSON written by language models.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Base-1024 multipliers. Both "MB" and "MiB" spellings are accepted.
var multipliers = map[string]float64{
	"":  1,
	"B": 1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([KMGT]?)(?:I?B)?$`)

// ParseBytes converts a size such as "50MB", "1.5 GiB" or "4096" into a
// byte count. Unit letters are case-insensitive.
func ParseBytes(s string) (int64, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	if norm == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	m := sizePattern.FindStringSubmatch(norm)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	v := n * multipliers[m[2]]
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}

	return int64(v), nil
}

// FormatBytes renders n with one decimal using the largest fitting unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
