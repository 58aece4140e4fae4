package util

import (
	"fmt"
	"strings"
)

// ParseSize converts a size string (e.g., "100k", "2M", "64KiB") to a count.
// Decimal suffixes (k, M, G) multiply by powers of 1000 and binary suffixes
// (Ki, Mi, Gi) by powers of 1024. A bare number is taken as-is.
// If the string is empty, it returns 0.
func ParseSize(size string) (int, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, nil
	}

	var value float64
	var unit string

	n, err := fmt.Sscanf(size, "%f%s", &value, &unit)
	if err != nil && n == 0 {
		return 0, fmt.Errorf("invalid size value: %s", size)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative size value: %s", size)
	}

	if n == 1 {
		return int(value), nil
	}

	unit = strings.ToUpper(strings.TrimSpace(unit))
	switch unit {
	case "B":
		return int(value), nil
	case "K", "KB":
		return int(value * 1000), nil
	case "KI", "KIB":
		return int(value * 1024), nil
	case "M", "MB":
		return int(value * 1000 * 1000), nil
	case "MI", "MIB":
		return int(value * 1024 * 1024), nil
	case "G", "GB":
		return int(value * 1000 * 1000 * 1000), nil
	case "GI", "GIB":
		return int(value * 1024 * 1024 * 1024), nil
	default:
		return 0, fmt.Errorf("unknown size unit: %s", unit)
	}
}
