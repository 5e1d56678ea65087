package util

import (
	"fmt"
	"math"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count with binary units and up to three decimals.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	exp := int(math.Log(float64(size)) / math.Log(unit))
	if exp >= len(sizeUnits) {
		exp = len(sizeUnits) - 1
	}

	// Integer arithmetic keeps large sizes exact.
	div := int64(math.Pow(unit, float64(exp)))
	value := size / div
	remainder := size % div
	if remainder == 0 {
		return fmt.Sprintf("%d %s", value, sizeUnits[exp])
	}

	decimal := (remainder * 1000) / div
	switch {
	case decimal%10 != 0:
		return fmt.Sprintf("%d.%03d %s", value, decimal, sizeUnits[exp])
	case decimal%100 != 0:
		return fmt.Sprintf("%d.%02d %s", value, decimal/10, sizeUnits[exp])
	default:
		return fmt.Sprintf("%d.%d %s", value, decimal/100, sizeUnits[exp])
	}
}
