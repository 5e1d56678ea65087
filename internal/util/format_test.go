package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		expected string
	}{
		{"Zero bytes", 0, "0 B"},
		{"Max bytes", 1023, "1023 B"},
		{"Exact 1 KB", 1024, "1 KB"},
		{"1.5 KB", 1536, "1.5 KB"},
		{"1.25 KB", 1280, "1.25 KB"},
		{"1.125 KB", 1152, "1.125 KB"},
		{"Small remainder", 1025, "1.0 KB"},
		{"Three decimals", 1034, "1.009 KB"},
		{"Max KB", 1048575, "1023.999 KB"},
		{"Exact 1 MB", 1048576, "1 MB"},
		{"2.25 MB", 2359296, "2.25 MB"},
		{"Exact 1 GB", 1073741824, "1 GB"},
		{"Max int64", 9223372036854775807, "8191.999 PB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSize(tt.size))
		})
	}
}
