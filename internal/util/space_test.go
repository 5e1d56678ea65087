package util

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		str      string
		width    int
		expected string
	}{
		{"Empty string", "", 5, "     "},
		{"Short string", "abc", 10, "abc       "},
		{"Exact width", "hello", 5, "hello"},
		{"String too long", "this is a very long string", 10, "this is..."},
		{"Width 3", "hello", 3, "..."},
		{"Width 4", "hello", 4, "h..."},
		{"Chinese characters", "你好", 8, "你好    "},
		{"Mixed characters", "hello世界", 12, "hello世界   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PadRight(tt.str, tt.width))
		})
	}
}

func TestPadRight_VisualWidth(t *testing.T) {
	for _, str := range []string{"abc", "café", "你好", "a你b", "00000000-0000-0000-0000-000000000000"} {
		result := PadRight(str, 12)
		if strings.HasSuffix(result, "...") {
			assert.LessOrEqual(t, runewidth.StringWidth(result), 12, str)
			continue
		}
		assert.Equal(t, 12, runewidth.StringWidth(result), str)
	}
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "   1.5 KB", PadLeft("1.5 KB", 9))
	assert.Equal(t, "  你好", PadLeft("你好", 6))
	assert.Equal(t, "1023.999 KB", PadLeft("1023.999 KB", 4), "wide values are not truncated")
}
