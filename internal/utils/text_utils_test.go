package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateTextUnderLimit(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	assert.Equal(t, "short", tp.TruncateText("short", 100))
}

func TestTruncateTextNoLimitWhenZero(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	long := strings.Repeat("x", 5000)
	assert.Equal(t, long, tp.TruncateText(long, 0))
}

func TestTruncateTextCutsOnRuneBoundary(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	text := strings.Repeat("é", 10)

	out := tp.TruncateText(text, 5)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasPrefix(out, "éé"))
	assert.Contains(t, out, "Content truncated")
}

func TestSanitizeUTF8DropsInvalidBytes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	assert.Equal(t, "abc", tp.SanitizeUTF8("ab\xffc"))
}

func TestSanitizeUTF8KeepsValidText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	assert.Equal(t, "a�b", tp.SanitizeUTF8("a�b"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	assert.Equal(t, "hello  world", tp.ProcessText("hello \xff world", 1000))
}
