package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]interface{}{"exam_id", 7, "access_token", "abc", "Password", "p", "dangling"})
	assert.Equal(t, []interface{}{"exam_id", 7, "access_token", "[REDACTED]", "Password", "[REDACTED]", "dangling"}, got)
}
