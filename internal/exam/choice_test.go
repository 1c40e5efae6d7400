package exam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChoice(t *testing.T) {
	cases := map[string]DecisionChoice{
		`"A1"`:        ChooseA1(),
		`"b1"`:        ChooseB1(),
		`" B1 "`:      ChooseB1(),
		`"fr_b1_003"`: ChooseTopic("fr_b1_003"),
		`42`:          ChooseTopic("42"),
	}
	for raw, want := range cases {
		got, err := ParseChoice(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{``, `null`, `""`, `"  "`, `1.5`, `true`, `{"id":"x"}`, `["A1"]`} {
		_, err := ParseChoice(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidChoice, raw)
	}
}
