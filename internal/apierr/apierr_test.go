package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAndCodeSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("decide: %w", NotFound("exam"))
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Equal(t, "not_found", CodeOf(err))

	plain := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.Equal(t, "internal", CodeOf(plain))

	cause := errors.New("no sections")
	assert.ErrorIs(t, Configuration(cause), cause)
}

func TestWriteEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, InvalidInput("bad level %q", "Z9"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "invalid_input", env.Error.Code)
	assert.Equal(t, `bad level "Z9"`, env.Error.Message)

	rec = httptest.NewRecorder()
	Write(rec, Internal(errors.New("pq: connection refused")))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Internal Server Error", env.Error.Message)
}
