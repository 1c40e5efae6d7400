package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fideprep/fideprep-api/internal/apierr"
	"github.com/fideprep/fideprep-api/internal/rbac"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apierr.InvalidInput("bad json: %v", err)
	}
	return nil
}

func examIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "examID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.InvalidInput("exam id %q must be a positive integer", raw)
	}
	return id, nil
}

func subject(r *http.Request) (string, error) {
	sub := rbac.SubjectFromContext(r.Context())
	if sub == "" {
		return "", apierr.Unauthenticated("no authenticated user")
	}
	return sub, nil
}

// flexID accepts an exam id sent either as a JSON number or a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil || n < 0 {
		return errors.New("examId must be a positive integer")
	}
	*f = flexID(n)
	return nil
}
