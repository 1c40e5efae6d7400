package apierr

import (
	"encoding/json"
	"net/http"
)

type Body struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type Envelope struct {
	Error Body `json:"error"`
}

// Write renders err as the JSON error envelope. Internal causes are not
// echoed to the client.
func Write(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	msg := http.StatusText(status)
	if status < 500 || status == http.StatusServiceUnavailable {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: Body{Message: msg, Code: CodeOf(err)}})
}
