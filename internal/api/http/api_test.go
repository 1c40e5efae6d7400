package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/fideprep/fideprep-api/internal/auth/middleware"
	"github.com/fideprep/fideprep-api/internal/catalog"
	"github.com/fideprep/fideprep-api/internal/exam"
	"github.com/fideprep/fideprep-api/internal/logger"
	"github.com/fideprep/fideprep-api/internal/storage"
)

type testAPI struct {
	srv   *httptest.Server
	auth  *auth.AuthService
	blobs storage.BlobStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	sections := []catalog.Section{
		{ID: "p0", Level: catalog.LevelA2, Mode: catalog.ModeSpeaking, Language: catalog.LangFR, SequenceIndex: 0},
		{ID: "p1", Level: catalog.LevelA2, Mode: catalog.ModeSpeaking, Language: catalog.LangFR, SequenceIndex: 1},
		{ID: "s0", Level: catalog.LevelA1, Mode: catalog.ModeSpeaking, Language: catalog.LangFR},
		{ID: "t0", Level: catalog.LevelB1, Mode: catalog.ModeSpeaking, Language: catalog.LangFR, Title: "Festivals"},
		{ID: "t1", Level: catalog.LevelB1, Mode: catalog.ModeSpeaking, Language: catalog.LangFR, Title: "Work", SequenceIndex: 1},
		{ID: "l0", Level: catalog.LevelA2, Mode: catalog.ModeListening, Language: catalog.LangFR},
		{ID: "la0", Level: catalog.LevelA1, Mode: catalog.ModeListening, Language: catalog.LangFR},
		{ID: "lb0", Level: catalog.LevelB1, Mode: catalog.ModeListening, Language: catalog.LangFR},
	}
	for _, s := range sections {
		_, err := blobs.Put(s.Ref(), strings.NewReader(`{"items":[{"id":"q1"}]}`))
		require.NoError(t, err)
	}
	cat := catalog.New(catalog.NewMemoryRepo(sections...), blobs)
	svc := exam.NewService(exam.NewInMemoryStore(), cat)
	a := auth.NewAuthService("api-test")

	r := chi.NewRouter()
	r.Use(RequestLogger(logger.Nop()))
	Mount(r, Deps{
		Exams:           svc,
		Catalog:         cat,
		Blobs:           blobs,
		Verifier:        a,
		AdminSubjects:   []string{"uid-admin"},
		DefaultLanguage: catalog.LangFR,
		Log:             logger.Nop(),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, auth: a, blobs: blobs}
}

func (api *testAPI) token(t *testing.T, sub string) string {
	t.Helper()
	tok, err := api.auth.IssueJWT(sub, "")
	require.NoError(t, err)
	return tok
}

func (api *testAPI) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, api.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func errCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["code"].(string)
	return s
}

func firstSectionID(body map[string]any) string {
	secs, _ := body["sections"].([]any)
	if len(secs) == 0 {
		return ""
	}
	sec, _ := secs[0].(map[string]any)["section"].(map[string]any)
	id, _ := sec["id"].(string)
	return id
}

func TestSpeakingFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "u1")

	code, body := api.do(t, http.MethodPost, "/exam/mock/start", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", errCode(body))

	code, body = api.do(t, http.MethodPost, "/exam/mock/start", tok, `{"language":"fr"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["alreadySeen"])
	assert.Equal(t, "p0", firstSectionID(body))
	examID := int64(body["examId"].(float64))
	base := fmt.Sprintf("/exam/mock/%d", examID)

	code, body = api.do(t, http.MethodPost, base+"/decision", tok, `{"choice":"B1"}`)
	require.Equal(t, http.StatusOK, code, body)
	ts := body["topicSelection"].(map[string]any)
	assert.Nil(t, body["selectedPath"], "path stays open until a topic is chosen")
	opts := ts["options"].([]any)
	require.Len(t, opts, 2)
	second := opts[1].(map[string]any)["id"].(string)
	assert.NotEqual(t, opts[0].(map[string]any)["id"], second)

	code, body = api.do(t, http.MethodPost, base+"/decision", tok, fmt.Sprintf(`{"choice":%q}`, second))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "B1", body["selectedPath"])
	assert.Equal(t, second, firstSectionID(body))

	code, body = api.do(t, http.MethodPost, base+"/answer", tok,
		`{"answers":[{"sectionType":"B1","questionId":"B1_q1","answerText":"je pense que"}]}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(1), body["count"])

	code, body = api.do(t, http.MethodGet, fmt.Sprintf("/exam/%d", examID), tok, "")
	require.Equal(t, http.StatusOK, code, body)
	ex := body["exam"].(map[string]any)
	assert.Equal(t, "B1", ex["selectedPath"])
	assert.Nil(t, ex["speakingA1Id"])
	answers := body["answers"].([]any)
	require.Len(t, answers, 1)
	assert.Equal(t, "q1", answers[0].(map[string]any)["questionId"])

	code, body = api.do(t, http.MethodDelete, base+"/answer/B1/q1", tok, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.NotZero(t, body["deletedId"])
	code, _ = api.do(t, http.MethodDelete, base+"/answer/B1/q1?mode=Speaking", tok, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(t, http.MethodPost, base+"/complete", tok, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])

	code, body = api.do(t, http.MethodGet, "/exam/history", tok, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["exams"], 1)
}

func TestRequestValidation(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "u1")

	code, body := api.do(t, http.MethodPost, "/exam/mock/start", tok, `{"examId":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", errCode(body))

	code, body = api.do(t, http.MethodPost, "/exam/mock/start", tok, `{"examId":"0"}`)
	require.Equal(t, http.StatusOK, code)
	examID := int64(body["examId"].(float64))

	code, _ = api.do(t, http.MethodGet, "/exam/abc", tok, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(t, http.MethodPost, fmt.Sprintf("/exam/mock/%d/decision", examID), tok, `{"choice":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do(t, http.MethodPost, fmt.Sprintf("/exam/mock/%d/decision", examID), tok, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do(t, http.MethodPost, fmt.Sprintf("/exam/mock/%d/answer", examID), tok, `{"answers":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do(t, http.MethodPost, fmt.Sprintf("/exam/mock/%d/answer", examID), tok, `{"answers":`)
	assert.Equal(t, http.StatusBadRequest, code)

	// resume by string id
	code, body = api.do(t, http.MethodPost, "/exam/mock/start", tok, fmt.Sprintf(`{"examId":"%d"}`, examID))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["resumed"])
}

func TestOwnershipAndRoles(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token(t, "owner")
	other := api.token(t, "other")

	_, body := api.do(t, http.MethodPost, "/exam/mock/start", owner, "")
	examID := int64(body["examId"].(float64))

	code, body := api.do(t, http.MethodGet, fmt.Sprintf("/exam/%d", examID), other, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", errCode(body))
	code, _ = api.do(t, http.MethodPost, fmt.Sprintf("/exam/mock/%d/complete", examID), other, "")
	assert.Equal(t, http.StatusNotFound, code)

	// payload validity does not leak whether the exam exists
	for _, c := range []struct{ path, body string }{
		{fmt.Sprintf("/exam/mock/%d/decision", examID), `{}`},
		{fmt.Sprintf("/exam/mock/%d/decision", examID), `{"choice":true}`},
		{fmt.Sprintf("/exam/mock/%d/decision", examID), `{"choice":`},
		{fmt.Sprintf("/exam/mock/%d/listening/decision", examID), `{"choice":"C2"}`},
		{fmt.Sprintf("/exam/mock/%d/answer", examID), `{"answers":[]}`},
		{fmt.Sprintf("/exam/mock/%d/answer", examID), `{"answers":`},
		{"/exam/mock/987654/decision", `{}`},
		{"/exam/mock/987654/answer", `{"answers":[]}`},
	} {
		code, body := api.do(t, http.MethodPost, c.path, other, c.body)
		assert.Equal(t, http.StatusNotFound, code, "%s %s", c.path, c.body)
		assert.Equal(t, "not_found", errCode(body), "%s %s", c.path, c.body)
	}

	code, _ = api.do(t, http.MethodGet, "/catalog/sections?level=A2", owner, "")
	assert.Equal(t, http.StatusForbidden, code)

	admin := api.token(t, "uid-admin")
	code, body = api.do(t, http.MethodGet, "/catalog/sections?level=b1&mode=speaking", admin, "")
	require.Equal(t, http.StatusOK, code)
	secs := body["sections"].([]any)
	require.Len(t, secs, 2)
	assert.Equal(t, "t0", secs[0].(map[string]any)["id"])

	code, _ = api.do(t, http.MethodGet, "/catalog/sections?level=Z9", admin, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListeningOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "u1")

	code, body := api.do(t, http.MethodPost, "/exam/mock/listening/start", tok, `{"path":"A1"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "A1", body["selectedPath"])
	assert.Len(t, body["sections"], 2)
	examID := int64(body["examId"].(float64))

	url := fmt.Sprintf("/exam/mock/%d/listening/decision", examID)
	code, body = api.do(t, http.MethodPost, url, tok, `{"choice":"B1"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "lb0", firstSectionID(body))

	code, _ = api.do(t, http.MethodPost, url, tok, `{"choice":"t0"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRecordingUploadAndFetch(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "u1")
	_, body := api.do(t, http.MethodPost, "/exam/mock/start", tok, "")
	examID := int64(body["examId"].(float64))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "answer.webm")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("OggS-audio"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/assets/recordings/%d", api.srv.URL, examID), &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var up map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	key := up["audioUrl"]
	assert.True(t, strings.HasPrefix(key, fmt.Sprintf("recordings/u1/%d/", examID)), key)

	get := func(token, path string) (int, string) {
		req, err := http.NewRequest(http.MethodGet, api.srv.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}
	code, got := get(tok, "/assets/"+key)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OggS-audio", got)

	other := api.token(t, "u2")
	code, _ = get(other, "/assets/"+key)
	assert.Equal(t, http.StatusNotFound, code)

	_, err = api.blobs.Put("media/a2/l0.mp3", strings.NewReader("ID3"))
	require.NoError(t, err)
	code, got = get(other, "/assets/media/a2/l0.mp3")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ID3", got)
}
