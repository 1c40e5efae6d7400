package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fideprep/fideprep-api/internal/apierr"
	"github.com/fideprep/fideprep-api/internal/exam"
)

// POST /exam/mock/start {examId?, language?}
func StartHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		var req struct {
			ExamID   flexID `json:"examId"`
			Language string `json:"language"`
		}
		if err := decodeJSON(r, &req); err != nil {
			apierr.Write(w, err)
			return
		}
		res, err := svc.Start(r.Context(), sub, exam.StartRequest{ExamID: int64(req.ExamID), Language: req.Language})
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /exam/mock/{examID}/decision {choice}
func DecisionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		id, err := examIDParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		var req struct {
			Choice json.RawMessage `json:"choice"`
		}
		if err := decodeJSON(r, &req); err != nil {
			rejectBody(w, r, svc, id, sub, err)
			return
		}
		// an unparseable choice stays zero; Decide rejects it after the owner check
		choice, _ := exam.ParseChoice(req.Choice)
		res, err := svc.Decide(r.Context(), id, sub, choice)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /exam/mock/listening/start {path?, speakingExamId?, language?}
func ListeningStartHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		var req struct {
			Path           string `json:"path"`
			SpeakingExamID flexID `json:"speakingExamId"`
			Language       string `json:"language"`
		}
		if err := decodeJSON(r, &req); err != nil {
			apierr.Write(w, err)
			return
		}
		res, err := svc.StartListening(r.Context(), sub, exam.ListeningRequest{
			Path:           req.Path,
			SpeakingExamID: int64(req.SpeakingExamID),
			Language:       req.Language,
		})
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /exam/mock/{examID}/listening/decision {choice: "A1"|"B1"}
func ListeningDecisionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		id, err := examIDParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		var req struct {
			Choice json.RawMessage `json:"choice"`
		}
		if err := decodeJSON(r, &req); err != nil {
			rejectBody(w, r, svc, id, sub, err)
			return
		}
		var path exam.Path
		if choice, err := exam.ParseChoice(req.Choice); err == nil {
			switch choice.Kind {
			case exam.ChoiceA1:
				path = exam.PathA1
			case exam.ChoiceB1Start:
				path = exam.PathB1
			}
		}
		res, err := svc.ListeningDecision(r.Context(), id, sub, path)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /exam/mock/{examID}/answer {answers: [...]}
func AnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		id, err := examIDParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		var req struct {
			Answers []exam.AnswerInput `json:"answers"`
		}
		if err := decodeJSON(r, &req); err != nil {
			rejectBody(w, r, svc, id, sub, err)
			return
		}
		n, err := svc.SubmitAnswers(r.Context(), id, sub, req.Answers)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
	}
}

// DELETE /exam/mock/{examID}/answer/{sectionType}/{questionID}?mode=
func DeleteAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		id, err := examIDParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		deleted, err := svc.DeleteLatestAnswer(r.Context(), id, sub,
			chi.URLParam(r, "sectionType"), r.URL.Query().Get("mode"), chi.URLParam(r, "questionID"))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deletedId": deleted})
	}
}

// POST /exam/mock/{examID}/complete
func CompleteHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		id, err := examIDParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if _, err := svc.Complete(r.Context(), id, sub); err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// GET /exam/history
func HistoryHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		hist, err := svc.History(r.Context(), sub)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exams": hist})
	}
}

// GET /exam/{examID}
func DetailHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subject(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		id, err := examIDParam(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		d, err := svc.Detail(r.Context(), id, sub)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// rejectBody reports a malformed body, unless the exam is missing or not the
// caller's, in which case that NotFound wins.
func rejectBody(w http.ResponseWriter, r *http.Request, svc *exam.Service, id int64, sub string, err error) {
	if _, oerr := svc.Session(r.Context(), id, sub); oerr != nil {
		err = oerr
	}
	apierr.Write(w, err)
}
