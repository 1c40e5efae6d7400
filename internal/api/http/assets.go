package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fideprep/fideprep-api/internal/apierr"
	"github.com/fideprep/fideprep-api/internal/exam"
	"github.com/fideprep/fideprep-api/internal/rbac"
	"github.com/fideprep/fideprep-api/internal/storage"
)

const maxRecordingBytes = 20 << 20

// MountAssets serves section media and answer recordings.
//
//	POST /assets/recordings/{examID}  multipart "file" -> {"audioUrl": key}
//	GET  /assets/*                    media/... or the caller's own recordings
func MountAssets(r chi.Router, bs storage.BlobStore, svc *exam.Service) {
	r.Post("/recordings/{examID}", func(w http.ResponseWriter, r *http.Request) {
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
		if _, err := svc.Session(r.Context(), id, sub); err != nil {
			apierr.Write(w, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRecordingBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			apierr.Write(w, apierr.InvalidInput("file required"))
			return
		}
		defer f.Close()

		ext := strings.ToLower(path.Ext(hdr.Filename))
		if ext == "" {
			ext = ".webm"
		}
		key := path.Join("recordings", sub, chi.URLParam(r, "examID"), uuid.NewString()+ext)
		if _, err := bs.Put(key, f); err != nil {
			apierr.Write(w, apierr.Internal(err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"audioUrl": key})
	})

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
		own := "recordings/" + rbac.SubjectFromContext(r.Context()) + "/"
		if !strings.HasPrefix(key, "media/") && !strings.HasPrefix(key, own) {
			apierr.Write(w, apierr.NotFound("asset"))
			return
		}
		rc, err := bs.Get(key)
		if errors.Is(err, storage.ErrNotFound) {
			apierr.Write(w, apierr.NotFound("asset"))
			return
		}
		if err != nil {
			apierr.Write(w, apierr.Internal(err))
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
