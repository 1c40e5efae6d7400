package http

import (
	"github.com/go-chi/chi/v5"

	auth "github.com/fideprep/fideprep-api/internal/auth/middleware"
	"github.com/fideprep/fideprep-api/internal/catalog"
	"github.com/fideprep/fideprep-api/internal/exam"
	"github.com/fideprep/fideprep-api/internal/logger"
	"github.com/fideprep/fideprep-api/internal/rbac"
	"github.com/fideprep/fideprep-api/internal/storage"
)

type Deps struct {
	Exams           *exam.Service
	Catalog         *catalog.Catalog
	Blobs           storage.BlobStore
	Verifier        auth.Verifier
	AdminSubjects   []string
	DefaultLanguage catalog.Language
	Log             *logger.Logger
}

// Mount registers the authenticated API on r.
func Mount(r chi.Router, d Deps) {
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Verifier, d.Log), auth.PromoteAdmins(d.AdminSubjects))

		pr.Route("/exam", func(er chi.Router) {
			er.With(rbac.Require(rbac.PermExamStart)).Post("/mock/start", StartHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamStart)).Post("/mock/listening/start", ListeningStartHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamDecide)).Post("/mock/{examID}/decision", DecisionHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamDecide)).Post("/mock/{examID}/listening/decision", ListeningDecisionHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamAnswer)).Post("/mock/{examID}/answer", AnswerHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamAnswer)).Delete("/mock/{examID}/answer/{sectionType}/{questionID}", DeleteAnswerHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamComplete)).Post("/mock/{examID}/complete", CompleteHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamViewOwn)).Get("/history", HistoryHandler(d.Exams))
			er.With(rbac.Require(rbac.PermExamViewOwn)).Get("/{examID}", DetailHandler(d.Exams))
		})

		pr.With(rbac.Require(rbac.PermCatalogView)).
			Get("/catalog/sections", ListSectionsHandler(d.Catalog, d.DefaultLanguage))

		pr.Route("/assets", func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermExamAnswer))
			MountAssets(ar, d.Blobs, d.Exams)
		})
	})
}
