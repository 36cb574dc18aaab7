package app

import (
	"database/sql"
	"net/http"
	"time"

	"questgen/internal/app/observability"
	"questgen/internal/auth"
	"questgen/internal/masterdata"
	"questgen/internal/paper"
	"questgen/internal/question"
	"questgen/internal/report"
	"questgen/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, db *sql.DB, files *storage.FileStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", csrfHeaderName},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	authHandler := auth.NewHandler(auth.NewService(cfg.AdminUser, cfg.AdminPassHash))

	masterSvc := masterdata.NewService(db)
	masterHandler := masterdata.NewHandler(masterSvc)

	questionSvc := question.NewService(db)
	bankSvc := question.NewBankService(files, questionSvc).WithEvents(collector)
	questionHandler := question.NewHandler(questionSvc, bankSvc, cfg.MaxUploadMB)

	paperSvc := paper.NewService(paper.NewStore(db), questionSvc, cfg.RecentDraftWindow).WithEvents(collector)
	paperHandler := paper.NewHandler(paperSvc)
	reportHandler := report.NewHandler(report.NewService(paperSvc))

	limiter := NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api", func(api chi.Router) {
		api.Use(authHandler.RequireAuth)
		api.Use(RateLimitMiddleware(limiter))
		api.Use(CSRFMiddleware(cfg.CSRFEnforced))

		api.Get("/auth/me", authHandler.Me)
		api.Get("/auth/csrf", IssueCSRFToken)

		api.Post("/schemes", masterHandler.CreateScheme)
		api.Get("/schemes", masterHandler.ListSchemes)
		api.Post("/subjects", masterHandler.CreateSubject)
		api.Get("/subjects", masterHandler.ListSubjects)

		api.Post("/question-banks", questionHandler.UploadBank)
		api.Get("/question-banks", questionHandler.ListBanks)
		api.Get("/question-banks/{id}/file", questionHandler.DownloadBank)
		api.Delete("/question-banks/{id}", questionHandler.DeleteBank)

		api.Get("/questions", questionHandler.ListQuestions)
		api.Get("/questions/export", questionHandler.ExportQuestions)
		api.Patch("/questions/{id}", questionHandler.UpdateQuestion)

		api.Post("/generate-paper", paperHandler.GeneratePaper)
		api.Get("/paper-drafts/{id}", paperHandler.GetDraft)
		api.Put("/paper-drafts/{id}", paperHandler.UpdateDraft)
		api.Post("/paper-drafts/{id}/export", paperHandler.ExportDraft)
		api.Get("/paper-drafts/{id}/summary", reportHandler.Summary)
	})

	return r
}
