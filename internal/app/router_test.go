package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"questgen/internal/auth"
	internaldb "questgen/internal/db"
	"questgen/internal/storage"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	cfg := Config{
		CORSOrigins:       []string{"http://localhost:3000"},
		RateLimitPerMin:   60,
		AdminUser:         "admin",
		AdminPassHash:     hash,
		MaxUploadMB:       1,
		RecentDraftWindow: 5,
	}
	return NewRouter(cfg, internaldb.OpenMemory(t), files)
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		auth       bool
		wantStatus int
	}{
		{name: "healthz", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK},
		{name: "me_unauthorized", method: http.MethodGet, target: "/api/auth/me", wantStatus: http.StatusUnauthorized},
		{name: "me", method: http.MethodGet, target: "/api/auth/me", auth: true, wantStatus: http.StatusOK},
		{name: "schemes", method: http.MethodGet, target: "/api/schemes", auth: true, wantStatus: http.StatusOK},
		{name: "draft_missing", method: http.MethodGet, target: "/api/paper-drafts/99", auth: true, wantStatus: http.StatusNotFound},
		{name: "generate_invalid", method: http.MethodPost, target: "/api/generate-paper", body: `{}`, auth: true, wantStatus: http.StatusBadRequest},
		{name: "question_bad_id", method: http.MethodPatch, target: "/api/questions/x", body: `{}`, auth: true, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			if tc.auth {
				req.SetBasicAuth("admin", "secret")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("%s %s: got status %d, want %d body=%s", tc.method, tc.target, w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-paper", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q (status %d)", got, w.Code)
	}
}

func TestRouterSchemeToDraftFlow(t *testing.T) {
	router := newTestRouter(t)

	do := func(method, target, body string) map[string]any {
		t.Helper()
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.SetBasicAuth("admin", "secret")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code >= 300 {
			t.Fatalf("%s %s: status %d body=%s", method, target, w.Code, w.Body.String())
		}
		var out map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
		return out["data"].(map[string]any)
	}

	scheme := do(http.MethodPost, "/api/schemes", `{"name":"2022 Scheme"}`)
	schemeID := int(scheme["id"].(float64))
	subject := do(http.MethodPost, "/api/subjects", `{"scheme_id":`+itoa(schemeID)+`,"name":"Operating Systems"}`)
	subjectID := int(subject["id"].(float64))

	gen := do(http.MethodPost, "/api/generate-paper", `{"scheme_id":`+itoa(schemeID)+`,"subject_id":`+itoa(subjectID)+`,"questions":[{"qno":1}]}`)
	draftID := int(gen["draft_id"].(float64))
	paper := gen["paper"].(map[string]any)
	if paper["title"] != "INTERNAL ASSESSMENT TEST - 1" {
		t.Fatalf("expected default title, got %v", paper["title"])
	}

	summary := do(http.MethodGet, "/api/paper-drafts/"+itoa(draftID)+"/summary", "")
	if summary["parts"] != float64(2) || summary["placeholders"] != float64(2) {
		t.Fatalf("unexpected summary %v", summary)
	}

	updated := do(http.MethodPut, "/api/paper-drafts/"+itoa(draftID), `{"status":"FINAL"}`)
	if updated["status"] != "FINAL" {
		t.Fatalf("expected FINAL, got %v", updated["status"])
	}
}

func itoa(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}
