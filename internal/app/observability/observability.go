package observability

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"questgen/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
)

type key struct {
	Method string
	Path   string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

type Collector struct {
	db *sql.DB

	mu           sync.RWMutex
	requestStats map[key]stat
	events       map[string]int64
	startedAt    time.Time
}

func NewCollector(db *sql.DB) *Collector {
	return &Collector{
		db:           db,
		requestStats: make(map[key]stat),
		events:       make(map[string]int64),
		startedAt:    time.Now(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		path := normalizedPath(r.URL.Path)

		c.mu.Lock()
		k := key{Method: r.Method, Path: path, Status: rec.status}
		s := c.requestStats[k]
		s.Count++
		s.LatencyMS += latencyMS
		c.requestStats[k] = s
		c.mu.Unlock()

		requestID := middleware.GetReqID(r.Context())
		entry := map[string]any{
			"request_id": requestID,
			"user":       requestUser(r, rec.status),
			"method":     r.Method,
			"path":       path,
			"status":     rec.status,
			"latency_ms": latencyMS,
			"remote_ip":  strings.TrimSpace(r.RemoteAddr),
		}
		if id := extractResourceID(r.URL.Path, "paper-drafts"); id > 0 {
			entry["draft_id"] = id
		}
		if id := extractResourceID(r.URL.Path, "question-banks"); id > 0 {
			entry["bank_id"] = id
		}
		b, _ := json.Marshal(entry)
		log.Printf("%s", string(b))
	})
}

// Count increments a named domain event counter, for example
// "papers_generated" or "questions_ingested".
func (c *Collector) Count(event string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.mu.Lock()
	c.events[event] += int64(n)
	c.mu.Unlock()
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	statsCopy := make(map[key]stat, len(c.requestStats))
	for k, v := range c.requestStats {
		statsCopy[k] = v
	}
	eventsCopy := make(map[string]int64, len(c.events))
	for k, v := range c.events {
		eventsCopy[k] = v
	}
	startedAt := c.startedAt
	c.mu.RUnlock()

	keys := make([]key, 0, len(statsCopy))
	for k := range statsCopy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Status < keys[j].Status
	})

	var sb strings.Builder
	sb.WriteString("# questgen observability metrics\n")
	sb.WriteString("# TYPE questgen_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("questgen_uptime_seconds %.0f\n", time.Since(startedAt).Seconds()))

	sb.WriteString("# TYPE questgen_http_requests_total counter\n")
	sb.WriteString("# TYPE questgen_http_request_latency_ms_sum counter\n")
	sb.WriteString("# TYPE questgen_http_request_latency_ms_avg gauge\n")
	for _, k := range keys {
		s := statsCopy[k]
		labels := fmt.Sprintf("method=\"%s\",path=\"%s\",status=\"%d\"", k.Method, k.Path, k.Status)
		sb.WriteString(fmt.Sprintf("questgen_http_requests_total{%s} %d\n", labels, s.Count))
		sb.WriteString(fmt.Sprintf("questgen_http_request_latency_ms_sum{%s} %.3f\n", labels, s.LatencyMS))
		avg := 0.0
		if s.Count > 0 {
			avg = s.LatencyMS / float64(s.Count)
		}
		sb.WriteString(fmt.Sprintf("questgen_http_request_latency_ms_avg{%s} %.3f\n", labels, avg))
	}

	events := make([]string, 0, len(eventsCopy))
	for k := range eventsCopy {
		events = append(events, k)
	}
	sort.Strings(events)
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("# TYPE questgen_%s_total counter\n", e))
		sb.WriteString(fmt.Sprintf("questgen_%s_total %d\n", e, eventsCopy[e]))
	}

	if c.db != nil {
		dbs := c.db.Stats()
		sb.WriteString("# TYPE questgen_db_open_connections gauge\n")
		sb.WriteString(fmt.Sprintf("questgen_db_open_connections %d\n", dbs.OpenConnections))
		sb.WriteString("# TYPE questgen_db_in_use_connections gauge\n")
		sb.WriteString(fmt.Sprintf("questgen_db_in_use_connections %d\n", dbs.InUse))
		sb.WriteString("# TYPE questgen_db_idle_connections gauge\n")
		sb.WriteString(fmt.Sprintf("questgen_db_idle_connections %d\n", dbs.Idle))
		sb.WriteString("# TYPE questgen_db_wait_count counter\n")
		sb.WriteString(fmt.Sprintf("questgen_db_wait_count %d\n", dbs.WaitCount))
		sb.WriteString("# TYPE questgen_db_wait_duration_ms counter\n")
		sb.WriteString(fmt.Sprintf("questgen_db_wait_duration_ms %.3f\n", float64(dbs.WaitDuration.Microseconds())/1000.0))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// requestUser names the caller for the access log. Basic-auth names are only
// trusted on /api routes, where auth runs further down the chain and any
// non-401 status means the credentials were accepted.
func requestUser(r *http.Request, status int) string {
	if u, ok := auth.CurrentUser(r.Context()); ok {
		return u.Username
	}
	if status == http.StatusUnauthorized || !strings.HasPrefix(r.URL.Path, "/api/") {
		return ""
	}
	if name, _, ok := r.BasicAuth(); ok {
		return name
	}
	return ""
}

// extractResourceID returns the numeric segment following resource in path,
// or 0.
func extractResourceID(path, resource string) int64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == resource {
			if id, err := strconv.ParseInt(parts[i+1], 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}
