// Package web serves the dashboard page, its charts and the JSON and file
// downloads.
package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"certdash/internal/charts"
	"certdash/internal/domain"
	"certdash/internal/export"
	"certdash/internal/pipeline"
	"certdash/internal/report"
	sqlitedb "certdash/internal/storage/sqlite"
)

const defaultHistoryLimit = 30

// Source supplies the dashboard to render. Implementations must be safe for
// concurrent use.
type Source interface {
	Current() *pipeline.Dashboard
}

type Server struct {
	source  Source
	history *sql.DB
	profile domain.Profile
	page    *template.Template
}

// NewServer builds a server over source. history may be nil, which turns
// /api/history off.
func NewServer(source Source, history *sql.DB, profile domain.Profile) *Server {
	return &Server{
		source:  source,
		history: history,
		profile: profile,
		page:    parseTemplates(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.requireDashboard)
		r.Get("/", s.handleIndex)
		r.Get("/charts/timeline.svg", s.handleChart(chartTimeline))
		r.Get("/charts/topics.svg", s.handleChart(chartTopics))
		r.Get("/charts/organizations.svg", s.handleChart(chartOrganizations))
		r.Get("/api/dashboard", s.handleDashboardJSON)
		r.Get("/export/certificates.xlsx", s.handleExport)
		r.Get("/report.md", s.handleReport)
	})
	r.Get("/api/history", s.handleHistory)
	return r
}

// requireDashboard answers 503 until the first dashboard is installed.
func (s *Server) requireDashboard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.source.Current() == nil {
			http.Error(w, "dashboard not ready", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// internalError logs the real error and returns a generic message.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("request_id=%s path=%s error=%v", middleware.GetReqID(r.Context()), r.URL.Path, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("request_id=%s encode json: %v", middleware.GetReqID(r.Context()), err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.source.Current() == nil {
		http.Error(w, "dashboard not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

type pageData struct {
	Profile     domain.Profile
	Dashboard   *pipeline.Dashboard
	View        string
	ToggleHref  string
	ToggleLabel string
	Query       string
	Columns     []column
	Rows        []domain.DisplayRow
	HasHistory  bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	d := s.source.Current()
	q := r.URL.Query()

	data := pageData{
		Profile:    s.profile,
		Dashboard:  d,
		View:       parseView(q.Get("view")),
		HasHistory: s.history != nil,
	}
	if data.View == ViewTable {
		st := parseTableState(q)
		data.ToggleHref = "/?view=" + ViewGraphs
		data.ToggleLabel = "Show Graphs"
		data.Query = st.Query
		data.Columns = columns(st)
		data.Rows = SortRows(FilterRows(d.Rows, st.Query), st.Sort, st.Order)
	} else {
		data.ToggleHref = "/?view=" + ViewTable
		data.ToggleLabel = "Show Table"
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type chartKind int

const (
	chartTimeline chartKind = iota
	chartTopics
	chartOrganizations
)

func (s *Server) handleChart(kind chartKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.source.Current()

		var buf bytes.Buffer
		var err error
		switch kind {
		case chartTimeline:
			err = charts.WriteTimeline(&buf, d.Series)
		case chartTopics:
			err = charts.WriteCategories(&buf, "Certificates by Topic", d.Topics)
		case chartOrganizations:
			err = charts.WriteCategories(&buf, "Certificates by Organization", d.Organizations)
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = buf.WriteTo(w)
	}
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.source.Current())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	snapshots, err := sqlitedb.RecentSnapshots(s.history, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if snapshots == nil {
		snapshots = []sqlitedb.Snapshot{}
	}
	writeJSON(w, r, snapshots)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.Write(&buf, s.source.Current()); err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="certificates.xlsx"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(report.Render(s.source.Current(), s.profile)))
}
