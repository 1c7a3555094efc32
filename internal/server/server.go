package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"sitewatch/internal/models"
	"sitewatch/internal/monitor"
	"sitewatch/internal/store"
)

type SiteLister interface {
	GetSites(ctx context.Context) ([]models.Site, error)
	GetSite(ctx context.Context, id int) (models.Site, error)
}

type LiveSource interface {
	Live() []monitor.LiveSite
	Scheduled(id int) bool
}

// siteDetail is a stored site plus whether the scheduler is running it.
type siteDetail struct {
	models.Site
	Scheduled bool `json:"scheduled"`
}

type ServerConfig struct {
	Port  int
	Title string
}

type Server struct {
	cfg    ServerConfig
	sites  SiteLister
	live   LiveSource
	logger *zap.Logger
	http   *http.Server
}

func New(cfg ServerConfig, sites SiteLister, live LiveSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, sites: sites, live: live, logger: logger}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/api/sites", s.handleSites)
	r.Get("/api/sites/{id}", s.handleSite)
	r.Get("/status", s.handleStatusPage)
	return r
}

// Start serves in the background; Shutdown stops it.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http_listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http_serve_error", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.sites.GetSites(r.Context())
	if err != nil {
		s.logger.Warn("list_sites_error", zap.Error(err))
		http.Error(w, "failed to list sites", http.StatusInternalServerError)
		return
	}
	if sites == nil {
		sites = []models.Site{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sites)
}

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		http.Error(w, "invalid site id", http.StatusBadRequest)
		return
	}
	site, err := s.sites.GetSite(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "site not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Warn("get_site_error", zap.Int("site_id", id), zap.Error(err))
		http.Error(w, "failed to load site", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(siteDetail{Site: site, Scheduled: s.live.Scheduled(id)})
}

var statusTpl = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}}</title>
	<meta http-equiv="refresh" content="5">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #1a1b26; color: #a9b1d6; padding: 20px; margin: 0; }
		h1 { text-align: center; color: #7aa2f7; margin-bottom: 30px; }
		.container { max-width: 800px; margin: 0 auto; }
		.card { background: #24283b; padding: 20px; margin-bottom: 15px; border-radius: 8px; display: flex; align-items: center; justify-content: space-between; }
		.name { font-size: 1.2em; font-weight: bold; color: #c0caf5; margin-bottom: 5px; }
		.meta { font-size: 0.85em; color: #565f89; }
		.status { font-weight: bold; padding: 6px 12px; border-radius: 6px; min-width: 60px; text-align: center; color: #1a1b26; }
		.UP { background: #9ece6a; }
		.DOWN { background: #f7768e; }
		.PENDING { background: #e0af68; }
	</style>
</head>
<body>
	<div class="container">
		<h1>{{.Title}}</h1>
		{{range .Sites}}
		<div class="card">
			<div>
				<div class="name">{{.Site.Name}}</div>
				<div class="meta">{{.Site.Settings.ValidationMode}} | {{.Site.URL}}</div>
				{{with .Site.LastResult}}<div class="meta">Last Check: {{.CheckedAt.Format "15:04:05"}} ({{.LatencyMS}} ms)</div>{{end}}
			</div>
			<div class="status {{.Status}}">{{.Status}}</div>
		</div>
		{{else}}
		<p class="meta">No sites configured.</p>
		{{end}}
	</div>
</body>
</html>`))

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	sites := s.live.Live()
	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].Status != sites[j].Status {
			if sites[i].Status == monitor.StatusDown {
				return true
			}
			if sites[j].Status == monitor.StatusDown {
				return false
			}
		}
		return sites[i].Site.Name < sites[j].Site.Name
	})

	data := struct {
		Title string
		Sites []monitor.LiveSite
	}{Title: s.cfg.Title, Sites: sites}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTpl.Execute(w, data); err != nil {
		s.logger.Warn("status_render_error", zap.Error(err))
	}
}
