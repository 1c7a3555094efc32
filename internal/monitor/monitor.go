package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitewatch/internal/alert"
	"sitewatch/internal/models"
)

const (
	StatusPending = "PENDING"
	StatusUp      = "UP"
	StatusDown    = "DOWN"
)

// ResultStore receives every check result.
type ResultStore interface {
	SaveCheckResult(ctx context.Context, result models.CheckResult) error
}

// SiteLister supplies the sites to schedule at startup.
type SiteLister interface {
	GetSites(ctx context.Context) ([]models.Site, error)
}

// LiveSite is the scheduler's view of one scheduled site.
type LiveSite struct {
	Site   models.Site
	Status string
}

type job struct {
	cancel context.CancelFunc
}

// Scheduler runs one goroutine per site, checking it every
// ValidationIntervalMs until the site is cancelled or the scheduler stops.
type Scheduler struct {
	checker     *Checker
	results     ResultStore
	notifier    alert.Provider
	logger      *zap.Logger
	minInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[int]*job
	live map[int]LiveSite

	logMu sync.RWMutex
	logs  []string
}

type Option func(*Scheduler)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sends an alert on every UP/DOWN transition.
func WithNotifier(p alert.Provider) Option {
	return func(s *Scheduler) { s.notifier = p }
}

// WithChecker replaces the default checker, e.g. to plug in a ScriptEvaluator.
func WithChecker(c *Checker) Option {
	return func(s *Scheduler) { s.checker = c }
}

// WithMinInterval clamps very short check intervals. Defaults to 5s.
func WithMinInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.minInterval = d }
}

func NewScheduler(results ResultStore, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		checker:     NewChecker(nil),
		results:     results,
		logger:      zap.NewNop(),
		minInterval: 5 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[int]*job),
		live:        make(map[int]LiveSite),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules every enabled stored site without an immediate check.
func (s *Scheduler) Start(ctx context.Context, sites SiteLister) error {
	list, err := sites.GetSites(ctx)
	if err != nil {
		return fmt.Errorf("list sites: %w", err)
	}
	for _, site := range list {
		s.ScheduleCheck(site, false, false)
	}
	s.logger.Info("scheduler_started", zap.Int("sites", len(list)))
	return nil
}

// Stop cancels every schedule and waits for in-flight checks to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler_stopped")
}

// ScheduleCheck registers a recurring check for site. rightNow runs the first
// check immediately instead of after one interval. cancelPrevious replaces an
// existing schedule for the same site; without it an existing schedule is
// kept. Sites without an ID and disabled sites are never scheduled.
func (s *Scheduler) ScheduleCheck(site models.Site, rightNow, cancelPrevious bool) {
	if site.ID == 0 {
		s.logger.Warn("schedule_unsaved_site", zap.String("url", site.URL))
		return
	}
	if site.Settings.Disabled {
		s.Cancel(site.ID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if prev, ok := s.jobs[site.ID]; ok {
		if !cancelPrevious {
			return
		}
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.jobs[site.ID] = &job{cancel: cancel}
	status := StatusPending
	if cur, ok := s.live[site.ID]; ok {
		status = cur.Status
	}
	s.live[site.ID] = LiveSite{Site: site, Status: status}

	s.wg.Add(1)
	go s.run(ctx, site, rightNow)

	s.logger.Info("check_scheduled",
		zap.Int("site_id", site.ID),
		zap.String("url", site.URL),
		zap.Duration("interval", site.Settings.Interval()),
		zap.Bool("right_now", rightNow),
	)
	s.addLog(fmt.Sprintf("Scheduled '%s' every %v", site.Name, site.Settings.Interval()))
}

// Cancel stops the schedule for id, if any.
func (s *Scheduler) Cancel(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.cancel()
		delete(s.jobs, id)
	}
	delete(s.live, id)
}

// Scheduled reports whether id currently has a running schedule.
func (s *Scheduler) Scheduled(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs[id]
	return ok
}

// Live returns a snapshot of scheduled sites ordered by ID.
func (s *Scheduler) Live() []LiveSite {
	s.mu.RLock()
	out := make([]LiveSite, 0, len(s.live))
	for _, l := range s.live {
		out = append(out, l)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Site.ID < out[j].Site.ID })
	return out
}

func (s *Scheduler) run(ctx context.Context, site models.Site, rightNow bool) {
	defer s.wg.Done()

	interval := site.Settings.Interval()
	if interval < s.minInterval {
		interval = s.minInterval
	}
	if rightNow {
		s.check(ctx, site)
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.check(ctx, site)
		}
	}
}

func (s *Scheduler) check(ctx context.Context, site models.Site) {
	if ctx.Err() != nil {
		return
	}
	timeout := site.Settings.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	res := s.checker.Check(cctx, site)
	cancel()
	if ctx.Err() != nil {
		return
	}

	res.ID = uuid.NewString()
	res.SiteID = site.ID

	if s.results != nil {
		if err := s.results.SaveCheckResult(ctx, res); err != nil {
			s.logger.Warn("check_result_save_error", zap.Int("site_id", site.ID), zap.Error(err))
		}
	}
	s.logger.Debug("site_checked",
		zap.Int("site_id", site.ID),
		zap.String("url", site.URL),
		zap.Bool("up", res.Up),
		zap.Int("status", res.StatusCode),
		zap.Int64("latency_ms", res.LatencyMS),
		zap.String("reason", res.Reason),
	)
	s.handleStatusChange(ctx, site, res)
}

func (s *Scheduler) handleStatusChange(ctx context.Context, site models.Site, res models.CheckResult) {
	newStatus := StatusDown
	if res.Up {
		newStatus = StatusUp
	}

	s.mu.Lock()
	cur, ok := s.live[site.ID]
	if !ok {
		s.mu.Unlock()
		return
	}
	prev := cur.Status
	cur.Status = newStatus
	r := res
	cur.Site.LastResult = &r
	s.live[site.ID] = cur
	s.mu.Unlock()

	switch {
	case prev != StatusDown && newStatus == StatusDown:
		s.addLog(fmt.Sprintf("Monitor '%s' is DOWN (%s)", site.Name, res.Reason))
		s.triggerAlert(ctx, "🚨 ALERT", fmt.Sprintf("Monitor '%s' is DOWN (%s)", site.Name, res.Reason))
	case prev == StatusDown && newStatus == StatusUp:
		s.addLog(fmt.Sprintf("Monitor '%s' recovered", site.Name))
		s.triggerAlert(ctx, "✅ RECOVERY", fmt.Sprintf("Monitor '%s' is UP", site.Name))
	}
}

func (s *Scheduler) triggerAlert(ctx context.Context, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, title, message); err != nil {
		s.logger.Warn("alert_send_error", zap.String("title", title), zap.Error(err))
	}
}

// --- ACTIVITY LOG ---

func (s *Scheduler) addLog(msg string) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	entry := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)
	s.logs = append([]string{entry}, s.logs...)
	if len(s.logs) > 100 {
		s.logs = s.logs[:100]
	}
}

// Logs returns recent activity, newest first.
func (s *Scheduler) Logs() []string {
	s.logMu.RLock()
	defer s.logMu.RUnlock()
	logs := make([]string, len(s.logs))
	copy(logs, s.logs)
	return logs
}
