package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sitewatch/internal/models"
)

// --- fakes ---

type fakeResults struct {
	mu   sync.Mutex
	rows []models.CheckResult
	ch   chan models.CheckResult
}

func newFakeResults() *fakeResults {
	return &fakeResults{ch: make(chan models.CheckResult, 16)}
}

func (f *fakeResults) SaveCheckResult(ctx context.Context, r models.CheckResult) error {
	f.mu.Lock()
	f.rows = append(f.rows, r)
	f.mu.Unlock()
	select {
	case f.ch <- r:
	default:
	}
	return nil
}

func (f *fakeResults) wait(t *testing.T) models.CheckResult {
	t.Helper()
	select {
	case r := <-f.ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for check result")
		return models.CheckResult{}
	}
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (f *fakeNotifier) Send(ctx context.Context, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	return nil
}

type fakeEvaluator struct {
	ok  bool
	err error
}

func (f fakeEvaluator) Evaluate(ctx context.Context, script string, resp Response) (bool, error) {
	return f.ok, f.err
}

type fakeLister struct{ sites []models.Site }

func (f fakeLister) GetSites(ctx context.Context) ([]models.Site, error) { return f.sites, nil }

func strp(s string) *string { return &s }

func site(id int, url string, mode models.ValidationMode, args *string) models.Site {
	return models.Site{
		ID: id, Name: "site", URL: url,
		Settings: models.SiteSettings{
			ValidationIntervalMs: 60000,
			ValidationMode:       mode,
			ValidationArgs:       args,
			TimeoutSeconds:       2,
		},
	}
}

func okServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// --- checker ---

func TestChecker_Modes(t *testing.T) {
	ts := okServer(t, http.StatusOK, "<html>all systems healthy</html>")
	ctx := context.Background()

	cases := []struct {
		name string
		c    *Checker
		site models.Site
		up   bool
		why  string
	}{
		{"status", NewChecker(nil), site(1, ts.URL, models.ModeStatusCode, nil), true, ""},
		{"term found", NewChecker(nil), site(1, ts.URL, models.ModeTermSearch, strp("healthy")), true, ""},
		{"term missing", NewChecker(nil), site(1, ts.URL, models.ModeTermSearch, strp("degraded")), false, "term_not_found"},
		{"js no evaluator", NewChecker(nil), site(1, ts.URL, models.ModeJavaScript, strp("x")), false, "script_evaluator_unavailable"},
		{"js ok", NewChecker(fakeEvaluator{ok: true}), site(1, ts.URL, models.ModeJavaScript, strp("x")), true, ""},
		{"js rejects", NewChecker(fakeEvaluator{}), site(1, ts.URL, models.ModeJavaScript, strp("x")), false, "script_rejected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := tc.c.Check(ctx, tc.site)
			assert.Equal(t, tc.up, res.Up)
			assert.Equal(t, http.StatusOK, res.StatusCode)
			if tc.why != "" {
				assert.Equal(t, tc.why, res.Reason)
			}
		})
	}
}

func TestChecker_ServerErrorAndScriptError(t *testing.T) {
	ts := okServer(t, http.StatusInternalServerError, "boom")
	res := NewChecker(nil).Check(context.Background(), site(1, ts.URL, models.ModeStatusCode, nil))
	assert.False(t, res.Up)
	assert.Equal(t, 500, res.StatusCode)

	res = NewChecker(fakeEvaluator{err: errors.New("syntax")}).Check(context.Background(), site(1, ts.URL, models.ModeJavaScript, strp("(")))
	assert.False(t, res.Up)
	assert.True(t, strings.HasPrefix(res.Reason, "script_error"))
}

func TestChecker_UnreachableHost(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	res := NewChecker(nil).Check(context.Background(), site(1, url, models.ModeStatusCode, nil))
	assert.False(t, res.Up)
	assert.NotEmpty(t, res.Reason)
}

// --- scheduler ---

func TestScheduleCheck_RightNowSavesResult(t *testing.T) {
	ts := okServer(t, http.StatusOK, "ok")
	results := newFakeResults()
	s := NewScheduler(results)
	defer s.Stop()

	s.ScheduleCheck(site(7, ts.URL, models.ModeStatusCode, nil), true, true)

	r := results.wait(t)
	assert.Equal(t, 7, r.SiteID)
	assert.True(t, r.Up)
	assert.NotEmpty(t, r.ID)
	assert.True(t, s.Scheduled(7))

	require.Eventually(t, func() bool {
		live := s.Live()
		return len(live) == 1 && live[0].Status == StatusUp && live[0].Site.LastResult != nil
	}, time.Second, 5*time.Millisecond)
}

func TestScheduleCheck_UsesConfiguredChecker(t *testing.T) {
	ts := okServer(t, http.StatusOK, "ok")
	results := newFakeResults()
	s := NewScheduler(results, WithChecker(NewChecker(fakeEvaluator{ok: true})))
	defer s.Stop()

	s.ScheduleCheck(site(9, ts.URL, models.ModeJavaScript, strp("return true")), true, true)

	r := results.wait(t)
	assert.Equal(t, 9, r.SiteID)
	assert.True(t, r.Up)
	assert.Empty(t, r.Reason)
}

func TestScheduleCheck_IgnoresUnsavedAndDisabledSites(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewScheduler(newFakeResults(), WithLogger(zap.New(core)))
	defer s.Stop()

	s.ScheduleCheck(site(0, "https://a.test", models.ModeStatusCode, nil), true, true)
	assert.Empty(t, s.Live())
	assert.Equal(t, 1, logs.FilterMessage("schedule_unsaved_site").Len())

	disabled := site(3, "https://a.test", models.ModeStatusCode, nil)
	disabled.Settings.Disabled = true
	s.ScheduleCheck(disabled, true, true)
	assert.False(t, s.Scheduled(3))
}

func TestScheduleCheck_CancelPrevious(t *testing.T) {
	ts := okServer(t, http.StatusOK, "ok")
	s := NewScheduler(newFakeResults())
	defer s.Stop()

	first := site(2, ts.URL, models.ModeStatusCode, nil)
	s.ScheduleCheck(first, false, false)

	renamed := first
	renamed.Name = "renamed"
	s.ScheduleCheck(renamed, false, false)
	assert.Equal(t, "site", s.Live()[0].Site.Name)

	s.ScheduleCheck(renamed, false, true)
	assert.Equal(t, "renamed", s.Live()[0].Site.Name)

	s.Cancel(2)
	assert.False(t, s.Scheduled(2))
	assert.Empty(t, s.Live())
}

func TestScheduler_RepeatsOnInterval(t *testing.T) {
	ts := okServer(t, http.StatusOK, "ok")
	results := newFakeResults()
	s := NewScheduler(results, WithMinInterval(time.Millisecond))
	defer s.Stop()

	fast := site(1, ts.URL, models.ModeStatusCode, nil)
	fast.Settings.ValidationIntervalMs = 20
	s.ScheduleCheck(fast, false, true)

	results.wait(t)
	results.wait(t)
}

func TestScheduler_AlertsOnTransitions(t *testing.T) {
	var mu sync.Mutex
	status := http.StatusOK
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}))
	defer ts.Close()

	results := newFakeResults()
	notifier := &fakeNotifier{}
	s := NewScheduler(results, WithNotifier(notifier), WithMinInterval(time.Millisecond))
	defer s.Stop()

	st := site(1, ts.URL, models.ModeStatusCode, nil)
	st.Settings.ValidationIntervalMs = 10
	s.ScheduleCheck(st, true, true)
	require.True(t, results.wait(t).Up)

	mu.Lock()
	status = http.StatusServiceUnavailable
	mu.Unlock()
	for results.wait(t).Up {
	}

	mu.Lock()
	status = http.StatusOK
	mu.Unlock()
	for !results.wait(t).Up {
	}

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.titles) >= 2
	}, time.Second, 5*time.Millisecond)
	notifier.mu.Lock()
	assert.Equal(t, "🚨 ALERT", notifier.titles[0])
	assert.Equal(t, "✅ RECOVERY", notifier.titles[1])
	notifier.mu.Unlock()

	assert.NotEmpty(t, s.Logs())
}

func TestScheduler_StartLoadsStoredSites(t *testing.T) {
	s := NewScheduler(newFakeResults())
	defer s.Stop()

	disabled := site(2, "https://b.test", models.ModeStatusCode, nil)
	disabled.Settings.Disabled = true
	require.NoError(t, s.Start(context.Background(), fakeLister{sites: []models.Site{
		site(1, "https://a.test", models.ModeStatusCode, nil),
		disabled,
	}}))

	assert.True(t, s.Scheduled(1))
	assert.False(t, s.Scheduled(2))
	assert.Equal(t, StatusPending, s.Live()[0].Status)
}

func TestScheduler_StopRejectsNewSchedules(t *testing.T) {
	s := NewScheduler(newFakeResults())
	s.Stop()
	s.ScheduleCheck(site(1, "https://a.test", models.ModeStatusCode, nil), false, true)
	assert.False(t, s.Scheduled(1))
}
