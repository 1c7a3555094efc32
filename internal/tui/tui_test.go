package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/models"
	"sitewatch/internal/monitor"
	"sitewatch/internal/siteform"
)

type fakeStore struct {
	mu      sync.Mutex
	created []models.Site
	deleted []int
	block   chan struct{}
}

func (f *fakeStore) CreateSite(ctx context.Context, site models.Site) (models.Site, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, site)
	site.ID = len(f.created)
	return site, nil
}

func (f *fakeStore) DeleteSite(ctx context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMonitor struct {
	mu        sync.Mutex
	scheduled []models.Site
	cancelled []int
}

func (f *fakeMonitor) ScheduleCheck(site models.Site, rightNow, cancelPrevious bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, site)
}

func (f *fakeMonitor) Live() []monitor.LiveSite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]monitor.LiveSite, 0, len(f.scheduled))
	for _, s := range f.scheduled {
		out = append(out, monitor.LiveSite{Site: s, Status: monitor.StatusPending})
	}
	return out
}

func (f *fakeMonitor) Logs() []string { return []string{"[12:00:00] hello"} }
func (f *fakeMonitor) Cancel(id int) { f.cancelled = append(f.cancelled, id) }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, _ = send(t, m, key(s))
	return m
}

func TestForm_CommitCreatesAndSchedules(t *testing.T) {
	store, mon := &fakeStore{}, &fakeMonitor{}
	m := InitialModel(store, mon, nil)

	m, _ = send(t, m, key("n"))
	require.Equal(t, stateFormSite, m.state)

	m = typeText(t, m, "Site A")
	m, _ = send(t, m, key("tab"))
	m = typeText(t, m, "https://a.test")

	m, cmd := send(t, m, key("ctrl+s"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())

	assert.Equal(t, stateDashboard, m.state)
	require.Len(t, store.created, 1)
	assert.Equal(t, "Site A", store.created[0].Name)
	assert.Equal(t, int64(15*models.UnitMinutes), store.created[0].Settings.ValidationIntervalMs)
	require.Len(t, mon.scheduled, 1)
	assert.Equal(t, 1, mon.scheduled[0].ID)
	assert.Len(t, m.sites, 1)
}

func TestForm_IgnoresEditsWhileSaving(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	m := InitialModel(store, &fakeMonitor{}, nil)
	m, _ = send(t, m, key("n"))
	m = typeText(t, m, "Site A")
	m, _ = send(t, m, key("tab"))
	m = typeText(t, m, "https://a.test")

	m, cmd := send(t, m, key("ctrl+s"))
	require.NotNil(t, cmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	require.Eventually(t, m.form.IsLoading.Get, time.Second, 5*time.Millisecond)

	m = typeText(t, m, "/other")
	assert.Equal(t, "https://a.test", m.inputs[fieldURL].Value())
	assert.Equal(t, "https://a.test", m.form.URL.Get())
	m, cmd = send(t, m, key("ctrl+s"))
	assert.Nil(t, cmd)
	m, _ = send(t, m, key("esc"))
	assert.Equal(t, stateFormSite, m.state)

	close(store.block)
	m, _ = send(t, m, <-done)
	assert.Equal(t, stateDashboard, m.state)
	require.Len(t, store.created, 1)
	assert.Equal(t, "https://a.test", store.created[0].URL)
}

func TestForm_InvalidStaysOnFormWithErrors(t *testing.T) {
	store, mon := &fakeStore{}, &fakeMonitor{}
	m := InitialModel(store, mon, nil)
	m, _ = send(t, m, key("n"))

	m, cmd := send(t, m, key("ctrl+s"))
	m, _ = send(t, m, cmd())

	assert.Equal(t, stateFormSite, m.state)
	assert.Empty(t, store.created)
	assert.Equal(t, siteform.MsgEnterName, m.form.NameError.Get())
	assert.Contains(t, m.View(), "Please enter name")
	assert.Contains(t, m.View(), "Please enter URL")
}

func TestForm_ModeSelectorShowsTermInput(t *testing.T) {
	m := InitialModel(&fakeStore{}, &fakeMonitor{}, nil)
	m, _ = send(t, m, key("n"))

	for m.focus != fieldMode {
		m, _ = send(t, m, key("tab"))
	}
	m, _ = send(t, m, key("right"))

	assert.Equal(t, models.ModeTermSearch, m.form.ValidationMode.Get())
	assert.Contains(t, m.visibleFields(), fieldSearchTerm)
	assert.NotContains(t, m.visibleFields(), fieldScript)

	m, _ = send(t, m, key("right"))
	assert.Equal(t, models.ModeJavaScript, m.form.ValidationMode.Get())
	assert.Contains(t, m.visibleFields(), fieldScript)
	assert.NotContains(t, m.visibleFields(), fieldSearchTerm)
}

func TestForm_URLWarning(t *testing.T) {
	m := InitialModel(&fakeStore{}, &fakeMonitor{}, nil)
	m, _ = send(t, m, key("n"), key("tab"))
	m = typeText(t, m, "ftp://files.test")

	assert.True(t, m.form.URLWarningVisible.Get())
	assert.Contains(t, m.View(), "Only http and https")
}

func TestDashboard_DeleteCancelsSchedule(t *testing.T) {
	store := &fakeStore{}
	mon := &fakeMonitor{scheduled: []models.Site{{ID: 4, Name: "x", URL: "https://x.test"}}}
	m := InitialModel(store, mon, nil)
	m.refreshData()

	m, _ = send(t, m, key("d"))
	assert.Equal(t, []int{4}, store.deleted)
	assert.Equal(t, []int{4}, mon.cancelled)
}

func TestTranslator_CoversEveryMessage(t *testing.T) {
	trans := newTranslator()
	for _, msg := range siteform.Messages() {
		s, err := trans.T(msg)
		require.NoError(t, err, msg.String())
		assert.NotEmpty(t, s)
	}
}
