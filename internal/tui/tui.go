package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	ut "github.com/go-playground/universal-translator"
	"go.uber.org/zap"

	"sitewatch/internal/models"
	"sitewatch/internal/monitor"
	"sitewatch/internal/siteform"
)

var (
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"})
	specialStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#F0E442", Dark: "#F0E442"})
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"})
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)

	activeTab   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(lipgloss.Color("#7D56F4")).Foreground(lipgloss.Color("#7D56F4")).Bold(true).Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.AdaptiveColor{Light: "#AAA", Dark: "#555"})

	colID     = lipgloss.NewStyle().Width(4)
	colName   = lipgloss.NewStyle().Width(16)
	colURL    = lipgloss.NewStyle().Width(30)
	colStatus = lipgloss.NewStyle().Width(10)
	colCode   = lipgloss.NewStyle().Width(6)
)

// SiteStore is what the TUI needs from persistence.
type SiteStore interface {
	siteform.SiteStore
	DeleteSite(ctx context.Context, id int) error
}

// Monitor is what the TUI needs from the check scheduler.
type Monitor interface {
	siteform.CheckScheduler
	Live() []monitor.LiveSite
	Logs() []string
	Cancel(id int)
}

type sessionState int

const (
	stateDashboard sessionState = iota
	stateLogs
	stateFormSite
)

// Form fields in focus order. Unit and mode are selectors, the rest are
// text inputs.
const (
	fieldName = iota
	fieldURL
	fieldTimeout
	fieldInterval
	fieldUnit
	fieldMode
	fieldSearchTerm
	fieldScript
	fieldCount
)

type intervalUnit struct {
	label string
	ms    int64
}

var units = []intervalUnit{
	{"seconds", models.UnitSeconds},
	{"minutes", models.UnitMinutes},
	{"hours", models.UnitHours},
}

type commitDoneMsg struct {
	saved bool
	err   error
}

type Model struct {
	state      sessionState
	currentTab int

	cursor       int
	tableOffset  int
	maxTableRows int

	form     *siteform.Controller
	inputs   []textinput.Model
	focus    int
	errorMsg string

	logViewport  viewport.Model
	formViewport viewport.Model

	sites []monitor.LiveSite

	store   SiteStore
	monitor Monitor
	logger  *zap.Logger
	trans   ut.Translator
}

func InitialModel(store SiteStore, mon Monitor, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	vpLogs := viewport.New(100, 20)
	vpLogs.SetContent("Waiting for logs...")
	vpForm := viewport.New(100, 20)

	return Model{
		state:        stateDashboard,
		logViewport:  vpLogs,
		formViewport: vpForm,
		maxTableRows: 5,
		store:        store,
		monitor:      mon,
		logger:       logger,
		trans:        newTranslator(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return t })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.maxTableRows = msg.Height - 9
		if m.maxTableRows < 1 {
			m.maxTableRows = 1
		}
		m.logViewport.Width = msg.Width
		m.logViewport.Height = msg.Height - 6
		m.formViewport.Width = msg.Width
		m.formViewport.Height = msg.Height - 3
		m.updateFormContent()

	case time.Time:
		m.refreshData()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return t })

	case commitDoneMsg:
		if msg.err != nil {
			m.logger.Warn("site_form_commit_error", zap.Error(msg.err))
			m.errorMsg = msg.err.Error()
		} else if msg.saved {
			m.state = stateDashboard
			m.form = nil
			m.refreshData()
			return m, nil
		}
		m.updateFormContent()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.state {
		case stateDashboard, stateLogs:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "tab":
				m.currentTab = (m.currentTab + 1) % 2
				m.cursor = 0
				m.tableOffset = 0
				if m.currentTab == 1 {
					m.state = stateLogs
				} else {
					m.state = stateDashboard
				}
			case "pgup", "pgdown":
				if m.state == stateLogs {
					m.logViewport, cmd = m.logViewport.Update(msg)
					return m, cmd
				}
			case "up", "k":
				if m.state == stateLogs {
					m.logViewport.LineUp(1)
				} else if m.cursor > 0 {
					m.cursor--
					if m.cursor < m.tableOffset {
						m.tableOffset = m.cursor
					}
				}
			case "down", "j":
				if m.state == stateLogs {
					m.logViewport.LineDown(1)
				} else if m.cursor < len(m.sites)-1 {
					m.cursor++
					if m.cursor >= m.tableOffset+m.maxTableRows {
						m.tableOffset++
					}
				}
			case "n":
				if m.state == stateDashboard {
					m.state = stateFormSite
					m.initFormSite()
					m.formViewport.GotoTop()
					m.updateFormContent()
					return m, textinput.Blink
				}
			case "d", "backspace":
				if m.state == stateDashboard && len(m.sites) > 0 {
					m.deleteSite(m.sites[m.cursor].Site.ID)
				}
			}
			return m, nil

		case stateFormSite:
			return m.updateForm(msg)
		}
	}

	if m.state == stateFormSite {
		for i := range m.inputs {
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// The form is frozen while a commit is in flight.
	if m.form.IsLoading.Get() {
		switch msg.String() {
		case "pgup", "pgdown":
			m.formViewport, cmd = m.formViewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.state = stateDashboard
		m.form = nil
		return m, nil

	case "pgup", "pgdown":
		m.formViewport, cmd = m.formViewport.Update(msg)
		return m, cmd

	case "ctrl+s":
		return m, m.commit()

	case "left", "right":
		if m.focus == fieldUnit || m.focus == fieldMode {
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			m.cycleOption(step)
			m.updateFormContent()
			return m, nil
		}

	case "tab", "shift+tab", "enter", "up", "down":
		s := msg.String()
		visible := m.visibleFields()
		if s == "enter" && m.focus == visible[len(visible)-1] {
			return m, m.commit()
		}
		if s == "up" || s == "shift+tab" {
			m.moveFocus(-1)
		} else {
			m.moveFocus(1)
		}
		m.formViewport.SetYOffset(m.focus * 3)
		m.updateFormContent()
		return m, m.focusCmd()
	}

	if m.focus == fieldUnit || m.focus == fieldMode {
		return m, nil
	}
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.syncForm()
	m.updateFormContent()
	return m, cmd
}

// commit runs the controller off the render loop. A commit in flight keeps
// the save affordance disabled.
func (m *Model) commit() tea.Cmd {
	if m.form == nil || m.form.IsLoading.Get() {
		return nil
	}
	m.errorMsg = ""
	m.syncForm()
	form := m.form
	return func() tea.Msg {
		saved := false
		err := form.Commit(context.Background(), func() { saved = true })
		return commitDoneMsg{saved: saved, err: err}
	}
}

func (m *Model) deleteSite(id int) {
	if err := m.store.DeleteSite(context.Background(), id); err != nil {
		m.logger.Warn("site_delete_error", zap.Int("site_id", id), zap.Error(err))
	}
	m.monitor.Cancel(id)
	if m.cursor >= len(m.sites)-1 && m.cursor > 0 {
		m.cursor--
	}
	if m.cursor < m.tableOffset {
		m.tableOffset = m.cursor
	}
	m.refreshData()
}

func (m *Model) refreshData() {
	m.sites = m.monitor.Live()
	if m.cursor >= len(m.sites) {
		m.cursor = 0
		m.tableOffset = 0
	}
	m.logViewport.SetContent(strings.Join(m.monitor.Logs(), "\n"))
}

func (m *Model) initFormSite() {
	m.form = siteform.New(m.store, m.monitor, siteform.WithLogger(m.logger))
	m.inputs = make([]textinput.Model, fieldCount)
	m.inputs[fieldName] = ti("My Site", 30)
	m.inputs[fieldURL] = ti("https://example.com", 40)
	m.inputs[fieldTimeout] = ti("10", 6)
	m.inputs[fieldInterval] = ti("15", 6)
	m.inputs[fieldSearchTerm] = ti("text that must appear", 40)
	m.inputs[fieldScript] = ti("return response.status == 200", 60)

	if t := m.form.Timeout.Get(); t != nil {
		m.inputs[fieldTimeout].SetValue(strconv.Itoa(*t))
	}
	if v := m.form.CheckIntervalValue.Get(); v != nil {
		m.inputs[fieldInterval].SetValue(strconv.Itoa(*v))
	}
	m.focus = fieldName
	m.inputs[fieldName].Focus()
	m.errorMsg = ""
}

func ti(ph string, width int) textinput.Model {
	t := textinput.New()
	t.Placeholder = ph
	t.Width = width
	return t
}

// syncForm pushes the text inputs into the controller.
func (m *Model) syncForm() {
	m.form.Name.Set(m.inputs[fieldName].Value())
	m.form.URL.Set(strings.TrimSpace(m.inputs[fieldURL].Value()))
	m.form.Timeout.Set(parseOptInt(m.inputs[fieldTimeout].Value()))
	m.form.CheckIntervalValue.Set(parseOptInt(m.inputs[fieldInterval].Value()))
	m.form.ValidationSearchTerm.Set(m.inputs[fieldSearchTerm].Value())
	m.form.ValidationScript.Set(m.inputs[fieldScript].Value())
}

func parseOptInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func (m *Model) visibleFields() []int {
	fields := []int{fieldName, fieldURL, fieldTimeout, fieldInterval, fieldUnit, fieldMode}
	if m.form.ValidationSearchTermVisible.Get() {
		fields = append(fields, fieldSearchTerm)
	}
	if m.form.ValidationScriptVisible.Get() {
		fields = append(fields, fieldScript)
	}
	return fields
}

func (m *Model) moveFocus(step int) {
	visible := m.visibleFields()
	pos := 0
	for i, f := range visible {
		if f == m.focus {
			pos = i
		}
	}
	pos = (pos + step + len(visible)) % len(visible)
	m.focus = visible[pos]
}

func (m *Model) focusCmd() tea.Cmd {
	var cmds []tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmds = append(cmds, m.inputs[i].Focus())
		} else {
			m.inputs[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) cycleOption(step int) {
	switch m.focus {
	case fieldUnit:
		cur := 0
		for i, u := range units {
			if u.ms == m.form.CheckIntervalUnit.Get() {
				cur = i
			}
		}
		m.form.CheckIntervalUnit.Set(units[(cur+step+len(units))%len(units)].ms)
	case fieldMode:
		cur := 0
		for i, mode := range models.Modes {
			if mode == m.form.ValidationMode.Get() {
				cur = i
			}
		}
		m.form.ValidationMode.Set(models.Modes[(cur+step+len(models.Modes))%len(models.Modes)])
	}
}

func unitLabel(ms int64) string {
	for _, u := range units {
		if u.ms == ms {
			return u.label
		}
	}
	return fmt.Sprintf("x%d ms", ms)
}

func (m *Model) fieldError(msg siteform.Message) string {
	if msg == siteform.MsgNone {
		return ""
	}
	return dangerStyle.Render(text(m.trans, msg)) + "\n"
}

func (m *Model) label(field int, s string) string {
	if m.focus == field {
		return specialStyle.Render(s)
	}
	return s
}

func (m *Model) updateFormContent() {
	if m.state != stateFormSite || m.form == nil {
		return
	}
	f := m.form
	var content string
	if m.errorMsg != "" {
		content += dangerStyle.Render("Error: "+m.errorMsg) + "\n\n"
	}

	content += titleStyle.Render("Add Site") + "\n\n"
	content += m.label(fieldName, "Name:") + "\n" + m.inputs[fieldName].View() + "\n" + m.fieldError(f.NameError.Get()) + "\n"
	content += m.label(fieldURL, "URL:") + "\n" + m.inputs[fieldURL].View() + "\n" + m.fieldError(f.URLError.Get())
	if f.URLWarningVisible.Get() {
		content += warnStyle.Render(text(m.trans, keyURLSchemeWarning)) + "\n"
	}
	content += "\n"
	content += m.label(fieldTimeout, "Network timeout (sec):") + "\n" + m.inputs[fieldTimeout].View() + "\n" + m.fieldError(f.TimeoutError.Get()) + "\n"
	content += m.label(fieldInterval, "Check interval:") + "\n" + m.inputs[fieldInterval].View() + "\n" + m.fieldError(f.CheckIntervalValueError.Get()) + "\n"
	content += m.label(fieldUnit, "Interval unit:") + "\n" + m.label(fieldUnit, "< "+unitLabel(f.CheckIntervalUnit.Get())+" >") + "\n\n"
	content += m.label(fieldMode, "Validation:") + "\n" + m.label(fieldMode, "< "+string(f.ValidationMode.Get())+" >") + "\n"
	content += subtleStyle.Render(text(m.trans, f.ValidationModeDescription.Get())) + "\n\n"

	if f.ValidationSearchTermVisible.Get() {
		content += m.label(fieldSearchTerm, "Search term:") + "\n" + m.inputs[fieldSearchTerm].View() + "\n" + m.fieldError(f.ValidationSearchTermError.Get()) + "\n"
	}
	if f.ValidationScriptVisible.Get() {
		content += m.label(fieldScript, "JavaScript:") + "\n" + m.inputs[fieldScript].View() + "\n" + m.fieldError(f.ValidationScriptError.Get()) + "\n"
	}
	if f.IsLoading.Get() {
		content += warnStyle.Render("Saving...") + "\n"
	}
	m.formViewport.SetContent(lipgloss.NewStyle().Padding(1, 2).Render(content))
}

func (m Model) View() string {
	switch m.state {
	case stateFormSite:
		f := subtleStyle.Render("\n[Enter] Next/Save  [Ctrl+S] Save  [←/→] Change  [PgUp/PgDn] Scroll  [Esc] Cancel")
		return m.formViewport.View() + "\n" + f
	default:
		return m.viewDashboard()
	}
}

func (m Model) viewDashboard() string {
	tabs := []string{"Sites", "Logs"}
	var renderedTabs []string
	for i, t := range tabs {
		if i == m.currentTab {
			renderedTabs = append(renderedTabs, activeTab.Render(t))
		} else {
			renderedTabs = append(renderedTabs, inactiveTab.Render(t))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
	content := ""

	if m.currentTab == 0 {
		headerStr := lipgloss.JoinHorizontal(lipgloss.Left,
			colID.Render("ID"), colName.Render("NAME"), colURL.Render("URL"), colStatus.Render("STATUS"), colCode.Render("CODE"), "LATENCY")
		content += "\n" + headerStr + "\n"
		content += subtleStyle.Render(strings.Repeat("-", 80)) + "\n"

		end := m.tableOffset + m.maxTableRows
		if end > len(m.sites) {
			end = len(m.sites)
		}

		if len(m.sites) == 0 {
			content += "\n  No sites configured."
		} else {
			for i := m.tableOffset; i < end; i++ {
				live := m.sites[i]
				site := live.Site

				statusStyle := specialStyle
				if live.Status == monitor.StatusDown {
					statusStyle = dangerStyle
				} else if live.Status == monitor.StatusPending {
					statusStyle = subtleStyle
				}

				code, latency := "-", "-"
				if r := site.LastResult; r != nil {
					code = strconv.Itoa(r.StatusCode)
					latency = fmt.Sprintf("%dms", r.LatencyMS)
				}

				row := lipgloss.JoinHorizontal(lipgloss.Left,
					colID.Render(strconv.Itoa(site.ID)),
					colName.Render(limitStr(site.Name, 14)),
					colURL.Render(limitStr(site.URL, 28)),
					colStatus.Render(statusStyle.Render(live.Status)),
					colCode.Render(code),
					latency,
				)

				if m.cursor == i {
					row = lipgloss.NewStyle().Bold(true).Render(">" + row)
				} else {
					row = " " + row
				}
				content += row + "\n"
			}
		}
	} else {
		content += "\n" + m.logViewport.View()
	}

	footer := subtleStyle.Render("\n[n] New  [d] Delete  [Tab] Switch View  [q] Quit")
	return lipgloss.NewStyle().Padding(1, 2).Render(header + "\n" + content + "\n" + footer)
}

func limitStr(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
