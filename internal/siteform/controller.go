// Package siteform holds the view-model behind the "add site" form. Inputs and
// derived state are observable values so any front end can bind to them; the
// TUI in internal/tui is one such front end.
package siteform

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"sitewatch/internal/models"
	"sitewatch/internal/observable"
)

var (
	// ErrCommitInProgress is returned when Commit is called while another
	// commit still owns the form.
	ErrCommitInProgress = errors.New("commit already in progress")
	// ErrUnsavedSite is returned when the store hands back a site without an ID.
	ErrUnsavedSite = errors.New("store returned site without id")
)

// SiteStore persists new sites and assigns their IDs.
type SiteStore interface {
	CreateSite(ctx context.Context, site models.Site) (models.Site, error)
}

// CheckScheduler registers recurring health checks.
type CheckScheduler interface {
	ScheduleCheck(site models.Site, rightNow, cancelPrevious bool)
}

const (
	defaultTimeoutSeconds = 10
	defaultIntervalValue  = 15
)

type Controller struct {
	Name                 *observable.Value[string]
	URL                  *observable.Value[string]
	Timeout              *observable.Value[*int]
	ValidationMode       *observable.Value[models.ValidationMode]
	ValidationSearchTerm *observable.Value[string]
	ValidationScript     *observable.Value[string]
	CheckIntervalValue   *observable.Value[*int]
	CheckIntervalUnit    *observable.Value[int64]

	IsLoading                   observable.Readable[bool]
	NameError                   observable.Readable[Message]
	URLError                    observable.Readable[Message]
	TimeoutError                observable.Readable[Message]
	ValidationSearchTermError   observable.Readable[Message]
	ValidationScriptError       observable.Readable[Message]
	CheckIntervalValueError     observable.Readable[Message]
	URLWarningVisible           observable.Readable[bool]
	ValidationModeDescription   observable.Readable[Message]
	ValidationSearchTermVisible observable.Readable[bool]
	ValidationScriptVisible     observable.Readable[bool]

	isLoading       *observable.Value[bool]
	nameError       *observable.Value[Message]
	urlError        *observable.Value[Message]
	timeoutError    *observable.Value[Message]
	searchTermError *observable.Value[Message]
	scriptError     *observable.Value[Message]
	intervalError   *observable.Value[Message]

	store      SiteStore
	scheduler  CheckScheduler
	logger     *zap.Logger
	committing atomic.Bool
}

type Option func(*Controller)

// WithLogger sets the logger used for commit events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(store SiteStore, scheduler CheckScheduler, opts ...Option) *Controller {
	timeout, interval := defaultTimeoutSeconds, defaultIntervalValue
	c := &Controller{
		Name:                 observable.New(""),
		URL:                  observable.New(""),
		Timeout:              observable.New(&timeout),
		ValidationMode:       observable.New(models.ModeStatusCode),
		ValidationSearchTerm: observable.New(""),
		ValidationScript:     observable.New(""),
		CheckIntervalValue:   observable.New(&interval),
		CheckIntervalUnit:    observable.New(models.UnitMinutes),

		isLoading:       observable.New(false),
		nameError:       observable.New(MsgNone),
		urlError:        observable.New(MsgNone),
		timeoutError:    observable.New(MsgNone),
		searchTermError: observable.New(MsgNone),
		scriptError:     observable.New(MsgNone),
		intervalError:   observable.New(MsgNone),

		store:     store,
		scheduler: scheduler,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.IsLoading = c.isLoading
	c.NameError = c.nameError
	c.URLError = c.urlError
	c.TimeoutError = c.timeoutError
	c.ValidationSearchTermError = c.searchTermError
	c.ValidationScriptError = c.scriptError
	c.CheckIntervalValueError = c.intervalError

	c.URLWarningVisible = observable.Map[string, bool](c.URL, urlWarning)
	c.ValidationModeDescription = observable.Map[models.ValidationMode, Message](c.ValidationMode, ModeDescription)
	c.ValidationSearchTermVisible = observable.Map[models.ValidationMode, bool](c.ValidationMode, func(m models.ValidationMode) bool {
		return m == models.ModeTermSearch
	})
	c.ValidationScriptVisible = observable.Map[models.ValidationMode, bool](c.ValidationMode, func(m models.ValidationMode) bool {
		return m == models.ModeJavaScript
	})
	return c
}

// CheckIntervalMs is the interval value times its unit, or 0 while either is
// unset.
func (c *Controller) CheckIntervalMs() int64 {
	return intervalMs(c.CheckIntervalValue.Get(), c.CheckIntervalUnit.Get())
}

func (c *Controller) snapshot() fields {
	return fields{
		name:          c.Name.Get(),
		url:           c.URL.Get(),
		timeout:       c.Timeout.Get(),
		mode:          c.ValidationMode.Get(),
		searchTerm:    c.ValidationSearchTerm.Get(),
		script:        c.ValidationScript.Get(),
		intervalValue: c.CheckIntervalValue.Get(),
		intervalUnit:  c.CheckIntervalUnit.Get(),
	}
}

// Validate refreshes every error observable from the current inputs and
// returns the number of failing fields.
func (c *Controller) Validate() int {
	return c.publish(validate(c.snapshot()))
}

// publish pushes e into the error observables and returns the failing count.
func (c *Controller) publish(e fieldErrors) int {
	c.nameError.Set(e.name)
	c.urlError.Set(e.url)
	c.timeoutError.Set(e.timeout)
	c.intervalError.Set(e.interval)
	c.searchTermError.Set(e.searchTerm)
	c.scriptError.Set(e.script)
	return e.count()
}

// Commit validates the form and, when every field passes, creates the site
// and schedules its first check. It blocks on the store, so front ends call
// it away from their render loop. onDone runs only after a successful save
// and schedule. Store failures are returned to the caller.
func (c *Controller) Commit(ctx context.Context, onDone func()) error {
	// The site is built from the snapshot that passed validation.
	f := c.snapshot()
	if failing := c.publish(validate(f)); failing > 0 {
		c.logger.Debug("site_form_invalid", zap.Int("failing_fields", failing))
		return nil
	}
	if !c.committing.CompareAndSwap(false, true) {
		return ErrCommitInProgress
	}
	defer c.committing.Store(false)

	c.isLoading.Set(true)
	err := c.persist(ctx, f)
	c.isLoading.Set(false)
	if err != nil {
		return err
	}
	if onDone != nil {
		onDone()
	}
	return nil
}

// persist creates the site and hands the saved copy to the scheduler. The
// scheduler only ever sees a site the store has assigned an ID to.
func (c *Controller) persist(ctx context.Context, f fields) error {
	site := buildSite(f)
	saved, err := c.store.CreateSite(ctx, site)
	if err != nil {
		c.logger.Warn("site_create_error", zap.String("url", site.URL), zap.Error(err))
		return fmt.Errorf("create site: %w", err)
	}
	if saved.ID == 0 {
		return ErrUnsavedSite
	}
	c.logger.Info("site_created",
		zap.Int("site_id", saved.ID),
		zap.String("name", saved.Name),
		zap.String("url", saved.URL),
		zap.String("mode", string(saved.Settings.ValidationMode)),
	)

	c.scheduler.ScheduleCheck(saved, true, true)
	return nil
}

func buildSite(f fields) models.Site {
	settings := models.SiteSettings{
		ValidationIntervalMs: intervalMs(f.intervalValue, f.intervalUnit),
		ValidationMode:       f.mode,
		Disabled:             false,
	}
	if f.timeout != nil {
		settings.TimeoutSeconds = *f.timeout
	}
	switch f.mode {
	case models.ModeTermSearch:
		term := f.searchTerm
		settings.ValidationArgs = &term
	case models.ModeJavaScript:
		script := f.script
		settings.ValidationArgs = &script
	}
	return models.Site{
		Name:     f.name,
		URL:      f.url,
		Settings: settings,
	}
}
