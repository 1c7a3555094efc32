package models

import (
	"fmt"
	"time"
)

type ValidationMode string

const (
	ModeStatusCode ValidationMode = "STATUS_CODE"
	ModeTermSearch ValidationMode = "TERM_SEARCH"
	ModeJavaScript ValidationMode = "JAVASCRIPT"
)

// Modes lists every validation mode in display order.
var Modes = []ValidationMode{ModeStatusCode, ModeTermSearch, ModeJavaScript}

func (m ValidationMode) Valid() bool {
	switch m {
	case ModeStatusCode, ModeTermSearch, ModeJavaScript:
		return true
	}
	return false
}

// TakesArgs reports whether sites in this mode carry ValidationArgs.
func (m ValidationMode) TakesArgs() bool {
	return m == ModeTermSearch || m == ModeJavaScript
}

func ParseValidationMode(s string) (ValidationMode, error) {
	m := ValidationMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown validation mode %q", s)
	}
	return m, nil
}

// Check interval multipliers, in milliseconds.
const (
	UnitSeconds int64 = 1000
	UnitMinutes int64 = 60 * UnitSeconds
	UnitHours   int64 = 60 * UnitMinutes
)

type SiteSettings struct {
	ValidationIntervalMs int64          `json:"validation_interval_ms"`
	ValidationMode       ValidationMode `json:"validation_mode"`
	ValidationArgs       *string        `json:"validation_args,omitempty"`
	TimeoutSeconds       int            `json:"timeout_seconds"`
	Disabled             bool           `json:"disabled"`
}

// Interval is the check interval as a duration.
func (s SiteSettings) Interval() time.Duration {
	return time.Duration(s.ValidationIntervalMs) * time.Millisecond
}

// Timeout is the network timeout as a duration.
func (s SiteSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type Site struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	URL        string       `json:"url"`
	Settings   SiteSettings `json:"settings"`
	LastResult *CheckResult `json:"last_result,omitempty"`
}

// CheckResult is the outcome of a single health check of a Site.
type CheckResult struct {
	ID         string    `json:"id"`
	SiteID     int       `json:"site_id"`
	CheckedAt  time.Time `json:"checked_at"`
	Up         bool      `json:"up"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMS  int64     `json:"latency_ms"`
	Reason     string    `json:"reason,omitempty"`
}

type AlertConfig struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Settings map[string]string `json:"settings"`
}
