package siteform

import (
	"net/url"
	"strings"

	"sitewatch/internal/models"
)

// fields is a snapshot of the form inputs taken at validation time.
type fields struct {
	name          string
	url           string
	timeout       *int
	mode          models.ValidationMode
	searchTerm    string
	script        string
	intervalValue *int
	intervalUnit  int64
}

type fieldErrors struct {
	name       Message
	url        Message
	timeout    Message
	interval   Message
	searchTerm Message
	script     Message
}

func (e fieldErrors) count() int {
	n := 0
	for _, m := range []Message{e.name, e.url, e.timeout, e.interval, e.searchTerm, e.script} {
		if m != MsgNone {
			n++
		}
	}
	return n
}

// validate evaluates every rule; it never stops at the first failure.
func validate(f fields) fieldErrors {
	var e fieldErrors

	if f.name == "" {
		e.name = MsgEnterName
	}

	switch {
	case f.url == "":
		e.url = MsgEnterURL
	case !isStructuralURL(f.url):
		e.url = MsgEnterValidURL
	}

	if f.timeout == nil || *f.timeout < 1 {
		e.timeout = MsgEnterTimeout
	}
	if f.intervalValue == nil || *f.intervalValue < 1 {
		e.interval = MsgEnterCheckInterval
	}

	if f.mode == models.ModeTermSearch && f.searchTerm == "" {
		e.searchTerm = MsgEnterSearchTerm
	}
	if f.mode == models.ModeJavaScript && f.script == "" {
		e.script = MsgEnterJavaScript
	}
	return e
}

// isStructuralURL reports whether raw is an absolute URL with a scheme and a
// host. The scheme itself is not restricted.
func isStructuralURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func urlWarning(raw string) bool {
	if raw == "" || !isStructuralURL(raw) {
		return false
	}
	u, _ := url.Parse(raw)
	return !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https")
}

func intervalMs(value *int, unit int64) int64 {
	if value == nil || unit == 0 {
		return 0
	}
	return int64(*value) * unit
}
