package monitor

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"

	"sitewatch/internal/models"
)

const maxBodyBytes = 1 << 20

// Response is what a script evaluator gets to judge.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// ScriptEvaluator runs a JAVASCRIPT-mode validation script against a
// response and reports whether the site is healthy.
type ScriptEvaluator interface {
	Evaluate(ctx context.Context, script string, resp Response) (bool, error)
}

type Checker struct {
	Client    *http.Client
	Evaluator ScriptEvaluator
}

func NewChecker(evaluator ScriptEvaluator) *Checker {
	return &Checker{
		Client: &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		},
		Evaluator: evaluator,
	}
}

// Check performs one request against site and judges it by the site's
// validation mode. The caller bounds ctx with the site's network timeout.
// ID and SiteID are left for the caller.
func (c *Checker) Check(ctx context.Context, site models.Site) models.CheckResult {
	start := time.Now()
	res := models.CheckResult{CheckedAt: start.UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.URL, nil)
	if err != nil {
		res.Reason = err.Error()
		return res
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		res.LatencyMS = time.Since(start).Milliseconds()
		res.Reason = err.Error()
		return res
	}
	defer resp.Body.Close()
	res.StatusCode = resp.StatusCode

	var body string
	if site.Settings.ValidationMode.TakesArgs() {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			res.LatencyMS = time.Since(start).Milliseconds()
			res.Reason = "read_body: " + err.Error()
			return res
		}
		body = string(b)
	}
	res.LatencyMS = time.Since(start).Milliseconds()

	args := ""
	if site.Settings.ValidationArgs != nil {
		args = *site.Settings.ValidationArgs
	}

	switch site.Settings.ValidationMode {
	case models.ModeStatusCode:
		res.Up = resp.StatusCode >= 200 && resp.StatusCode < 400
		res.Reason = resp.Status
	case models.ModeTermSearch:
		res.Up = args != "" && strings.Contains(body, args)
		if !res.Up {
			res.Reason = "term_not_found"
		}
	case models.ModeJavaScript:
		if c.Evaluator == nil {
			res.Reason = "script_evaluator_unavailable"
			return res
		}
		ok, err := c.Evaluator.Evaluate(ctx, args, Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body})
		if err != nil {
			res.Reason = "script_error: " + err.Error()
			return res
		}
		res.Up = ok
		if !ok {
			res.Reason = "script_rejected"
		}
	default:
		res.Reason = "unknown_validation_mode"
	}
	return res
}
