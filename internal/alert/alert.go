package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"

	"sitewatch/internal/models"
)

type Provider interface {
	Send(ctx context.Context, title, message string) error
}

// GetProvider returns nil for an unknown or empty alert type.
func GetProvider(cfg models.AlertConfig) Provider {
	switch cfg.Type {
	case "discord":
		return &DiscordProvider{URL: cfg.Settings["url"]}
	case "slack":
		return &SlackProvider{URL: cfg.Settings["url"]}
	case "webhook":
		return &WebhookProvider{URL: cfg.Settings["url"]}
	case "email":
		port := "25"
		if p, ok := cfg.Settings["port"]; ok && p != "" {
			port = p
		}
		return &EmailProvider{
			Host: cfg.Settings["host"],
			Port: port,
			User: cfg.Settings["user"],
			Pass: cfg.Settings["pass"],
			To:   cfg.Settings["to"],
			From: cfg.Settings["from"],
		}
	default:
		return nil
	}
}

func postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned %s", resp.Status)
	}
	return nil
}

// --- DISCORD ---
type DiscordProvider struct{ URL string }

func (d *DiscordProvider) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, d.URL, map[string]string{"content": fmt.Sprintf("**%s**\n%s", title, message)})
}

// --- SLACK ---
type SlackProvider struct{ URL string }

func (s *SlackProvider) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, s.URL, map[string]string{"text": fmt.Sprintf("*%s*\n%s", title, message)})
}

// --- GENERIC WEBHOOK ---
type WebhookProvider struct{ URL string }

func (w *WebhookProvider) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, w.URL, map[string]string{
		"title":   title,
		"message": message,
		"status":  "alert",
	})
}

// --- EMAIL ---
type EmailProvider struct {
	Host, Port, User, Pass, To, From string
}

func (e *EmailProvider) Send(_ context.Context, title, message string) error {
	auth := smtp.PlainAuth("", e.User, e.Pass, e.Host)
	msg := []byte("To: " + e.To + "\r\n" +
		"Subject: sitewatch: " + title + "\r\n" +
		"\r\n" +
		message + "\r\n")
	return smtp.SendMail(e.Host+":"+e.Port, auth, e.From, []string{e.To}, msg)
}
