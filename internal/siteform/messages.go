package siteform

import (
	"fmt"

	"sitewatch/internal/models"
)

// Message is an opaque key resolved to display text by the presentation layer.
type Message int

const (
	MsgNone Message = iota
	MsgEnterName
	MsgEnterURL
	MsgEnterValidURL
	MsgEnterTimeout
	MsgEnterCheckInterval
	MsgEnterSearchTerm
	MsgEnterJavaScript
	MsgStatusCodeDescription
	MsgTermSearchDescription
	MsgJavaScriptDescription
)

var messageNames = map[Message]string{
	MsgNone:                  "none",
	MsgEnterName:             "enter_name",
	MsgEnterURL:              "enter_url",
	MsgEnterValidURL:         "enter_valid_url",
	MsgEnterTimeout:          "enter_timeout",
	MsgEnterCheckInterval:    "enter_check_interval",
	MsgEnterSearchTerm:       "enter_search_term",
	MsgEnterJavaScript:       "enter_javascript",
	MsgStatusCodeDescription: "status_code_description",
	MsgTermSearchDescription: "term_search_description",
	MsgJavaScriptDescription: "javascript_description",
}

func (m Message) String() string {
	if s, ok := messageNames[m]; ok {
		return s
	}
	return fmt.Sprintf("message(%d)", int(m))
}

// Messages lists every key except MsgNone.
func Messages() []Message {
	out := make([]Message, 0, len(messageNames)-1)
	for m := MsgEnterName; m <= MsgJavaScriptDescription; m++ {
		out = append(out, m)
	}
	return out
}

// ModeDescription returns the description key for mode. An undefined mode is
// a broken invariant upstream and panics.
func ModeDescription(mode models.ValidationMode) Message {
	switch mode {
	case models.ModeStatusCode:
		return MsgStatusCodeDescription
	case models.ModeTermSearch:
		return MsgTermSearchDescription
	case models.ModeJavaScript:
		return MsgJavaScriptDescription
	default:
		panic(fmt.Sprintf("siteform: no description for validation mode %q", string(mode)))
	}
}
