package tui

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"

	"sitewatch/internal/siteform"
)

const keyURLSchemeWarning = "url_scheme_warning"

var englishMessages = map[any]string{
	siteform.MsgEnterName:             "Please enter name",
	siteform.MsgEnterURL:              "Please enter URL",
	siteform.MsgEnterValidURL:         "Please enter a valid URL",
	siteform.MsgEnterTimeout:          "Please enter network timeout",
	siteform.MsgEnterCheckInterval:    "Please enter check interval",
	siteform.MsgEnterSearchTerm:       "Please enter search term",
	siteform.MsgEnterJavaScript:       "Please enter JavaScript",
	siteform.MsgStatusCodeDescription: "The site is up when it answers with a 2xx or 3xx status code.",
	siteform.MsgTermSearchDescription: "The site is up when the response body contains the search term.",
	siteform.MsgJavaScriptDescription: "The site is up when the validation script returns true for the response.",
	keyURLSchemeWarning:               "Only http and https URLs can be checked.",
}

func newTranslator() ut.Translator {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator(english.Locale())
	for key, text := range englishMessages {
		trans.Add(key, text, false)
	}
	return trans
}

// text resolves key, falling back to its name when no translation exists.
func text(trans ut.Translator, key any) string {
	s, err := trans.T(key)
	if err != nil {
		if m, ok := key.(siteform.Message); ok {
			return m.String()
		}
		return "?"
	}
	return s
}
