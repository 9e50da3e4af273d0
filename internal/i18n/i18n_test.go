package i18n

import (
	"testing"

	"github.com/llm-translator-go/internal/config"
)

func TestLocalizerGet(t *testing.T) {
	l, err := NewLocalizer(&config.I18nConfig{DefaultLanguage: "en", Languages: []string{"en", "ru"}})
	if err != nil {
		t.Fatalf("NewLocalizer() error = %v", err)
	}

	tests := []struct {
		lang string
		id   string
		data map[string]interface{}
		want string
	}{
		{"en", MsgNoSelection, nil, "No text is selected"},
		{"ru", MsgNoSelection, nil, "Текст не выделен"},
		{"de", MsgBusy, nil, "A translation is already in progress"},
		{"en", MsgTextTooLong, map[string]interface{}{"Length": 6000, "Max": 5000}, "The selection is 6000 characters long, the limit is 5000"},
		{"en", "no_such_message", nil, "no_such_message"},
	}
	for _, tt := range tests {
		if got := l.Get(tt.lang, tt.id, tt.data); got != tt.want {
			t.Errorf("Get(%s, %s) = %q, want %q", tt.lang, tt.id, got, tt.want)
		}
	}
}

func TestLocalesDefineTheSameMessages(t *testing.T) {
	l, err := NewLocalizer(&config.I18nConfig{DefaultLanguage: "en", Languages: []string{"en", "ru"}})
	if err != nil {
		t.Fatalf("NewLocalizer() error = %v", err)
	}

	ids := []string{
		MsgTitleSuccess, MsgTitleWarning, MsgTitleError, MsgTranslationDone, MsgTranslationCopied,
		MsgTranslationCached, MsgTranslationCancelled, MsgNoSelection, MsgEmptySelection,
		MsgOnlyWhitespace, MsgClipboardTimeout, MsgClipboardUnavailable, MsgTextTooLong,
		MsgTooManyTokens, MsgBinaryData, MsgRateLimitMinute, MsgRateLimitDaily, MsgQueueFull,
		MsgBusy, MsgAPIAuth, MsgAPIRateLimited, MsgAPITimeout, MsgAPIServer, MsgAPITransport,
		MsgAPIRequest, MsgAPIMalformed, MsgPasteFailed, MsgError, MsgHotkeyRegistered,
		MsgHotkeyFallback, MsgHotkeyUnavailable, MsgPresetChanged, MsgActionRetryLater,
		MsgActionCheckAPIKey, MsgActionSelectText, MsgActionShortenText, MsgActionChangeHotkey,
	}
	for _, lang := range []string{"en", "ru"} {
		for _, id := range ids {
			if got := l.Get(lang, id, map[string]interface{}{}); got == id {
				t.Errorf("%s has no message %q", lang, id)
			}
		}
	}
}

func TestUnknownLanguageFails(t *testing.T) {
	if _, err := NewLocalizer(&config.I18nConfig{DefaultLanguage: "en", Languages: []string{"xx"}}); err == nil {
		t.Error("NewLocalizer() accepted a language without a locale file")
	}
}
