package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/hotkeys"
	"github.com/llm-translator-go/internal/i18n"
	"github.com/llm-translator-go/internal/middleware"
	"github.com/llm-translator-go/internal/platform"
	"github.com/llm-translator-go/internal/services/ai"
	"github.com/llm-translator-go/internal/services/capture"
	"github.com/llm-translator-go/internal/services/translation"
	"github.com/llm-translator-go/pkg/logger"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		level  Level
		id     string
		action string
	}{
		{"no selection", capture.ErrNoSelection, LevelWarning, i18n.MsgNoSelection, i18n.MsgActionSelectText},
		{"whitespace", fmt.Errorf("capture: %w", capture.ErrOnlyWhitespace), LevelWarning, i18n.MsgOnlyWhitespace, i18n.MsgActionSelectText},
		{"clipboard timeout", &capture.TimeoutError{After: 500 * time.Millisecond}, LevelWarning, i18n.MsgClipboardTimeout, i18n.MsgActionSelectText},
		{"clipboard unavailable", platform.ErrClipboardUnavailable, LevelError, i18n.MsgClipboardUnavailable, i18n.MsgActionRetryLater},
		{"too long", &translation.InvalidError{Verdict: middleware.TooLong{Length: 9, Max: 5}}, LevelWarning, i18n.MsgTextTooLong, i18n.MsgActionShortenText},
		{"binary", &translation.InvalidError{Verdict: middleware.ContainsBinaryData{}}, LevelWarning, i18n.MsgBinaryData, i18n.MsgActionSelectText},
		{"minute limit", &middleware.MinuteLimitError{WaitTime: 12 * time.Second, Limit: 30}, LevelWarning, i18n.MsgRateLimitMinute, i18n.MsgActionRetryLater},
		{"daily limit", &middleware.DailyLimitError{Used: 500, Max: 500}, LevelWarning, i18n.MsgRateLimitDaily, i18n.MsgActionRetryLater},
		{"queue full", translation.ErrQueueFull, LevelWarning, i18n.MsgQueueFull, i18n.MsgActionRetryLater},
		{"busy", translation.ErrBusy, LevelInfo, i18n.MsgBusy, ""},
		{"cancelled", ai.Cancelled(context.Canceled), LevelInfo, i18n.MsgTranslationCancelled, ""},
		{"auth", &ai.APIError{Kind: ai.KindAuth, Status: 401}, LevelError, i18n.MsgAPIAuth, i18n.MsgActionCheckAPIKey},
		{"server", &ai.APIError{Kind: ai.KindServer, Status: 503}, LevelError, i18n.MsgAPIServer, i18n.MsgActionRetryLater},
		{"bad request", &ai.APIError{Kind: ai.KindRequest, Status: 400}, LevelError, i18n.MsgAPIRequest, ""},
		{"hotkey", &hotkeys.RegistrationError{Requested: hotkeys.MustParseKeyCombo("Ctrl+C")}, LevelError, i18n.MsgHotkeyUnavailable, i18n.MsgActionChangeHotkey},
		{"unknown", errors.New("boom"), LevelError, i18n.MsgError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Level != tt.level || got.MessageID != tt.id || got.Action != tt.action {
				t.Errorf("Classify() = %+v, want level %s id %s action %q", got, tt.level, tt.id, tt.action)
			}
		})
	}
}

func TestClassifyRoundsRateLimitWait(t *testing.T) {
	got := Classify(&middleware.MinuteLimitError{WaitTime: 300 * time.Millisecond, Limit: 10})
	if wait := got.Data["Wait"].(time.Duration); wait != time.Second {
		t.Errorf("Wait = %s, want 1s", wait)
	}
}

type recordingSink struct {
	sent []string
}

func (s *recordingSink) Send(level Level, title, message string) error {
	s.sent = append(s.sent, level.String()+"|"+title+"|"+message)
	return nil
}

func newTestNotifier(t *testing.T, showSuccess bool) (*Notifier, *recordingSink) {
	t.Helper()
	localizer, err := i18n.NewLocalizer(&config.I18nConfig{DefaultLanguage: "en", Languages: []string{"en"}})
	if err != nil {
		t.Fatalf("NewLocalizer() error = %v", err)
	}
	cfg := &config.Config{Notifications: config.NotificationsConfig{Enabled: true, AppName: "Translator", ShowSuccess: showSuccess}}
	sink := &recordingSink{}
	return NewNotifierWithSink(cfg, localizer, sink, logger.Discard()), sink
}

func TestNotifierRendersAndSends(t *testing.T) {
	n, sink := newTestNotifier(t, true)

	n.NotifyError(&middleware.DailyLimitError{Used: 500, Max: 500})
	n.Notify(Success(42, false, true))

	if len(sink.sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(sink.sent))
	}
	want := "warning|Translator: Translation skipped|The daily limit of 500 translations is used up\nTry again later"
	if sink.sent[0] != want {
		t.Errorf("sent[0] = %q, want %q", sink.sent[0], want)
	}
	if !strings.Contains(sink.sent[1], "42 characters translated") {
		t.Errorf("sent[1] = %q", sink.sent[1])
	}
}

func TestNotifierHidesSuccessWhenDisabled(t *testing.T) {
	n, sink := newTestNotifier(t, false)

	n.Notify(Success(3, true, false))
	n.NotifyError(capture.ErrNoSelection)

	if len(sink.sent) != 1 || !strings.HasPrefix(sink.sent[0], "warning|") {
		t.Errorf("sent = %q", sink.sent)
	}
}
