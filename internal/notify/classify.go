package notify

import (
	"context"
	"errors"
	"time"

	"github.com/llm-translator-go/internal/hotkeys"
	"github.com/llm-translator-go/internal/i18n"
	"github.com/llm-translator-go/internal/middleware"
	"github.com/llm-translator-go/internal/platform"
	"github.com/llm-translator-go/internal/services/ai"
	"github.com/llm-translator-go/internal/services/capture"
	"github.com/llm-translator-go/internal/services/translation"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a localizable message for the user. MessageID doubles as
// a stable reason code for logs and metrics.
type Notification struct {
	Level     Level
	MessageID string
	Data      map[string]interface{}
	// Action is the message id of a suggested next step, empty for none.
	Action string
}

// Success describes a finished translation.
func Success(chars int, cached, pasted bool) Notification {
	id := i18n.MsgTranslationCopied
	if pasted {
		id = i18n.MsgTranslationDone
	}
	n := Notification{
		Level:     LevelInfo,
		MessageID: id,
		Data:      map[string]interface{}{"Chars": chars},
	}
	if cached {
		n.Action = i18n.MsgTranslationCached
	}
	return n
}

// Info builds an informational notification.
func Info(messageID string, data map[string]interface{}) Notification {
	return Notification{Level: LevelInfo, MessageID: messageID, Data: data}
}

// Classify maps an error from any stage of a translation to the message the
// user sees.
func Classify(err error) Notification {
	warn := func(id, action string, data map[string]interface{}) Notification {
		return Notification{Level: LevelWarning, MessageID: id, Action: action, Data: data}
	}
	fail := func(id, action string, data map[string]interface{}) Notification {
		return Notification{Level: LevelError, MessageID: id, Action: action, Data: data}
	}

	var (
		timeoutErr *capture.TimeoutError
		invalidErr *translation.InvalidError
		minuteErr  *middleware.MinuteLimitError
		dailyErr   *middleware.DailyLimitError
	)

	switch {
	case errors.Is(err, ai.ErrCancelled), errors.Is(err, context.Canceled):
		return Info(i18n.MsgTranslationCancelled, nil)
	case errors.Is(err, translation.ErrBusy):
		return Info(i18n.MsgBusy, nil)

	case errors.Is(err, capture.ErrNoSelection):
		return warn(i18n.MsgNoSelection, i18n.MsgActionSelectText, nil)
	case errors.Is(err, capture.ErrEmptySelection):
		return warn(i18n.MsgEmptySelection, i18n.MsgActionSelectText, nil)
	case errors.Is(err, capture.ErrOnlyWhitespace):
		return warn(i18n.MsgOnlyWhitespace, i18n.MsgActionSelectText, nil)
	case errors.As(err, &timeoutErr):
		return warn(i18n.MsgClipboardTimeout, i18n.MsgActionSelectText, map[string]interface{}{"Timeout": timeoutErr.After})
	case errors.Is(err, platform.ErrClipboardUnavailable):
		return fail(i18n.MsgClipboardUnavailable, i18n.MsgActionRetryLater, nil)

	case errors.As(err, &invalidErr):
		switch v := invalidErr.Verdict.(type) {
		case middleware.TooLong:
			return warn(i18n.MsgTextTooLong, i18n.MsgActionShortenText, map[string]interface{}{"Length": v.Length, "Max": v.Max})
		case middleware.TooManyTokensEstimate:
			return warn(i18n.MsgTooManyTokens, i18n.MsgActionShortenText, map[string]interface{}{"Estimated": v.Estimated, "Max": v.Max})
		default:
			return warn(i18n.MsgBinaryData, i18n.MsgActionSelectText, nil)
		}

	case errors.As(err, &minuteErr):
		wait := max(minuteErr.WaitTime.Round(time.Second), time.Second)
		return warn(i18n.MsgRateLimitMinute, i18n.MsgActionRetryLater, map[string]interface{}{"Wait": wait, "Limit": minuteErr.Limit})
	case errors.As(err, &dailyErr):
		return warn(i18n.MsgRateLimitDaily, i18n.MsgActionRetryLater, map[string]interface{}{"Used": dailyErr.Used, "Max": dailyErr.Max})
	case errors.Is(err, translation.ErrQueueFull):
		return warn(i18n.MsgQueueFull, i18n.MsgActionRetryLater, nil)

	case hotkeys.IsRegistrationError(err):
		return fail(i18n.MsgHotkeyUnavailable, i18n.MsgActionChangeHotkey, nil)
	}

	if kind, ok := ai.KindOf(err); ok {
		switch kind {
		case ai.KindAuth:
			return fail(i18n.MsgAPIAuth, i18n.MsgActionCheckAPIKey, nil)
		case ai.KindRateLimited:
			return warn(i18n.MsgAPIRateLimited, i18n.MsgActionRetryLater, nil)
		case ai.KindTimeout:
			return fail(i18n.MsgAPITimeout, i18n.MsgActionRetryLater, nil)
		case ai.KindServer:
			return fail(i18n.MsgAPIServer, i18n.MsgActionRetryLater, nil)
		case ai.KindTransport:
			return fail(i18n.MsgAPITransport, i18n.MsgActionRetryLater, nil)
		case ai.KindRequest:
			return fail(i18n.MsgAPIRequest, "", nil)
		case ai.KindMalformed:
			return fail(i18n.MsgAPIMalformed, i18n.MsgActionRetryLater, nil)
		}
	}

	return fail(i18n.MsgError, "", map[string]interface{}{"Error": err.Error()})
}
