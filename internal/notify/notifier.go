package notify

import (
	"strings"

	"github.com/gen2brain/beeep"
	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/i18n"
	"github.com/sirupsen/logrus"
)

// Sink delivers a rendered notification.
type Sink interface {
	Send(level Level, title, message string) error
}

// DesktopSink shows native desktop notifications. Errors also play the
// system alert sound.
type DesktopSink struct{}

func (DesktopSink) Send(level Level, title, message string) error {
	if level == LevelError {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}

// Notifier renders notifications in the configured language, logs them and
// forwards them to a Sink.
type Notifier struct {
	sink        Sink
	localizer   *i18n.Localizer
	language    string
	appName     string
	showSuccess bool
	logger      *logrus.Logger
}

// NewNotifier creates a notifier backed by desktop notifications, or a
// log-only one when notifications are disabled.
func NewNotifier(cfg *config.Config, localizer *i18n.Localizer, logger *logrus.Logger) *Notifier {
	var sink Sink
	if cfg.Notifications.Enabled {
		sink = DesktopSink{}
	}
	return NewNotifierWithSink(cfg, localizer, sink, logger)
}

// NewNotifierWithSink is NewNotifier with an explicit sink. A nil sink only
// logs.
func NewNotifierWithSink(cfg *config.Config, localizer *i18n.Localizer, sink Sink, logger *logrus.Logger) *Notifier {
	return &Notifier{
		sink:        sink,
		localizer:   localizer,
		language:    localizer.DefaultLanguage(),
		appName:     cfg.Notifications.AppName,
		showSuccess: cfg.Notifications.ShowSuccess,
		logger:      logger,
	}
}

// Render returns the localized title and body of note.
func (n *Notifier) Render(note Notification) (string, string) {
	var titleID string
	switch note.Level {
	case LevelError:
		titleID = i18n.MsgTitleError
	case LevelWarning:
		titleID = i18n.MsgTitleWarning
	default:
		titleID = i18n.MsgTitleSuccess
	}
	title := n.localizer.Get(n.language, titleID, nil)
	if n.appName != "" {
		title = n.appName + ": " + title
	}

	body := n.localizer.Get(n.language, note.MessageID, note.Data)
	if note.Action != "" {
		body = strings.TrimSpace(body + "\n" + n.localizer.Get(n.language, note.Action, nil))
	}
	return title, body
}

// Notify logs note and shows it. Informational notes are only shown when
// notifications.show_success is set.
func (n *Notifier) Notify(note Notification) {
	title, body := n.Render(note)

	entry := n.logger.WithFields(logrus.Fields{
		"reason": note.MessageID,
		"level":  note.Level.String(),
	})
	switch note.Level {
	case LevelError:
		entry.Error(body)
	case LevelWarning:
		entry.Warn(body)
	default:
		entry.Info(body)
	}

	if n.sink == nil || (note.Level == LevelInfo && !n.showSuccess) {
		return
	}
	if err := n.sink.Send(note.Level, title, body); err != nil {
		n.logger.WithError(err).Debug("Failed to show desktop notification")
	}
}

// NotifyError classifies err and notifies about it.
func (n *Notifier) NotifyError(err error) Notification {
	note := Classify(err)
	n.Notify(note)
	return note
}
