package handlers

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/i18n"
	"github.com/llm-translator-go/internal/middleware"
	"github.com/llm-translator-go/internal/models"
	"github.com/llm-translator-go/internal/notify"
	"github.com/llm-translator-go/internal/services/ai"
	"github.com/llm-translator-go/internal/services/capture"
	"github.com/llm-translator-go/internal/services/storage"
	"github.com/llm-translator-go/internal/services/translation"
	"github.com/sirupsen/logrus"
)

const historySaveTimeout = 5 * time.Second

// settings is the part of the configuration that can change while running.
type settings struct {
	prompt         ai.Prompt
	presetName     string
	model          string
	captureTimeout time.Duration
	behavior       config.BehaviorConfig
}

// HotkeyHandler runs one translation per hotkey press: capture the
// selection, translate it, put the result on the clipboard and optionally
// paste it over the selection.
type HotkeyHandler struct {
	capture    capture.Service
	translator *translation.Manager
	history    *storage.Manager
	notifier   *notify.Notifier
	metrics    *middleware.Metrics
	logger     *logrus.Logger

	mu       sync.RWMutex
	settings settings

	busy chan struct{}

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewHotkeyHandler creates a new hotkey handler. history and metrics may
// be nil.
func NewHotkeyHandler(
	cfg *config.Config,
	captureService capture.Service,
	translator *translation.Manager,
	history *storage.Manager,
	notifier *notify.Notifier,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *HotkeyHandler {
	return &HotkeyHandler{
		capture:    captureService,
		translator: translator,
		history:    history,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		settings:   settingsFrom(cfg),
		busy:       make(chan struct{}, 1),
	}
}

func settingsFrom(cfg *config.Config) settings {
	id, preset := cfg.ActivePrompt()
	name := preset.Name
	if name == "" {
		name = id
	}
	return settings{
		prompt:         ai.Prompt{ID: id, System: preset.System},
		presetName:     name,
		model:          cfg.API.Model,
		captureTimeout: cfg.Limits.ClipboardTimeout,
		behavior:       cfg.Behavior,
	}
}

// Apply switches to a reloaded configuration. Translations already running
// keep the settings they started with.
func (h *HotkeyHandler) Apply(cfg *config.Config) {
	next := settingsFrom(cfg)

	h.mu.Lock()
	changed := next.prompt.ID != h.settings.prompt.ID
	h.settings = next
	h.mu.Unlock()

	if changed {
		h.notifier.Notify(notify.Info(i18n.MsgPresetChanged, map[string]interface{}{"Preset": next.presetName}))
	}
}

func (h *HotkeyHandler) current() settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settings
}

// Serve handles hotkey events until ctx is done. Translations run in their
// own goroutine so a cancel press is seen while one is in progress.
func (h *HotkeyHandler) Serve(ctx context.Context, translate, cancel <-chan struct{}) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			h.HandleCancel()
			return
		case <-translate:
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.HandleTranslate(ctx)
			}()
		case <-cancel:
			h.HandleCancel()
		}
	}
}

// HandleTranslate processes one translate press. A press while another
// translation is running returns translation.ErrBusy.
func (h *HotkeyHandler) HandleTranslate(ctx context.Context) error {
	select {
	case h.busy <- struct{}{}:
	default:
		h.recordPress("busy")
		h.notifier.NotifyError(translation.ErrBusy)
		return translation.ErrBusy
	}
	defer func() { <-h.busy }()

	ctx, cancel := context.WithCancel(ctx)
	h.setCancel(cancel)
	defer func() {
		h.setCancel(nil)
		cancel()
	}()

	start := time.Now()
	s := h.current()
	rec := &models.HistoryRecord{
		Source: "hotkey",
		Model:  s.model,
		Preset: s.prompt.ID,
	}

	sel, err := h.capture.GetSelection(ctx, s.captureTimeout)
	if err != nil {
		h.restore(ctx, sel, s)
		note := h.fail(ctx, rec, start, err)
		if h.metrics != nil {
			h.metrics.RecordCaptureFailure(note.MessageID)
		}
		return err
	}
	rec.SourceChars = utf8.RuneCountInString(sel.Text)
	rec.SourceText = sel.Text

	entry := h.logger.WithFields(logrus.Fields{
		"chars":  rec.SourceChars,
		"preset": s.prompt.ID,
	})
	entry.Debug("Selection captured, translating")

	res, err := h.translator.SubmitDetailed(ctx, sel.Text, s.prompt, s.model)
	if err != nil {
		h.restore(ctx, sel, s)
		h.fail(ctx, rec, start, err)
		return err
	}
	rec.Cached = res.Cached
	rec.ResultChars = utf8.RuneCountInString(res.Text)
	rec.ResultText = res.Text

	if err := h.capture.WriteResult(ctx, res.Text); err != nil {
		h.restore(ctx, sel, s)
		h.fail(ctx, rec, start, err)
		return err
	}

	pasted := false
	if s.behavior.AutoPaste {
		if err := h.capture.Paste(ctx); err != nil {
			// The translation stays on the clipboard for a manual paste.
			entry.WithError(err).Warn("Auto-paste failed")
			h.notifier.Notify(notify.Notification{Level: notify.LevelWarning, MessageID: i18n.MsgPasteFailed})
		} else {
			pasted = true
			h.waitPasted(ctx, s.behavior.PasteDelay)
			h.restore(ctx, sel, s)
		}
	}

	rec.Status = models.StatusSuccess
	h.finish(ctx, rec, start)
	h.notifier.Notify(notify.Success(rec.ResultChars, res.Cached, pasted))

	entry.WithFields(logrus.Fields{
		"request_id": res.RequestID,
		"cached":     res.Cached,
		"pasted":     pasted,
		"duration":   time.Since(start),
	}).Info("Selection translated")
	return nil
}

// HandleCancel aborts the running translation and everything queued.
func (h *HotkeyHandler) HandleCancel() {
	n := h.translator.CancelAll()

	h.cancelMu.Lock()
	cancel := h.cancel
	h.cancelMu.Unlock()
	if cancel != nil {
		cancel()
		n++
	}

	if n > 0 {
		h.logger.WithField("requests", n).Info("Translation cancelled by user")
	}
}

func (h *HotkeyHandler) setCancel(cancel context.CancelFunc) {
	h.cancelMu.Lock()
	h.cancel = cancel
	h.cancelMu.Unlock()
}

// waitPasted gives the target application time to read the clipboard before
// it is restored.
func (h *HotkeyHandler) waitPasted(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// restore puts the pre-copy clipboard back when preserve_clipboard is set.
// It runs even after cancellation.
func (h *HotkeyHandler) restore(ctx context.Context, sel *capture.Selection, s settings) {
	if !s.behavior.PreserveClipboard || sel == nil {
		return
	}
	if err := h.capture.Restore(context.WithoutCancel(ctx), sel); err != nil {
		h.logger.WithError(err).Warn("Failed to restore clipboard")
	}
}

func (h *HotkeyHandler) fail(ctx context.Context, rec *models.HistoryRecord, start time.Time, err error) notify.Notification {
	note := h.notifier.NotifyError(err)

	switch {
	case errors.Is(err, ai.ErrCancelled), errors.Is(err, context.Canceled):
		rec.Status = models.StatusCancelled
	case note.Level == notify.LevelWarning:
		rec.Status = models.StatusRejected
	default:
		rec.Status = models.StatusFailed
	}
	rec.Error = err.Error()
	h.finish(ctx, rec, start)
	return note
}

func (h *HotkeyHandler) finish(ctx context.Context, rec *models.HistoryRecord, start time.Time) {
	duration := time.Since(start)
	rec.DurationMS = duration.Milliseconds()

	h.recordPress(rec.Status)
	if h.metrics != nil {
		h.metrics.RecordTranslation(rec.Status, duration)
	}

	if h.history == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historySaveTimeout)
	defer cancel()
	if err := h.history.Record(saveCtx, rec); err != nil {
		h.logger.WithError(err).Warn("Failed to record translation history")
	}
}

func (h *HotkeyHandler) recordPress(result string) {
	if h.metrics != nil {
		h.metrics.RecordHotkeyPress(result)
	}
}
