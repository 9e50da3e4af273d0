// Package app wires configuration, services and desktop integration into a
// running translator.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/handlers"
	"github.com/llm-translator-go/internal/hotkeys"
	"github.com/llm-translator-go/internal/i18n"
	"github.com/llm-translator-go/internal/middleware"
	"github.com/llm-translator-go/internal/models"
	"github.com/llm-translator-go/internal/notify"
	"github.com/llm-translator-go/internal/platform"
	"github.com/llm-translator-go/internal/services/ai"
	"github.com/llm-translator-go/internal/services/cache"
	"github.com/llm-translator-go/internal/services/capture"
	"github.com/llm-translator-go/internal/services/storage"
	"github.com/llm-translator-go/internal/services/translation"
	"github.com/sirupsen/logrus"
)

// Devices are the OS primitives the hotkey pipeline drives. Only the daemon
// builds real ones; everything else in the module links without them.
type Devices struct {
	Clipboard platform.Clipboard
	Keys      platform.KeySender
	Binder    hotkeys.Binder
}

// App holds the translation pipeline. The desktop side is handed to Run.
type App struct {
	loader *config.Loader
	logger *logrus.Logger

	mu  sync.RWMutex
	cfg *config.Config

	metrics    *middleware.Metrics
	limiter    middleware.RateLimiter
	translator *translation.Manager
	history    *storage.Manager
	localizer  *i18n.Localizer
	notifier   *notify.Notifier

	startOnce sync.Once
	done      chan struct{}
}

// New builds the services shared by every command.
func New(loader *config.Loader, cfg *config.Config, log *logrus.Logger) (*App, error) {
	metrics := middleware.NewMetrics()

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize i18n: %w", err)
	}

	history, err := storage.NewManager(cfg, metrics, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg, log)
	client := ai.NewClient(cfg, metrics, log)
	translator := translation.NewManager(
		cfg,
		client,
		cache.NewCache(cfg, log),
		middleware.NewTextValidator(cfg),
		limiter,
		metrics,
		log,
	)

	return &App{
		loader:     loader,
		logger:     log,
		cfg:        cfg,
		metrics:    metrics,
		limiter:    limiter,
		translator: translator,
		history:    history,
		localizer:  localizer,
		notifier:   notify.NewNotifier(cfg, localizer, log),
		done:       make(chan struct{}),
	}, nil
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) History() *storage.Manager { return a.history }

func (a *App) Localizer() *i18n.Localizer { return a.localizer }

// Start runs the translation workers until ctx is done. It is safe to call
// more than once.
func (a *App) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go func() {
			a.translator.Run(ctx)
			close(a.done)
		}()
	})
}

// Translate translates text with the given preset, or the active one when
// preset is empty, and records the outcome. Start must have been called.
func (a *App) Translate(ctx context.Context, text, preset string) (*translation.Result, error) {
	cfg := a.Config()
	id, p := cfg.ActivePrompt()
	if preset != "" {
		var ok bool
		if p, ok = cfg.Prompt.Presets[preset]; !ok {
			return nil, fmt.Errorf("unknown prompt preset %q", preset)
		}
		id = preset
	}

	start := time.Now()
	rec := &models.HistoryRecord{
		Source:      "cli",
		Model:       cfg.API.Model,
		Preset:      id,
		SourceChars: utf8.RuneCountInString(text),
		SourceText:  text,
	}

	res, err := a.translator.SubmitDetailed(ctx, text, ai.Prompt{ID: id, System: p.System}, "")
	rec.DurationMS = time.Since(start).Milliseconds()
	switch {
	case err == nil:
		rec.Status = models.StatusSuccess
		rec.Cached = res.Cached
		rec.ResultChars = utf8.RuneCountInString(res.Text)
		rec.ResultText = res.Text
	case errors.Is(err, translation.ErrCancelled):
		rec.Status = models.StatusCancelled
	case notify.Classify(err).Level == notify.LevelWarning:
		rec.Status = models.StatusRejected
	default:
		rec.Status = models.StatusFailed
	}
	if err != nil {
		rec.Error = err.Error()
	}
	a.metrics.RecordTranslation(rec.Status, time.Since(start))

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if recErr := a.history.Record(saveCtx, rec); recErr != nil {
		a.logger.WithError(recErr).Warn("Failed to record translation history")
	}
	return res, err
}

// Describe renders the user-facing message for err in the configured
// language.
func (a *App) Describe(err error) string {
	_, body := a.notifier.Render(notify.Classify(err))
	return body
}

// Stats is served on /stats.
func (a *App) Stats() interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := map[string]interface{}{
		"translation": a.translator.Stats(),
		"limiter":     a.limiter.Stats(),
	}
	if today, err := a.history.DailyStats(ctx, ""); err == nil {
		out["today"] = today
	}
	return out
}

// Alert shows err to the user as a notification.
func (a *App) Alert(err error) {
	a.notifier.NotifyError(err)
}

// Run registers the hotkeys on dev and serves them until ctx is done.
func (a *App) Run(ctx context.Context, dev Devices) error {
	cfg := a.Config()
	log := a.logger

	handler := handlers.NewHotkeyHandler(
		cfg,
		capture.NewCapturer(cfg, dev.Clipboard, dev.Keys, log),
		a.translator,
		a.history,
		a.notifier,
		a.metrics,
		log,
	)

	plat := hotkeys.CurrentPlatform()
	if cfg.Hotkey.Platform != "" {
		plat = hotkeys.PlatformFor(cfg.Hotkey.Platform)
	}
	validator := hotkeys.NewValidator(plat, hotkeys.ParseFallbacks(cfg.Hotkey.Alternatives, log), log)
	registrar := hotkeys.NewRegistrar(validator, dev.Binder, log)

	translateEvents, release, err := a.registerTranslate(registrar, cfg.Hotkey.Translate, plat)
	if err != nil {
		return err
	}
	defer release()

	cancelEvents, releaseCancel := a.registerCancel(registrar, cfg.Hotkey.Cancel)
	defer releaseCancel()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	a.Start(ctx)

	if cfg.Monitoring.Metrics.Enabled {
		a.serveMetrics(ctx, cfg.Monitoring.Metrics)
	}

	if a.loader != nil {
		a.loader.Watch(log, func(next *config.Config) {
			a.mu.Lock()
			a.cfg = next
			a.mu.Unlock()
			a.limiter.UpdateLimits(next.Limits.RequestsPerMinute, next.Limits.RequestsPerDay)
			handler.Apply(next)
		})
	}

	log.Info("Translator running")
	handler.Serve(ctx, translateEvents, cancelEvents)

	stop()
	<-a.done
	log.Info("Translator stopped")
	return nil
}

func (a *App) registerTranslate(registrar *hotkeys.Registrar, raw string, plat hotkeys.Platform) (<-chan struct{}, func(), error) {
	requested, err := hotkeys.ParseKeyCombo(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid translate hotkey: %w", err)
	}

	combo, binding, err := registrar.Register(requested)
	if err != nil {
		a.notifier.NotifyError(err)
		return nil, nil, err
	}

	if combo.Equal(requested) {
		a.notifier.Notify(notify.Info(i18n.MsgHotkeyRegistered, map[string]interface{}{"Combo": combo.Display(plat)}))
	} else {
		a.notifier.Notify(notify.Notification{
			Level:     notify.LevelWarning,
			MessageID: i18n.MsgHotkeyFallback,
			Data: map[string]interface{}{
				"Requested": requested.Display(plat),
				"Combo":     combo.Display(plat),
			},
			Action: i18n.MsgActionChangeHotkey,
		})
	}

	release := func() {
		if err := registrar.Release(combo, binding); err != nil {
			a.logger.WithError(err).Warn("Failed to release translate hotkey")
		}
	}
	return binding.Events(), release, nil
}

// registerCancel binds the optional cancel hotkey. A missing or conflicting
// cancel hotkey is logged and otherwise ignored.
func (a *App) registerCancel(registrar *hotkeys.Registrar, raw string) (<-chan struct{}, func()) {
	noop := func() {}
	if raw == "" {
		return nil, noop
	}

	combo, err := hotkeys.ParseKeyCombo(raw)
	if err != nil {
		a.logger.WithError(err).Warn("Invalid cancel hotkey, cancel shortcut disabled")
		return nil, noop
	}
	binding, err := registrar.RegisterExact(combo)
	if err != nil {
		a.logger.WithError(err).Warn("Cancel hotkey unavailable, cancel shortcut disabled")
		return nil, noop
	}

	return binding.Events(), func() {
		if err := registrar.Release(combo, binding); err != nil {
			a.logger.WithError(err).Warn("Failed to release cancel hotkey")
		}
	}
}

func (a *App) serveMetrics(ctx context.Context, cfg config.MetricsConfig) {
	server := middleware.NewMetricsServer(cfg.Port, cfg.Path, a.Stats)

	go func() {
		a.logger.WithFields(logrus.Fields{
			"port": cfg.Port,
			"path": cfg.Path,
		}).Info("Starting metrics server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("Metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
}

// Close releases storage.
func (a *App) Close() error {
	return a.history.Close()
}
