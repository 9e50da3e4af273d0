package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/platform"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	clipboardRetries    = 5
	clipboardRetryDelay = 100 * time.Millisecond
)

var (
	ErrNoSelection      = errors.New("no text selected")
	ErrEmptySelection   = errors.New("selection is empty")
	ErrOnlyWhitespace   = errors.New("selection contains only whitespace")
	ErrClipboardTimeout = errors.New("clipboard did not change in time")
)

// TimeoutError is returned when the clipboard did not change before the
// deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s (%s)", ErrClipboardTimeout, e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrClipboardTimeout }

// Selection is the captured text together with the clipboard content it
// replaced.
type Selection struct {
	Text        string
	Original    string
	HadOriginal bool
}

// Service captures the current selection through the clipboard.
type Service interface {
	GetSelection(ctx context.Context, timeout time.Duration) (*Selection, error)
	WriteResult(ctx context.Context, text string) error
	Paste(ctx context.Context) error
	Restore(ctx context.Context, sel *Selection) error
}

// Capturer simulates a copy in the focused application and waits for the
// clipboard to change.
type Capturer struct {
	clipboard       platform.Clipboard
	keys            platform.KeySender
	pollInterval    time.Duration
	clearBeforeCopy bool
	retryDelay      time.Duration
	logger          *logrus.Logger
}

// NewCapturer creates a capture service
func NewCapturer(cfg *config.Config, clipboard platform.Clipboard, keys platform.KeySender, logger *logrus.Logger) *Capturer {
	return &Capturer{
		clipboard:       clipboard,
		keys:            keys,
		pollInterval:    cfg.Limits.PollInterval,
		clearBeforeCopy: cfg.Behavior.ClearBeforeCopy,
		retryDelay:      clipboardRetryDelay,
		logger:          logger,
	}
}

// GetSelection copies the current selection and returns it. The clipboard
// content before the copy is kept in the returned Selection, also on
// failure, so the caller can restore it.
func (c *Capturer) GetSelection(ctx context.Context, timeout time.Duration) (*Selection, error) {
	sel := &Selection{}

	original, err := c.read(ctx)
	if err != nil {
		// Not fatal: the clipboard may hold non-text data.
		c.logger.WithError(err).Debug("Could not snapshot clipboard before copy")
	} else {
		sel.Original = original
		sel.HadOriginal = true
	}

	baseline := sel.Original
	if c.clearBeforeCopy {
		if err := c.write(ctx, ""); err != nil {
			c.logger.WithError(err).Debug("Could not clear clipboard before copy")
		} else {
			baseline = ""
		}
	}

	if err := c.keys.Copy(); err != nil {
		return sel, fmt.Errorf("%w: copy shortcut failed: %v", ErrNoSelection, err)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	sawEmpty := false
	for {
		current, err := c.clipboard.ReadText()
		if err == nil && current != baseline {
			if current == "" {
				sawEmpty = true
			} else if strings.TrimSpace(current) == "" {
				return sel, ErrOnlyWhitespace
			} else {
				sel.Text = current
				c.logger.WithFields(logrus.Fields{
					"chars":   len([]rune(current)),
					"elapsed": timeout - time.Until(deadline),
				}).Debug("Selection captured")
				return sel, nil
			}
		}

		if !time.Now().Before(deadline) {
			switch {
			case sawEmpty:
				return sel, ErrEmptySelection
			case c.clearBeforeCopy && baseline == "":
				// Nothing replaced the cleared clipboard.
				return sel, ErrNoSelection
			default:
				return sel, &TimeoutError{After: timeout}
			}
		}

		select {
		case <-ctx.Done():
			return sel, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WriteResult puts the translated text on the clipboard.
func (c *Capturer) WriteResult(ctx context.Context, text string) error {
	if err := c.write(ctx, text); err != nil {
		return fmt.Errorf("failed to write translation to clipboard: %w", err)
	}
	return nil
}

// Paste simulates the paste shortcut so the translation replaces the
// selection.
func (c *Capturer) Paste(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.keys.Paste(); err != nil {
		return fmt.Errorf("failed to paste translation: %w", err)
	}
	return nil
}

// Restore writes back the clipboard content captured before the copy. It
// does nothing when there was no text to restore.
func (c *Capturer) Restore(ctx context.Context, sel *Selection) error {
	if sel == nil || !sel.HadOriginal {
		return nil
	}
	if err := c.write(ctx, sel.Original); err != nil {
		return fmt.Errorf("failed to restore clipboard: %w", err)
	}
	return nil
}

func (c *Capturer) read(ctx context.Context) (string, error) {
	var text string
	err := c.withRetry(ctx, func() error {
		var err error
		text, err = c.clipboard.ReadText()
		return err
	})
	return text, err
}

func (c *Capturer) write(ctx context.Context, text string) error {
	return c.withRetry(ctx, func() error {
		return c.clipboard.WriteText(text)
	})
}

// withRetry retries op while the clipboard reports it is locked, up to
// clipboardRetries attempts spaced by retryDelay.
func (c *Capturer) withRetry(ctx context.Context, op func() error) error {
	limiter := rate.NewLimiter(rate.Every(c.retryDelay), 1)

	var err error
	for attempt := 1; attempt <= clipboardRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		err = op()
		if err == nil || !errors.Is(err, platform.ErrClipboardUnavailable) {
			return err
		}
		c.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Debug("Clipboard locked, retrying")
	}
	return err
}
