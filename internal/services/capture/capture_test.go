package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/platform"
	"github.com/llm-translator-go/pkg/logger"
)

type fakeClipboard struct {
	mu         sync.Mutex
	text       string
	readFails  int
	writeFails int
	writes     int
}

func (f *fakeClipboard) ReadText() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readFails > 0 {
		f.readFails--
		return "", platform.ErrClipboardUnavailable
	}
	return f.text, nil
}

func (f *fakeClipboard) WriteText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeFails > 0 {
		f.writeFails--
		return platform.ErrClipboardUnavailable
	}
	f.text = text
	return nil
}

func (f *fakeClipboard) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// fakeKeys simulates the focused application reacting to copy and paste.
type fakeKeys struct {
	clipboard *fakeClipboard
	selection *string // nil: nothing selected
	delay     time.Duration
	copyErr   error
	pastes    int
}

func (k *fakeKeys) Copy() error {
	if k.copyErr != nil {
		return k.copyErr
	}
	if k.selection == nil {
		return nil
	}
	text := *k.selection
	go func() {
		time.Sleep(k.delay)
		k.clipboard.WriteText(text)
	}()
	return nil
}

func (k *fakeKeys) Paste() error {
	k.pastes++
	return nil
}

func strPtr(s string) *string { return &s }

func newTestCapturer(clip *fakeClipboard, keys *fakeKeys, clearBeforeCopy bool) *Capturer {
	cfg := &config.Config{
		Limits:   config.LimitsConfig{PollInterval: 5 * time.Millisecond},
		Behavior: config.BehaviorConfig{ClearBeforeCopy: clearBeforeCopy},
	}
	c := NewCapturer(cfg, clip, keys, logger.Discard())
	c.retryDelay = time.Millisecond
	return c
}

func TestGetSelectionCapturesChangedText(t *testing.T) {
	clip := &fakeClipboard{text: "previous"}
	keys := &fakeKeys{clipboard: clip, selection: strPtr("Привет, мир"), delay: 20 * time.Millisecond}
	c := newTestCapturer(clip, keys, false)

	sel, err := c.GetSelection(context.Background(), 500*time.Millisecond)
	if err != nil {
		t.Fatalf("GetSelection() error = %v", err)
	}
	if sel.Text != "Привет, мир" {
		t.Errorf("Text = %q", sel.Text)
	}
	if !sel.HadOriginal || sel.Original != "previous" {
		t.Errorf("original snapshot = %q, %v", sel.Original, sel.HadOriginal)
	}

	if err := c.Restore(context.Background(), sel); err != nil {
		t.Fatal(err)
	}
	if clip.Text() != "previous" {
		t.Errorf("clipboard after Restore = %q", clip.Text())
	}
}

func TestGetSelectionErrors(t *testing.T) {
	tests := []struct {
		name      string
		original  string
		selection *string
		copyErr   error
		clear     bool
		wantErr   error
	}{
		{"only whitespace", "previous", strPtr("   \n\t  "), nil, false, ErrOnlyWhitespace},
		{"clipboard emptied", "previous", strPtr(""), nil, false, ErrEmptySelection},
		{"nothing changed", "previous", nil, nil, false, ErrClipboardTimeout},
		{"same text as clipboard", "previous", strPtr("previous"), nil, false, ErrClipboardTimeout},
		{"copy shortcut failed", "previous", nil, errors.New("no input device"), false, ErrNoSelection},
		{"cleared and nothing copied", "previous", nil, nil, true, ErrNoSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &fakeClipboard{text: tt.original}
			keys := &fakeKeys{clipboard: clip, selection: tt.selection, copyErr: tt.copyErr}
			c := newTestCapturer(clip, keys, tt.clear)

			sel, err := c.GetSelection(context.Background(), 60*time.Millisecond)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetSelection() error = %v, want %v", err, tt.wantErr)
			}
			if sel == nil || sel.Original != tt.original {
				t.Errorf("failed capture must keep the original snapshot, got %+v", sel)
			}
		})
	}
}

func TestGetSelectionTimeoutCarriesDuration(t *testing.T) {
	clip := &fakeClipboard{text: "x"}
	c := newTestCapturer(clip, &fakeKeys{clipboard: clip}, false)

	start := time.Now()
	_, err := c.GetSelection(context.Background(), 40*time.Millisecond)
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if timeoutErr.After != 40*time.Millisecond {
		t.Errorf("After = %v", timeoutErr.After)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("poll loop overran the deadline: %v", elapsed)
	}
}

func TestGetSelectionClearBeforeCopyDetectsSameText(t *testing.T) {
	clip := &fakeClipboard{text: "same"}
	keys := &fakeKeys{clipboard: clip, selection: strPtr("same"), delay: 10 * time.Millisecond}
	c := newTestCapturer(clip, keys, true)

	sel, err := c.GetSelection(context.Background(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("GetSelection() error = %v", err)
	}
	if sel.Text != "same" || sel.Original != "same" {
		t.Errorf("selection = %+v", sel)
	}
}

func TestGetSelectionHonoursContext(t *testing.T) {
	clip := &fakeClipboard{text: "x"}
	c := newTestCapturer(clip, &fakeKeys{clipboard: clip}, false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := c.GetSelection(ctx, 5*time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClipboardLockRetries(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		clip := &fakeClipboard{text: "previous", readFails: 2}
		keys := &fakeKeys{clipboard: clip, selection: strPtr("hello"), delay: 5 * time.Millisecond}
		c := newTestCapturer(clip, keys, false)

		sel, err := c.GetSelection(context.Background(), 200*time.Millisecond)
		if err != nil {
			t.Fatalf("GetSelection() error = %v", err)
		}
		if !sel.HadOriginal || sel.Original != "previous" {
			t.Errorf("snapshot lost after lock retries: %+v", sel)
		}
	})

	t.Run("gives up after five attempts", func(t *testing.T) {
		clip := &fakeClipboard{writeFails: 10}
		c := newTestCapturer(clip, &fakeKeys{clipboard: clip}, false)

		err := c.WriteResult(context.Background(), "translated")
		if !errors.Is(err, platform.ErrClipboardUnavailable) {
			t.Fatalf("error = %v", err)
		}
		if clip.writes != clipboardRetries {
			t.Errorf("writes = %d, want %d", clip.writes, clipboardRetries)
		}
	})
}

func TestRestoreWithoutOriginal(t *testing.T) {
	clip := &fakeClipboard{text: "translated"}
	c := newTestCapturer(clip, &fakeKeys{clipboard: clip}, false)

	if err := c.Restore(context.Background(), &Selection{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if clip.Text() != "translated" {
		t.Errorf("Restore without snapshot changed clipboard to %q", clip.Text())
	}
}
