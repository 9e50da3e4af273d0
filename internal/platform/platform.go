// Package platform declares the OS primitives the translator depends on.
// Implementations live in platform/desktop; tests use in-memory fakes.
package platform

import "errors"

// ErrClipboardUnavailable is returned when the clipboard is locked by
// another process or cannot be reached. Callers may retry.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard reads and writes plain text.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// KeySender simulates the platform copy and paste shortcuts in the
// focused application.
type KeySender interface {
	Copy() error
	Paste() error
}
