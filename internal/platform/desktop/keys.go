package desktop

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// KeySender presses the platform copy and paste shortcuts.
type KeySender struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

// NewKeySender creates the virtual keyboard. On Linux the uinput device
// needs a moment before events are delivered.
func NewKeySender() (*KeySender, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
	return &KeySender{kb: kb}, nil
}

func (k *KeySender) Copy() error {
	return k.press(keybd_event.VK_C)
}

func (k *KeySender) Paste() error {
	return k.press(keybd_event.VK_V)
}

func (k *KeySender) press(key int) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.kb.Clear()
	withShortcutModifier(&k.kb)
	k.kb.SetKeys(key)
	if err := k.kb.Launching(); err != nil {
		return fmt.Errorf("failed to send key event: %w", err)
	}
	return nil
}
