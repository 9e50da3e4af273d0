package desktop

import (
	"fmt"
	"sync"

	"github.com/llm-translator-go/internal/hotkeys"
	"github.com/sirupsen/logrus"
	"golang.design/x/hotkey"
)

var keyCodes = map[string]hotkey.Key{
	"A": hotkey.KeyA,
	"B": hotkey.KeyB,
	"C": hotkey.KeyC,
	"D": hotkey.KeyD,
	"E": hotkey.KeyE,
	"F": hotkey.KeyF,
	"G": hotkey.KeyG,
	"H": hotkey.KeyH,
	"I": hotkey.KeyI,
	"J": hotkey.KeyJ,
	"K": hotkey.KeyK,
	"L": hotkey.KeyL,
	"M": hotkey.KeyM,
	"N": hotkey.KeyN,
	"O": hotkey.KeyO,
	"P": hotkey.KeyP,
	"Q": hotkey.KeyQ,
	"R": hotkey.KeyR,
	"S": hotkey.KeyS,
	"T": hotkey.KeyT,
	"U": hotkey.KeyU,
	"V": hotkey.KeyV,
	"W": hotkey.KeyW,
	"X": hotkey.KeyX,
	"Y": hotkey.KeyY,
	"Z": hotkey.KeyZ,
	"0": hotkey.Key0,
	"1": hotkey.Key1,
	"2": hotkey.Key2,
	"3": hotkey.Key3,
	"4": hotkey.Key4,
	"5": hotkey.Key5,
	"6": hotkey.Key6,
	"7": hotkey.Key7,
	"8": hotkey.Key8,
	"9": hotkey.Key9,

	"F1":  hotkey.KeyF1,
	"F2":  hotkey.KeyF2,
	"F3":  hotkey.KeyF3,
	"F4":  hotkey.KeyF4,
	"F5":  hotkey.KeyF5,
	"F6":  hotkey.KeyF6,
	"F7":  hotkey.KeyF7,
	"F8":  hotkey.KeyF8,
	"F9":  hotkey.KeyF9,
	"F10": hotkey.KeyF10,
	"F11": hotkey.KeyF11,
	"F12": hotkey.KeyF12,

	"Space":  hotkey.KeySpace,
	"Enter":  hotkey.KeyReturn,
	"Esc":    hotkey.KeyEscape,
	"Tab":    hotkey.KeyTab,
	"Delete": hotkey.KeyDelete,
	"Up":     hotkey.KeyUp,
	"Down":   hotkey.KeyDown,
	"Left":   hotkey.KeyLeft,
	"Right":  hotkey.KeyRight,
}

// HotkeyBinder registers global hotkeys with the operating system.
type HotkeyBinder struct {
	logger *logrus.Logger
}

func NewHotkeyBinder(logger *logrus.Logger) *HotkeyBinder {
	return &HotkeyBinder{logger: logger}
}

// Bind registers combo. It fails when a key has no OS key code or another
// application already owns the combination.
func (b *HotkeyBinder) Bind(combo hotkeys.KeyCombo) (hotkeys.Binding, error) {
	mods, key, err := toNative(combo)
	if err != nil {
		return nil, err
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("failed to register hotkey %s: %w", combo, err)
	}

	bd := &binding{
		hk:     hk,
		events: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go bd.forward(hk.Keydown())

	b.logger.WithField("hotkey", combo.String()).Debug("Hotkey bound")
	return bd, nil
}

func toNative(combo hotkeys.KeyCombo) ([]hotkey.Modifier, hotkey.Key, error) {
	primary := combo.Primary()
	if len(primary) != 1 {
		return nil, 0, fmt.Errorf("hotkey %s must have exactly one non-modifier key", combo)
	}
	key, ok := keyCodes[primary[0]]
	if !ok {
		return nil, 0, fmt.Errorf("key %s cannot be used in a global hotkey", primary[0])
	}

	var mods []hotkey.Modifier
	for _, name := range combo.Modifiers() {
		mod, ok := modifierCodes[name]
		if !ok {
			return nil, 0, fmt.Errorf("modifier %s is not supported on this platform", name)
		}
		mods = append(mods, mod)
	}
	return mods, key, nil
}

type binding struct {
	hk     *hotkey.Hotkey
	events chan struct{}
	done   chan struct{}
	once   sync.Once
}

// forward coalesces key presses: a press arriving while the previous one is
// unread is dropped.
func (b *binding) forward(keydown <-chan hotkey.Event) {
	for {
		select {
		case <-b.done:
			return
		case <-keydown:
			select {
			case b.events <- struct{}{}:
			default:
			}
		}
	}
}

func (b *binding) Events() <-chan struct{} { return b.events }

func (b *binding) Unbind() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.hk.Unregister()
	})
	return err
}
