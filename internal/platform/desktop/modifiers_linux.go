package desktop

import (
	"github.com/llm-translator-go/internal/hotkeys"
	"golang.design/x/hotkey"
)

// X11 maps Alt to Mod1 and Super to Mod4 on most keyboard layouts.
var modifierCodes = map[string]hotkey.Modifier{
	hotkeys.Ctrl:  hotkey.ModCtrl,
	hotkeys.Alt:   hotkey.Mod1,
	hotkeys.Shift: hotkey.ModShift,
	hotkeys.Meta:  hotkey.Mod4,
}
