package desktop

import (
	"github.com/llm-translator-go/internal/hotkeys"
	"golang.design/x/hotkey"
)

var modifierCodes = map[string]hotkey.Modifier{
	hotkeys.Ctrl:  hotkey.ModCtrl,
	hotkeys.Alt:   hotkey.ModAlt,
	hotkeys.Shift: hotkey.ModShift,
	hotkeys.Meta:  hotkey.ModWin,
}
