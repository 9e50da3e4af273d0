package desktop

import "github.com/micmonay/keybd_event"

func withShortcutModifier(kb *keybd_event.KeyBonding) {
	kb.HasSuper(true)
}
