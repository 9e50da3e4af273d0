package hotkeys

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// MaxKeys is the largest number of keys a combination may hold.
const MaxKeys = 4

// Canonical modifier names. Meta is the Windows key, Command on macOS and
// Super on Linux.
const (
	Ctrl  = "Ctrl"
	Alt   = "Alt"
	Shift = "Shift"
	Meta  = "Meta"
)

var modifierOrder = map[string]int{Ctrl: 0, Alt: 1, Shift: 2, Meta: 3}

var keyAliases = map[string]string{
	"ctrl":      Ctrl,
	"control":   Ctrl,
	"ctl":       Ctrl,
	"alt":       Alt,
	"option":    Alt,
	"opt":       Alt,
	"shift":     Shift,
	"meta":      Meta,
	"win":       Meta,
	"windows":   Meta,
	"cmd":       Meta,
	"command":   Meta,
	"super":     Meta,
	"esc":       "Esc",
	"escape":    "Esc",
	"enter":     "Enter",
	"return":    "Enter",
	"space":     "Space",
	"tab":       "Tab",
	"delete":    "Delete",
	"del":       "Delete",
	"backspace": "Backspace",
	"insert":    "Insert",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
}

// Platform selects the reserved shortcut table.
type Platform string

const (
	Windows Platform = "windows"
	MacOS   Platform = "macos"
	Linux   Platform = "linux"
)

// CurrentPlatform maps runtime.GOOS to a Platform. Unknown systems use the
// Linux table.
func CurrentPlatform() Platform {
	return PlatformFor(runtime.GOOS)
}

// PlatformFor parses a GOOS value or a Platform name.
func PlatformFor(name string) Platform {
	switch strings.ToLower(name) {
	case "windows":
		return Windows
	case "darwin", "macos", "mac":
		return MacOS
	default:
		return Linux
	}
}

// KeyCombo is an unordered set of one to four keys. Two combos are equal
// when they hold the same keys; String gives the canonical form.
type KeyCombo struct {
	keys []string
}

// ParseKeyCombo parses strings such as "Ctrl+Shift+T" or "cmd + q".
func ParseKeyCombo(s string) (KeyCombo, error) {
	if strings.TrimSpace(s) == "" {
		return KeyCombo{}, fmt.Errorf("empty key combination")
	}
	return NewKeyCombo(strings.Split(s, "+")...)
}

// MustParseKeyCombo is ParseKeyCombo for static tables.
func MustParseKeyCombo(s string) KeyCombo {
	c, err := ParseKeyCombo(s)
	if err != nil {
		panic(err)
	}
	return c
}

// NewKeyCombo builds a combo from key names. Duplicate keys collapse.
func NewKeyCombo(names ...string) (KeyCombo, error) {
	seen := make(map[string]struct{}, len(names))
	keys := make([]string, 0, len(names))
	for _, name := range names {
		key, err := canonicalKey(name)
		if err != nil {
			return KeyCombo{}, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return KeyCombo{}, fmt.Errorf("empty key combination")
	}
	if len(keys) > MaxKeys {
		return KeyCombo{}, fmt.Errorf("key combination has %d keys, at most %d allowed", len(keys), MaxKeys)
	}

	sort.Slice(keys, func(i, j int) bool {
		oi, iMod := modifierOrder[keys[i]]
		oj, jMod := modifierOrder[keys[j]]
		switch {
		case iMod && jMod:
			return oi < oj
		case iMod != jMod:
			return iMod
		default:
			return keys[i] < keys[j]
		}
	})
	return KeyCombo{keys: keys}, nil
}

func canonicalKey(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty key name")
	}
	lower := strings.ToLower(name)
	if alias, ok := keyAliases[lower]; ok {
		return alias, nil
	}

	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return strings.ToUpper(name), nil
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return name, nil
		}
	}

	var n int
	if _, err := fmt.Sscanf(lower, "f%d", &n); err == nil && n >= 1 && n <= 24 && lower == fmt.Sprintf("f%d", n) {
		return fmt.Sprintf("F%d", n), nil
	}

	return "", fmt.Errorf("unknown key %q", name)
}

// Keys returns the canonical keys, modifiers first.
func (c KeyCombo) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c KeyCombo) Len() int { return len(c.keys) }

func (c KeyCombo) IsZero() bool { return len(c.keys) == 0 }

// Equal reports set equality.
func (c KeyCombo) Equal(other KeyCombo) bool {
	return c.String() == other.String()
}

// Has reports whether the combo contains key (canonical name).
func (c KeyCombo) Has(key string) bool {
	for _, k := range c.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Modifiers returns the modifier keys of the combo.
func (c KeyCombo) Modifiers() []string {
	var mods []string
	for _, k := range c.keys {
		if _, ok := modifierOrder[k]; ok {
			mods = append(mods, k)
		}
	}
	return mods
}

// Primary returns the non-modifier keys.
func (c KeyCombo) Primary() []string {
	var keys []string
	for _, k := range c.keys {
		if _, ok := modifierOrder[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c KeyCombo) String() string {
	return strings.Join(c.keys, "+")
}

// Display renders the combo with the platform's name for Meta.
func (c KeyCombo) Display(p Platform) string {
	meta := "Super"
	switch p {
	case Windows:
		meta = "Win"
	case MacOS:
		meta = "Cmd"
	}
	keys := make([]string, len(c.keys))
	for i, k := range c.keys {
		if k == Meta {
			k = meta
		}
		keys[i] = k
	}
	return strings.Join(keys, "+")
}
