package hotkeys

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Verdict is the result of validating a combo for registration.
type Verdict int

const (
	Valid Verdict = iota
	SystemConflict
	AlreadyRegistered
	TooSimple
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case SystemConflict:
		return "conflicts with a system shortcut"
	case AlreadyRegistered:
		return "already registered"
	case TooSimple:
		return "needs at least two keys"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// ConflictError is returned by Register for a combo that does not validate.
type ConflictError struct {
	Combo   KeyCombo
	Verdict Verdict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hotkey %s %s", e.Combo, e.Verdict)
}

// Validator checks combos against the platform's reserved table and the
// combos this process already holds.
type Validator struct {
	mu         sync.RWMutex
	platform   Platform
	reserved   map[string]struct{}
	registered map[string]KeyCombo
	fallbacks  []KeyCombo
	logger     *logrus.Logger
}

// NewValidator creates a validator for platform with an ordered list of
// fallback combos used by SuggestAlternative.
func NewValidator(platform Platform, fallbacks []KeyCombo, logger *logrus.Logger) *Validator {
	return &Validator{
		platform:   platform,
		reserved:   reservedTables[platform],
		registered: make(map[string]KeyCombo),
		fallbacks:  append([]KeyCombo(nil), fallbacks...),
		logger:     logger,
	}
}

// ParseFallbacks parses fallback combo strings, skipping invalid ones.
func ParseFallbacks(specs []string, logger *logrus.Logger) []KeyCombo {
	combos := make([]KeyCombo, 0, len(specs))
	for _, s := range specs {
		c, err := ParseKeyCombo(s)
		if err != nil {
			logger.WithError(err).WithField("hotkey", s).Warn("Ignoring invalid alternative hotkey")
			continue
		}
		combos = append(combos, c)
	}
	return combos
}

func (v *Validator) Platform() Platform { return v.platform }

// Validate checks, in order: reserved table, own registrations, key count.
func (v *Validator) Validate(combo KeyCombo) Verdict {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.validateLocked(combo)
}

func (v *Validator) validateLocked(combo KeyCombo) Verdict {
	key := combo.String()
	if _, ok := v.reserved[key]; ok {
		return SystemConflict
	}
	if _, ok := v.registered[key]; ok {
		return AlreadyRegistered
	}
	if combo.Len() < 2 {
		return TooSimple
	}
	return Valid
}

// Register records combo as held by this process.
func (v *Validator) Register(combo KeyCombo) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if verdict := v.validateLocked(combo); verdict != Valid {
		return &ConflictError{Combo: combo, Verdict: verdict}
	}
	v.registered[combo.String()] = combo
	v.logger.WithField("hotkey", combo.Display(v.platform)).Debug("Hotkey registered")
	return nil
}

func (v *Validator) Unregister(combo KeyCombo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.registered, combo.String())
}

// Clear forgets every registered combo.
func (v *Validator) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.registered = make(map[string]KeyCombo)
}

// Registered returns the combos currently held.
func (v *Validator) Registered() []KeyCombo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]KeyCombo, 0, len(v.registered))
	for _, c := range v.registered {
		out = append(out, c)
	}
	return out
}

// SuggestAlternative returns the first fallback that validates on its own
// and differs from combo and every excluded combo. It looks at each
// fallback once.
func (v *Validator) SuggestAlternative(combo KeyCombo, exclude ...KeyCombo) (KeyCombo, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	skip := make(map[string]struct{}, len(exclude)+1)
	skip[combo.String()] = struct{}{}
	for _, c := range exclude {
		skip[c.String()] = struct{}{}
	}

	for _, candidate := range v.fallbacks {
		if _, ok := skip[candidate.String()]; ok {
			continue
		}
		if v.validateLocked(candidate) == Valid {
			return candidate, true
		}
	}
	return KeyCombo{}, false
}
