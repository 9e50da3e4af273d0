package hotkeys

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Binding is an active OS-level hotkey registration.
type Binding interface {
	Events() <-chan struct{}
	Unbind() error
}

// Binder registers combos with the operating system.
type Binder interface {
	Bind(combo KeyCombo) (Binding, error)
}

// RegistrationError is returned when neither the requested combo nor any
// fallback could be bound. Suggestion is the best combo to offer the user,
// zero when none validates.
type RegistrationError struct {
	Requested  KeyCombo
	Verdict    Verdict
	Suggestion KeyCombo
	Err        error
}

func (e *RegistrationError) Error() string {
	msg := fmt.Sprintf("cannot register hotkey %s", e.Requested)
	if e.Verdict != Valid {
		msg += ": " + e.Verdict.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if !e.Suggestion.IsZero() {
		msg += fmt.Sprintf(" (try %s)", e.Suggestion)
	}
	return msg
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Registrar binds hotkeys through a Binder, falling back to alternative
// combos when the preferred one conflicts or the OS refuses it.
type Registrar struct {
	validator *Validator
	binder    Binder
	logger    *logrus.Logger
}

func NewRegistrar(validator *Validator, binder Binder, logger *logrus.Logger) *Registrar {
	return &Registrar{validator: validator, binder: binder, logger: logger}
}

// Register binds preferred, or the first fallback that validates and binds.
// Each candidate is tried at most once. It returns the combo actually bound.
func (r *Registrar) Register(preferred KeyCombo) (KeyCombo, Binding, error) {
	var (
		tried     []KeyCombo
		firstErr  error
		firstVerd = Valid
	)

	candidate := preferred
	for {
		verdict := r.validator.Validate(candidate)
		if verdict == Valid {
			binding, err := r.binder.Bind(candidate)
			if err == nil {
				if err := r.validator.Register(candidate); err != nil {
					binding.Unbind()
					return KeyCombo{}, nil, err
				}
				if !candidate.Equal(preferred) {
					r.logger.WithFields(logrus.Fields{
						"requested": preferred.Display(r.validator.Platform()),
						"bound":     candidate.Display(r.validator.Platform()),
					}).Warn("Requested hotkey unavailable, using alternative")
				}
				return candidate, binding, nil
			}
			r.logger.WithError(err).WithField("hotkey", candidate.String()).Warn("OS refused hotkey registration")
			if firstErr == nil && candidate.Equal(preferred) {
				firstErr = err
			}
		} else {
			r.logger.WithFields(logrus.Fields{
				"hotkey":  candidate.String(),
				"verdict": verdict.String(),
			}).Warn("Hotkey rejected")
			if candidate.Equal(preferred) {
				firstVerd = verdict
			}
		}

		tried = append(tried, candidate)
		next, ok := r.validator.SuggestAlternative(preferred, tried...)
		if !ok {
			break
		}
		candidate = next
	}

	suggestion, _ := r.validator.SuggestAlternative(preferred)
	return KeyCombo{}, nil, &RegistrationError{
		Requested:  preferred,
		Verdict:    firstVerd,
		Suggestion: suggestion,
		Err:        firstErr,
	}
}

// RegisterExact binds combo without trying fallbacks.
func (r *Registrar) RegisterExact(combo KeyCombo) (Binding, error) {
	if verdict := r.validator.Validate(combo); verdict != Valid {
		return nil, &ConflictError{Combo: combo, Verdict: verdict}
	}
	binding, err := r.binder.Bind(combo)
	if err != nil {
		return nil, err
	}
	if err := r.validator.Register(combo); err != nil {
		binding.Unbind()
		return nil, err
	}
	return binding, nil
}

// Release unbinds a binding obtained from Register.
func (r *Registrar) Release(combo KeyCombo, binding Binding) error {
	r.validator.Unregister(combo)
	if binding == nil {
		return nil
	}
	if err := binding.Unbind(); err != nil {
		return fmt.Errorf("failed to unbind hotkey %s: %w", combo, err)
	}
	return nil
}

// IsRegistrationError reports whether err came from a failed Register.
func IsRegistrationError(err error) bool {
	var regErr *RegistrationError
	return errors.As(err, &regErr)
}
