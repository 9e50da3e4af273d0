package hotkeys

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/llm-translator-go/pkg/logger"
)

func TestParseKeyCombo(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Ctrl+Shift+T", "Ctrl+Shift+T", false},
		{"shift + control + t", "Ctrl+Shift+T", false},
		{"T+Shift+Ctrl", "Ctrl+Shift+T", false},
		{"cmd+q", "Meta+Q", false},
		{"Win+L", "Meta+L", false},
		{"Alt+F4", "Alt+F4", false},
		{"Ctrl+Alt+Delete", "Ctrl+Alt+Delete", false},
		{"ctrl+escape", "Ctrl+Esc", false},
		{"Ctrl+Ctrl+T", "Ctrl+T", false},
		{"A", "A", false},
		{"", "", true},
		{"Ctrl++T", "", true},
		{"Ctrl+Hyper+T", "", true},
		{"Ctrl+Alt+Shift+Meta+T", "", true},
		{"F25", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeyCombo(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKeyCombo(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("ParseKeyCombo(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyComboEqualityIsSetEquality(t *testing.T) {
	a := MustParseKeyCombo("Ctrl+Shift+T")
	b := MustParseKeyCombo("T+Shift+Ctrl")
	if !a.Equal(b) {
		t.Error("same keys in different order should be equal")
	}
	if a.Equal(MustParseKeyCombo("Ctrl+T")) {
		t.Error("different key sets compared equal")
	}
	if diff := cmp.Diff([]string{"Ctrl", "Shift"}, a.Modifiers()); diff != "" {
		t.Errorf("Modifiers() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"T"}, a.Primary()); diff != "" {
		t.Errorf("Primary() mismatch (-want +got):\n%s", diff)
	}
	if got := MustParseKeyCombo("Cmd+Q").Display(MacOS); got != "Cmd+Q" {
		t.Errorf("Display(MacOS) = %q", got)
	}
}

func TestValidatorValidate(t *testing.T) {
	tests := []struct {
		platform Platform
		combo    string
		want     Verdict
	}{
		{Windows, "Alt+Tab", SystemConflict},
		{Windows, "Ctrl+Shift+T", Valid},
		{Windows, "Win+L", SystemConflict},
		{Windows, "Ctrl+C", SystemConflict},
		{MacOS, "Cmd+Q", SystemConflict},
		{MacOS, "Cmd+Shift+4", SystemConflict},
		{MacOS, "Alt+Tab", Valid},
		{Linux, "Ctrl+Alt+T", SystemConflict},
		{Linux, "Alt+F2", SystemConflict},
		{Windows, "Ctrl+Alt+T", Valid},
		{Windows, "T", TooSimple},
		{Windows, "F9", TooSimple},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform)+"/"+tt.combo, func(t *testing.T) {
			v := NewValidator(tt.platform, nil, logger.Discard())
			if got := v.Validate(MustParseKeyCombo(tt.combo)); got != tt.want {
				t.Errorf("Validate(%s) = %v, want %v", tt.combo, got, tt.want)
			}
		})
	}
}

func TestValidatorReservedCheckedBeforeRegistered(t *testing.T) {
	v := NewValidator(Windows, nil, logger.Discard())
	combo := MustParseKeyCombo("Ctrl+Shift+T")

	if err := v.Register(combo); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got := v.Validate(combo); got != AlreadyRegistered {
		t.Errorf("Validate(registered) = %v", got)
	}

	err := v.Register(combo)
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Verdict != AlreadyRegistered {
		t.Errorf("second Register() error = %v", err)
	}

	v.Unregister(combo)
	if got := v.Validate(combo); got != Valid {
		t.Errorf("Validate after Unregister = %v", got)
	}

	v.Register(combo)
	v.Clear()
	if n := len(v.Registered()); n != 0 {
		t.Errorf("Registered() after Clear has %d combos", n)
	}
}

func TestSuggestAlternative(t *testing.T) {
	fallbacks := []KeyCombo{
		MustParseKeyCombo("Ctrl+Alt+T"),
		MustParseKeyCombo("Alt+Shift+T"),
		MustParseKeyCombo("Ctrl+Shift+L"),
	}

	t.Run("skips reserved fallbacks", func(t *testing.T) {
		v := NewValidator(Linux, fallbacks, logger.Discard())
		got, ok := v.SuggestAlternative(MustParseKeyCombo("Alt+Tab"))
		if !ok || got.String() != "Alt+Shift+T" {
			t.Errorf("SuggestAlternative() = %v, %v", got, ok)
		}
	})

	t.Run("skips registered and excluded", func(t *testing.T) {
		v := NewValidator(Windows, fallbacks, logger.Discard())
		v.Register(MustParseKeyCombo("Ctrl+Alt+T"))
		got, ok := v.SuggestAlternative(MustParseKeyCombo("Ctrl+Shift+T"), MustParseKeyCombo("Alt+Shift+T"))
		if !ok || got.String() != "Ctrl+Shift+L" {
			t.Errorf("SuggestAlternative() = %v, %v", got, ok)
		}
	})

	t.Run("returns none when exhausted", func(t *testing.T) {
		v := NewValidator(Windows, fallbacks, logger.Discard())
		for _, c := range fallbacks {
			v.Register(c)
		}
		if got, ok := v.SuggestAlternative(MustParseKeyCombo("Ctrl+Shift+T")); ok {
			t.Errorf("SuggestAlternative() = %v, want none", got)
		}
	})

	t.Run("never suggests the rejected combo itself", func(t *testing.T) {
		v := NewValidator(Windows, fallbacks, logger.Discard())
		got, ok := v.SuggestAlternative(MustParseKeyCombo("Ctrl+Alt+T"))
		if !ok || got.String() != "Alt+Shift+T" {
			t.Errorf("SuggestAlternative() = %v, %v", got, ok)
		}
	})
}

type fakeBinding struct {
	events chan struct{}
	closed bool
}

func (b *fakeBinding) Events() <-chan struct{} { return b.events }
func (b *fakeBinding) Unbind() error           { b.closed = true; return nil }

type fakeBinder struct {
	refuse map[string]bool
	calls  []string
}

func (f *fakeBinder) Bind(c KeyCombo) (Binding, error) {
	f.calls = append(f.calls, c.String())
	if f.refuse[c.String()] {
		return nil, errors.New("hotkey already grabbed by another application")
	}
	return &fakeBinding{events: make(chan struct{})}, nil
}

func TestRegistrarFallsBackOnOSRefusal(t *testing.T) {
	fallbacks := ParseFallbacks([]string{"Ctrl+Alt+T", "Alt+Shift+T", "bogus+"}, logger.Discard())
	v := NewValidator(Windows, fallbacks, logger.Discard())
	binder := &fakeBinder{refuse: map[string]bool{"Ctrl+Shift+T": true, "Ctrl+Alt+T": true}}
	r := NewRegistrar(v, binder, logger.Discard())

	bound, binding, err := r.Register(MustParseKeyCombo("Ctrl+Shift+T"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if bound.String() != "Alt+Shift+T" {
		t.Errorf("bound = %s", bound)
	}
	if diff := cmp.Diff([]string{"Ctrl+Shift+T", "Ctrl+Alt+T", "Alt+Shift+T"}, binder.calls); diff != "" {
		t.Errorf("bind attempts mismatch (-want +got):\n%s", diff)
	}
	if v.Validate(bound) != AlreadyRegistered {
		t.Error("bound combo not recorded in validator")
	}

	if err := r.Release(bound, binding); err != nil {
		t.Fatal(err)
	}
	if !binding.(*fakeBinding).closed {
		t.Error("Release did not unbind")
	}
}

func TestRegistrarReportsExhaustion(t *testing.T) {
	fallbacks := ParseFallbacks([]string{"Ctrl+Alt+T"}, logger.Discard())
	v := NewValidator(Windows, fallbacks, logger.Discard())
	binder := &fakeBinder{refuse: map[string]bool{"Ctrl+Alt+T": true}}
	r := NewRegistrar(v, binder, logger.Discard())

	_, _, err := r.Register(MustParseKeyCombo("Alt+Tab"))
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("Register() error = %v, want RegistrationError", err)
	}
	if regErr.Verdict != SystemConflict {
		t.Errorf("verdict = %v", regErr.Verdict)
	}
	if len(binder.calls) != 1 {
		t.Errorf("reserved combo must never reach the OS, calls = %v", binder.calls)
	}
	if !IsRegistrationError(err) {
		t.Error("IsRegistrationError() = false")
	}
}

func TestRegisterExactDoesNotFallBack(t *testing.T) {
	fallbacks := ParseFallbacks([]string{"Ctrl+Alt+Q"}, logger.Discard())
	v := NewValidator(Linux, fallbacks, logger.Discard())
	binder := &fakeBinder{}
	r := NewRegistrar(v, binder, logger.Discard())

	if _, err := r.RegisterExact(MustParseKeyCombo("Ctrl+Shift+Q")); err != nil {
		t.Fatalf("RegisterExact() error = %v", err)
	}
	_, err := r.RegisterExact(MustParseKeyCombo("Ctrl+Shift+Q"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Verdict != AlreadyRegistered {
		t.Fatalf("second RegisterExact() error = %v, want AlreadyRegistered", err)
	}
	if len(binder.calls) != 1 {
		t.Errorf("bind attempts = %v, want one", binder.calls)
	}
}
