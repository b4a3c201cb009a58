package session

import (
	"errors"
	"fmt"
	"testing"
)

// fakeValidator rejects every model id contained in bad.
type fakeValidator struct {
	bad map[string]bool
}

func (v *fakeValidator) ValidateModel(modelID string) error {
	if v.bad[modelID] {
		return fmt.Errorf("model %q does not exist", modelID)
	}
	return nil
}

func newTestStore() *Store {
	return NewStore(&fakeValidator{bad: map[string]bool{"bogus-model": true}})
}

func TestGetOrCreate(t *testing.T) {
	st := newTestStore()

	s := st.GetOrCreate(1, "gemini-2.0-flash")
	if s.ModelName != "gemini-2.0-flash" {
		t.Errorf("ModelName = %q", s.ModelName)
	}
	if s.Len() != 0 {
		t.Errorf("new session has %d turns, want 0", s.Len())
	}

	// Second call returns the same session unchanged, ignoring the default.
	s.Append(Turn{Role: RoleUser, Text: "hi"}, Turn{Role: RoleModel, Text: "hello"})
	again := st.GetOrCreate(1, "some-other-model")
	if again != s {
		t.Fatal("GetOrCreate returned a different session for the same user")
	}
	if again.ModelName != "gemini-2.0-flash" || again.Len() != 2 {
		t.Errorf("existing session was modified: model=%q turns=%d", again.ModelName, again.Len())
	}
}

func TestGetOrCreate_UsersAreIndependent(t *testing.T) {
	st := newTestStore()
	a := st.GetOrCreate(1, "m")
	b := st.GetOrCreate(2, "m")
	a.Append(Turn{Role: RoleUser, Text: "x"}, Turn{Role: RoleModel, Text: "y"})
	if b.Len() != 0 {
		t.Error("appending to one user's session affected another")
	}
}

func TestSwitchModel(t *testing.T) {
	st := newTestStore()
	s := st.GetOrCreate(1, "gemini-2.0-flash")
	s.Append(Turn{Role: RoleUser, Text: "hi"}, Turn{Role: RoleModel, Text: "hello"})

	switched, err := st.SwitchModel(1, "gemini-1.5-pro")
	if err != nil {
		t.Fatalf("SwitchModel: %v", err)
	}
	if switched.ModelName != "gemini-1.5-pro" {
		t.Errorf("ModelName = %q", switched.ModelName)
	}
	// Switching always discards prior context.
	if switched.Len() != 0 {
		t.Errorf("switched session has %d turns, want 0", switched.Len())
	}
	if switched.ID == s.ID {
		t.Error("switch did not mint a new session id")
	}
}

func TestSwitchModel_InvalidLeavesSessionUntouched(t *testing.T) {
	st := newTestStore()
	s := st.GetOrCreate(1, "gemini-2.0-flash")
	s.Append(Turn{Role: RoleUser, Text: "hi"}, Turn{Role: RoleModel, Text: "hello"})

	_, err := st.SwitchModel(1, "bogus-model")
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}

	cur := st.GetOrCreate(1, "ignored")
	if cur != s {
		t.Fatal("failed switch replaced the session")
	}
	if cur.ModelName != "gemini-2.0-flash" || cur.Len() != 2 {
		t.Errorf("failed switch mutated session: model=%q turns=%d", cur.ModelName, cur.Len())
	}
}

func TestSwitchModel_ErrorCarriesCause(t *testing.T) {
	st := newTestStore()
	_, err := st.SwitchModel(1, "bogus-model")
	if err == nil || errors.Unwrap(err) == nil {
		t.Fatalf("err = %v, want a wrapped cause", err)
	}
}

func TestSwitchModel_NilValidatorAcceptsAnything(t *testing.T) {
	st := NewStore(nil)
	if _, err := st.SwitchModel(1, "whatever"); err != nil {
		t.Fatalf("SwitchModel with nil validator: %v", err)
	}
}

func TestReset(t *testing.T) {
	st := newTestStore()
	s := st.GetOrCreate(1, "gemini-1.5-pro")
	s.Append(Turn{Role: RoleUser, Text: "hi"}, Turn{Role: RoleModel, Text: "hello"})

	r := st.Reset(1, "default-model")
	if r.ModelName != "gemini-1.5-pro" {
		t.Errorf("Reset changed model to %q", r.ModelName)
	}
	if r.Len() != 0 {
		t.Errorf("reset session has %d turns, want 0", r.Len())
	}
}

func TestReset_UnknownUserUsesDefault(t *testing.T) {
	st := newTestStore()
	r := st.Reset(42, "gemini-2.0-flash")
	if r.ModelName != "gemini-2.0-flash" {
		t.Errorf("ModelName = %q", r.ModelName)
	}
}

func TestModelName(t *testing.T) {
	st := newTestStore()
	if got := st.ModelName(1, "fallback"); got != "fallback" {
		t.Errorf("ModelName for unknown user = %q", got)
	}
	st.GetOrCreate(1, "gemini-2.0-flash")
	if got := st.ModelName(1, "fallback"); got != "gemini-2.0-flash" {
		t.Errorf("ModelName = %q", got)
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	st := newTestStore()
	s := st.GetOrCreate(1, "m")
	s.Append(Turn{Role: RoleUser, Text: "a"}, Turn{Role: RoleModel, Text: "b"})

	h := s.History()
	h[0].Text = "mutated"
	if s.History()[0].Text != "a" {
		t.Error("History() exposed internal state")
	}
}
