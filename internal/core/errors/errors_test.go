package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		if !IsCode(err, CodeInternal) {
			t.Error("expected IsCode to return true for wrapped CodeInternal")
		}
	})
}

func TestCodeOf(t *testing.T) {
	wrapped := AddContext(Wrap(errors.New("bad token"), CodeParseFailed, "parse failed"), CtxPath, "index.ts")
	if got := CodeOf(wrapped); got != CodeParseFailed {
		t.Fatalf("expected PARSE_FAILED, got %s", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("expected INTERNAL_ERROR for foreign error, got %s", got)
	}
	if !IsCode(wrapped, CodeParseFailed) {
		t.Fatal("expected context wrapping to keep the original code")
	}
}

func TestAddContext(t *testing.T) {
	err := AddContext(AddContext(New(CodeRuleFailed, "rule panicked"), CtxRule, "entry-point"), CtxPath, "hello/index.ts")
	expected := "[RULE_FAILED] rule panicked path=hello/index.ts rule=entry-point"
	if err.Error() != expected {
		t.Errorf("expected %s, got %s", expected, err.Error())
	}

	foreign := AddContext(errors.New("disk full"), CtxPath, "out.ts")
	if !IsCode(foreign, CodeInternal) {
		t.Errorf("expected foreign error wrapped as INTERNAL_ERROR, got %v", foreign)
	}
	if !errors.Is(foreign, foreign.(*DomainError).Err) {
		t.Error("expected wrapped cause to stay reachable")
	}

	if AddContext(nil, CtxPath, "x") != nil {
		t.Error("expected nil error to stay nil")
	}
	if IsCode(errors.New("plain"), CodeInternal) {
		t.Error("expected IsCode to be false for a foreign error")
	}
}
