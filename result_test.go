package apartments

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrInvalidCredentials, KindInvalidCredentials},
		{ErrDuplicateEmail, KindDuplicateEmail},
		{ErrNotFound, KindNotFound},
		{ErrCodeExpired, KindExpired},
		{ErrCodeMismatch, KindMismatch},
		{fmt.Errorf("%w: timeout", ErrServerUnreachable), KindServerUnreachable},
		{&ValidationError{Fields: map[string]string{"email": "required"}}, KindValidation},
		{ErrFlowState, KindFlowState},
		{fmt.Errorf("%w: dial", ErrStoreUnavailable), KindUnavailable},
		{ErrEngineNotReady, KindUnavailable},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}

	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestErrorKindClasses(t *testing.T) {
	if !KindMismatch.Retryable() || KindMismatch.Infrastructure() {
		t.Fatal("mismatch is a retryable business error")
	}
	if KindServerUnreachable.Retryable() || !KindServerUnreachable.Infrastructure() {
		t.Fatal("server unreachable is an infrastructure error")
	}
	if KindFlowState.Retryable() {
		t.Fatal("flow state errors need a new flow")
	}
}

func TestResultOf(t *testing.T) {
	ok := ResultOf(nil, SessionUser{Email: "a@x.com"})
	if !ok.Success || ok.Kind != KindNone || ok.Message != "auth.ok" {
		t.Fatalf("unexpected success result %+v", ok)
	}
	if u, _ := ok.Data.(SessionUser); u.Email != "a@x.com" {
		t.Fatalf("expected data to be kept, got %+v", ok.Data)
	}

	fail := ResultOf(fmt.Errorf("%w: redis down", ErrStoreUnavailable), SessionUser{Email: "a@x.com"})
	if fail.Success || fail.Kind != KindUnavailable || fail.Message != "auth.error.unavailable" {
		t.Fatalf("unexpected failure result %+v", fail)
	}
	if fail.Data != nil {
		t.Fatal("failure must not carry data")
	}

	verr := &ValidationError{Fields: map[string]string{"name[0]": "required"}}
	invalid := ResultOf(verr, nil)
	if invalid.Kind != KindValidation || invalid.Fields["name[0]"] != "required" {
		t.Fatalf("unexpected validation result %+v", invalid)
	}
	verr.Fields["name[0]"] = "changed"
	if invalid.Fields["name[0]"] != "required" {
		t.Fatal("result fields must be a copy")
	}
}
