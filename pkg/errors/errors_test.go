package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := &Error{Type: ErrorTypeRateLimited, Message: "too many requests", Code: 429}
	want := "rate_limited error (code 429): too many requests"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	e = New(ErrorTypeWrite, "disk full")
	want = "write error: disk full"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestTypeOfUnwrapsWrappedErrors(t *testing.T) {
	inner := Newf(ErrorTypeAccessDenied, "profile %s is private", "alice")
	wrapped := fmt.Errorf("fetching posts: %w", inner)

	if got := TypeOf(wrapped); got != ErrorTypeAccessDenied {
		t.Errorf("TypeOf() = %v, want %v", got, ErrorTypeAccessDenied)
	}
	if !Is(wrapped, ErrorTypeAccessDenied) {
		t.Error("Is() should match through wrapping")
	}
	if Is(wrapped, ErrorTypeRateLimited) {
		t.Error("Is() matched the wrong type")
	}
}

func TestTypeOfPlainError(t *testing.T) {
	if got := TypeOf(errors.New("boom")); got != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain) = %v, want %v", got, ErrorTypeUnknown)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	e := Wrap(ErrorTypeNetwork, cause, "request failed")
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeRateLimited, ErrorTypeNetwork, ErrorTypeServerError}
	for _, typ := range retryable {
		if !IsRetryable(typ) {
			t.Errorf("expected %v to be retryable", typ)
		}
	}

	fatal := []ErrorType{ErrorTypeAuthExpired, ErrorTypeAccessDenied, ErrorTypeWrite, ErrorTypeNotFound, ErrorTypeUnknown}
	for _, typ := range fatal {
		if IsRetryable(typ) {
			t.Errorf("expected %v to not be retryable", typ)
		}
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	cases := map[int]bool{
		0:   true,
		429: true,
		500: true,
		503: true,
		401: false,
		403: false,
		404: false,
		200: false,
	}
	for code, want := range cases {
		if got := IsRetryableStatusCode(code); got != want {
			t.Errorf("IsRetryableStatusCode(%d) = %v, want %v", code, got, want)
		}
	}
}
