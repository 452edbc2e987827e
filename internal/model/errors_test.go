package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_Wrapped(t *testing.T) {
	err := fmt.Errorf("compute BTCUSDT: %w", ErrDataInsufficient)
	if got := ErrorKind(err); got != KindDataInsufficient {
		t.Errorf("expected %s, got %s", KindDataInsufficient, got)
	}

	err = fmt.Errorf("fetch: %w", fmt.Errorf("status 503: %w", ErrUpstreamUnavailable))
	if got := ErrorKind(err); got != KindUpstreamUnavailable {
		t.Errorf("expected %s, got %s", KindUpstreamUnavailable, got)
	}
}

func TestErrorKind_Unknown(t *testing.T) {
	if got := ErrorKind(errors.New("boom")); got != KindInternal {
		t.Errorf("expected internal, got %s", got)
	}
	if got := ErrorKind(nil); got != KindInternal {
		t.Errorf("expected internal for nil, got %s", got)
	}
}
