package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(NoBuildableArea, "setbacks of %.1f m consume the lot", 16.0)
	wrapped := fmt.Errorf("building envelope: %w", err)

	if !errors.Is(wrapped, ErrNoBuildableArea) {
		t.Errorf("errors.Is(%v, ErrNoBuildableArea) = false, want true", wrapped)
	}
	if errors.Is(wrapped, ErrDegeneratePolygon) {
		t.Errorf("errors.Is(%v, ErrDegeneratePolygon) = true, want false", wrapped)
	}
	if got := KindOf(wrapped); got != NoBuildableArea {
		t.Errorf("KindOf = %v, want %v", got, NoBuildableArea)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(Cancelled, context.Canceled, "shadow grid cancelled after %d of %d points", 3, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("wrapped cause not found in %v", err)
	}
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("kind not matched in %v", err)
	}
	want := "shadow grid cancelled after 3 of 10 points: context canceled"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{InvalidPolygon, "invalid_polygon"},
		{SolarRange, "solar_range"},
		{Kind(200), "Kind(200)"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint8(tt.k), got, tt.want)
		}
	}
	if got := KindOf(errors.New("plain")); got != Unknown {
		t.Errorf("KindOf(plain) = %v, want unknown", got)
	}
}
