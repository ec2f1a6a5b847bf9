package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	if got := New().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("level = %s, want info", got)
	}
}

func TestNewHonoursLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	if got := New().GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("level = %s, want debug", got)
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID(abc) = %q", got)
	}
	if got := ShortID("0123456789abcdef"); got != "01234567…" {
		t.Errorf("ShortID(long) = %q", got)
	}
}
