package util

import (
	"testing"
	"time"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "duration string", value: "90s", want: 90 * time.Second},
		{name: "plain seconds", value: "2", want: 2 * time.Second},
		{name: "fractional seconds", value: "0.5", want: 500 * time.Millisecond},
		{name: "garbage", value: "soon", want: time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CASTNET_TEST_DURATION", tc.value)
			if got := GetEnvDuration("CASTNET_TEST_DURATION", time.Minute); got != tc.want {
				t.Fatalf("GetEnvDuration() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGetEnvDefaults(t *testing.T) {
	if got := GetEnvInt("CASTNET_TEST_UNSET_INT", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
	t.Setenv("CASTNET_TEST_INT", "12")
	if got := GetEnvInt("CASTNET_TEST_INT", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	t.Setenv("CASTNET_TEST_FLOAT", "0.65")
	if got := GetEnvFloat("CASTNET_TEST_FLOAT", 0.8); got != 0.65 {
		t.Fatalf("expected 0.65, got %v", got)
	}
	t.Setenv("CASTNET_TEST_BOOL", "yes")
	if got := GetEnvBool("CASTNET_TEST_BOOL", true); !got {
		t.Fatal("expected default for non-boolean value")
	}
	t.Setenv("CASTNET_TEST_STRING", "  ")
	if got := GetEnvString("CASTNET_TEST_STRING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}
