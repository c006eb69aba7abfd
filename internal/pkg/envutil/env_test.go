package envutil

import (
	"testing"
	"time"
)

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("LECTRIA_TEST_DUR", "45")
	if got := GetEnvAsDuration("LECTRIA_TEST_DUR", time.Second, nil); got != 45*time.Second {
		t.Fatalf("bare seconds: got %v", got)
	}
	t.Setenv("LECTRIA_TEST_DUR", "1m30s")
	if got := GetEnvAsDuration("LECTRIA_TEST_DUR", time.Second, nil); got != 90*time.Second {
		t.Fatalf("duration string: got %v", got)
	}
	t.Setenv("LECTRIA_TEST_DUR", "soon")
	if got := GetEnvAsDuration("LECTRIA_TEST_DUR", time.Second, nil); got != time.Second {
		t.Fatalf("fallback: got %v", got)
	}
}

func TestGetEnvAsIntAndBool(t *testing.T) {
	t.Setenv("LECTRIA_TEST_INT", " 7 ")
	if got := GetEnvAsInt("LECTRIA_TEST_INT", 1, nil); got != 7 {
		t.Fatalf("int: got %d", got)
	}
	t.Setenv("LECTRIA_TEST_BOOL", "off")
	if got := GetEnvAsBool("LECTRIA_TEST_BOOL", true, nil); got {
		t.Fatalf("bool: expected false")
	}
	if got := GetEnv("LECTRIA_TEST_UNSET_KEY", "dflt", nil); got != "dflt" {
		t.Fatalf("default: got %q", got)
	}
}
