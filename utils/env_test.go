package utils

import "testing"

func TestIntEnvOrDefault(t *testing.T) {
	t.Setenv("RETRY_TEST_VAR", "7")
	if got := IntEnvOrDefault("RETRY_TEST_VAR", 3, 1); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
	t.Setenv("RETRY_TEST_VAR", "not-a-number")
	if got := IntEnvOrDefault("RETRY_TEST_VAR", 3, 1); got != 3 {
		t.Fatalf("malformed value: got %d, want default 3", got)
	}
	t.Setenv("RETRY_TEST_VAR", "0")
	if got := IntEnvOrDefault("RETRY_TEST_VAR", 3, 1); got != 3 {
		t.Fatalf("below minimum: got %d, want default 3", got)
	}
	if got := IntEnvOrDefault("RETRY_TEST_UNSET", 5, 0); got != 5 {
		t.Fatalf("unset variable: got %d, want default 5", got)
	}
}
