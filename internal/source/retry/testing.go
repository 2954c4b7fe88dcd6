package retry

import "testing"

// TestFastRetries speeds up the retries during tests.
func TestFastRetries(_ testing.TB) {
	fastRetries = true
}
