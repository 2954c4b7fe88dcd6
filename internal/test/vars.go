package test

import (
	"fmt"
	"os"
)

// Knobs for the test helpers, settable via the environment.
var (
	// TestPassword is the password used for keyfiles sealed in tests.
	TestPassword = getStringVar("SEALIO_TEST_PASSWORD", "geheim")

	// TestCleanupTempDirs, when false, leaves the temporary directories
	// around for inspection.
	TestCleanupTempDirs = getBoolVar("SEALIO_TEST_CLEANUP", true)

	// TestTempDir overrides where TempDir creates its directories.
	TestTempDir = getStringVar("SEALIO_TEST_TMPDIR", "")
)

func getStringVar(name, defaultValue string) string {
	if e := os.Getenv(name); e != "" {
		return e
	}

	return defaultValue
}

func getBoolVar(name string, defaultValue bool) bool {
	if e := os.Getenv(name); e != "" {
		switch e {
		case "1", "true":
			return true
		case "0", "false":
			return false
		default:
			fmt.Fprintf(os.Stderr, "invalid value for variable %q, using default\n", name)
		}
	}

	return defaultValue
}
