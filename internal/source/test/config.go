// Package test contains shared helpers for testing scheme packages.
package test

import (
	"testing"
)

// ConfigTestData is a test case for a scheme's ParseConfig function.
type ConfigTestData[C comparable] struct {
	S   string
	Cfg C
}

// ParseConfigTester runs parser on all test cases and compares the result
// with the expected config.
func ParseConfigTester[C comparable](t *testing.T, parser func(s string) (*C, error), tests []ConfigTestData[C]) {
	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			cfg, err := parser(test.S)
			if err != nil {
				t.Fatalf("%s failed: %v", test.S, err)
			}

			if *cfg != test.Cfg {
				t.Fatalf("wrong config, want:\n  %v\ngot:\n  %v", test.Cfg, *cfg)
			}
		})
	}
}
