//go:build !debug && !profile

package main

import "github.com/spf13/cobra"

// profiling flags are only wired up in debug and profile builds
func registerProfiling(_ *cobra.Command) {}
