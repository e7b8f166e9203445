package main

import (
	"testing"
)

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}
	if versionCmd.Run == nil {
		t.Error("versionCmd.Run should not be nil")
	}
}

func TestRootCommandStructure(t *testing.T) {
	if rootCmd.Use != "janus" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "janus")
	}

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"run", "version", "verify", "lint", "completion"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}

	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config persistent flag")
	}
	if rootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("missing --verbose persistent flag")
	}
}
