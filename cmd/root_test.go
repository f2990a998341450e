package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs([]string{"--help"})
	defer RootCmd.SetArgs(nil)

	if err := RootCmd.Execute(); err != nil {
		t.Errorf("root command with --help failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "generates up and down DDL scripts") {
		t.Errorf("expected help output to contain description, got: %s", output)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	commandNames := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		commandNames[cmd.Name()] = true
	}

	for _, expected := range []string{"version", "plan"} {
		if !commandNames[expected] {
			t.Errorf("expected subcommand %s not found in: %v", expected, commandNames)
		}
	}
}

func TestPlanRequiresFile(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs([]string{"plan", "--db", "app", "--user", "owner"})
	defer RootCmd.SetArgs(nil)

	err := RootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), `required flag(s) "file" not set`) {
		t.Errorf("expected missing --file error, got %v", err)
	}
}
