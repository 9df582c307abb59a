package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tfischer/inboxpilot/internal/config"
)

const runTestConfig = `query: "in:inbox"
max_results: 10
attachments_dir: attachments
rules:
  - name: Work
    keywords: [meeting]
`

func TestRunFlagOverridesAreValidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(runTestConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{
			name:  "zero max results",
			args:  []string{"--config", path, "--max-results", "0"},
			field: "max_results",
		},
		{
			name:  "negative max results",
			args:  []string{"--config", path, "--max-results", "-5"},
			field: "max_results",
		},
		{
			name:  "empty attachments dir",
			args:  []string{"--config", path, "--attachments-dir", ""},
			field: "attachments_dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRunCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if err == nil {
				t.Fatal("expected a validation error, got nil")
			}
			var verr *config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *config.ValidationError, got %T: %v", err, err)
			}
			if verr.Field != tt.field {
				t.Errorf("validation field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}
