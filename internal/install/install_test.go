package install

import (
	"fastrelay/internal/config"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderUnit(t *testing.T) {
	unit := renderUnit("/opt/bin/fastrelay", "/etc/relay.json")

	if !strings.Contains(unit, "ExecStart=/opt/bin/fastrelay relay --config /etc/relay.json\n") {
		t.Errorf("unit has wrong ExecStart:\n%s", unit)
	}
	if !strings.Contains(unit, "Type=notify") {
		t.Errorf("unit must wait for readiness notification")
	}
	if strings.Contains(unit, "$executableFilePath") || strings.Contains(unit, "$configFilePath") {
		t.Errorf("unit still has placeholders:\n%s", unit)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "yes\n", want: true},
		{input: "  YES \n", want: true},
		{input: "y\n", want: false},
		{input: "no\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			got := confirm(strings.NewReader(tt.input), "")
			if got != tt.want {
				t.Errorf("confirm(%q) = %v, expected %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInstallConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "fastrelay.json")

	err := InstallConfig(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = config.Load(path)
	if err != nil {
		t.Fatalf("installed template does not load: %v", err)
	}

	err = os.WriteFile(path, []byte("{}"), 0600)
	if err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	err = InstallConfig(path, true)
	if err != nil {
		t.Fatalf("unexpected error on forced overwrite: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) == "{}" {
		t.Errorf("forced install did not overwrite")
	}

	err = InstallConfig("", false)
	if err == nil {
		t.Errorf("expected error for empty path")
	}
}
