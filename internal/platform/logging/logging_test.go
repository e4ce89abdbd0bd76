package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatLog(t *testing.T) {
	tests := []struct {
		tag, msg, want string
	}{
		{TagWiFi, "connected", "[WIFI] connected"},
		{"", "plain", "plain"},
		{TagTx, "[TX] already tagged", "[TX] already tagged"},
		{" BOOT ", " ready ", "[BOOT] ready"},
	}
	for _, tt := range tests {
		if got := FormatLog(tt.tag, tt.msg); got != tt.want {
			t.Errorf("FormatLog(%q, %q) = %q, want %q", tt.tag, tt.msg, got, tt.want)
		}
	}
}

func TestLoggerWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Config{Level: "debug", Dir: dir, Filename: "device.log", Console: &console, NoColor: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.InfoTag(TagWiFi, "joined %s after %d attempts", "home", 3)
	logger.DebugTag(TagInput, "coin edge")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := console.String()
	if !strings.Contains(out, "[WIFI] joined home after 3 attempts") {
		t.Fatalf("console output missing formatted message: %q", out)
	}
	if !strings.Contains(out, "[DEBUG] [INPUT] coin edge") {
		t.Fatalf("console output missing debug line: %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "device.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"[WIFI] joined home after 3 attempts"`) {
		t.Fatalf("json log missing record: %s", data)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Config{Level: "warn", Console: &console, NoColor: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	logger.InfoTag(TagStatus, "dropped")
	logger.WarnTag(TagStatus, "kept")

	out := console.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "[WARN] [STATUS] kept") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.InfoTag(TagBoot, "nothing happens")
}
