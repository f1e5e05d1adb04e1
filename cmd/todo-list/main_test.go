package main

import (
	"bufio"
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("TODO_CONFIG", "/etc/todo.yaml")
	if got := getConfigPath(); got != "/etc/todo.yaml" {
		t.Errorf("getConfigPath() = %q, want /etc/todo.yaml", got)
	}

	t.Setenv("TODO_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	want := filepath.Join("/xdg", "todo-list", "config.yaml")
	if got := getConfigPath(); got != want {
		t.Errorf("getConfigPath() = %q, want %q", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := slog.New(newColorHandler(&buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.With("component", "web").WithGroup("req").Info("served", "status", 200)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %q", out)
	}
	for _, want := range []string{"INF ", "served", "component=web", "req.status=200"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestPromptDefaults(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("\ncustom\n"))

	if got := prompt(reader, "first", "fallback"); got != "fallback" {
		t.Errorf("prompt() = %q, want fallback", got)
	}
	if got := prompt(reader, "second", "fallback"); got != "custom" {
		t.Errorf("prompt() = %q, want custom", got)
	}
	if got := prompt(reader, "eof", "fallback"); got != "fallback" {
		t.Errorf("prompt() at EOF = %q, want fallback", got)
	}
}
