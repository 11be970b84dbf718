package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"info", zerolog.InfoLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"  warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.input); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestInitEmitsComponentField(t *testing.T) {
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	logger := Init(Config{Format: "json", Level: "debug", Component: "omevvctl"})

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Debug().Msg("hello")

	var event map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &event); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if event["component"] != "omevvctl" {
		t.Errorf("component = %v, want omevvctl", event["component"])
	}
	if event["message"] != "hello" {
		t.Errorf("message = %v, want hello", event["message"])
	}
}

func TestSelectWriterConsole(t *testing.T) {
	writer := selectWriter("console")
	if _, ok := writer.(zerolog.ConsoleWriter); !ok {
		t.Fatalf("selectWriter(console) = %T, want zerolog.ConsoleWriter", writer)
	}
}

func TestSelectWriterAutoWithoutTerminal(t *testing.T) {
	original := isTerminalFn
	isTerminalFn = func(int) bool { return false }
	t.Cleanup(func() { isTerminalFn = original })

	if writer := selectWriter("auto"); writer != io.Writer(os.Stderr) {
		t.Fatalf("selectWriter(auto) without a terminal = %T, want stderr", writer)
	}
}

func TestSelectWriterAutoWithTerminal(t *testing.T) {
	original := isTerminalFn
	isTerminalFn = func(int) bool { return true }
	t.Cleanup(func() { isTerminalFn = original })

	if _, ok := selectWriter("auto").(zerolog.ConsoleWriter); !ok {
		t.Fatal("selectWriter(auto) on a terminal should pick the console writer")
	}
}
