package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("search done", "steps", 12)

	out := buf.String()
	for _, want := range []string{`"msg":"search done"`, `"steps":12`, `"level":"INFO"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Debug("hidden too")
	if buf.Len() > 0 {
		t.Fatalf("expected no output below warn, got: %s", buf.String())
	}
	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn message, got: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := Discard().With("k", "v")
	log.Error("nothing happens")
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), JSON(&buf, slog.LevelInfo))
	FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without a logger returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFromFlags(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := FromFlags(&buf, "warn", "json", true)
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	log.Debug("forced debug")
	if !strings.Contains(buf.String(), `"level":"DEBUG"`) {
		t.Fatalf("debug flag did not lower the level: %s", buf.String())
	}

	if _, err := FromFlags(&buf, "info", "xml", false); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := FromFlags(&buf, "loud", "text", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func newPlain(buf *bytes.Buffer, level slog.Level) *PrettyHandler {
	return NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}).WithoutColor()
}

func TestPrettyLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := slog.New(newPlain(&buf, slog.LevelDebug))
	log.Debug("beam step", "step", 3, "best_alive", float32(-1.5), "elapsed", 1500*time.Microsecond)

	out := buf.String()
	if !strings.Contains(out, " DBG beam step step=3 best_alive=-1.5 elapsed=1.5ms\n") {
		t.Fatalf("unexpected line: %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("plain handler wrote escape codes: %q", out)
	}
}

func TestPrettyColored(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, nil)).Error("failed")
	if !strings.Contains(buf.String(), ansiRed+"ERR"+ansiReset) {
		t.Fatalf("expected red ERR tag, got %q", buf.String())
	}
}

func TestPrettyEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("error disabled at warn level")
	}
}

func TestPrettyGroupsAndAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := newPlain(&buf, slog.LevelInfo)
	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "api")}).WithGroup("req").WithGroup("params"))
	log.Info("decode", "beam", 4, slog.Group("ids", "eos", 1))

	out := buf.String()
	for _, want := range []string{"component=api", "req.params.beam=4", "req.params.ids.eos=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if h.WithGroup("") != h {
		t.Fatal("empty group should return the same handler")
	}
}

func TestPrettyQuoting(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	slog.New(newPlain(&buf, slog.LevelInfo)).Info("q", "text", "hello world", "id", "abc")
	out := buf.String()
	if !strings.Contains(out, `text="hello world"`) || !strings.Contains(out, "id=abc") {
		t.Fatalf("unexpected quoting: %q", out)
	}
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"simple":    false,
		"":          false,
		"a b":       true,
		"tab\there": true,
		`say"hi"`:   true,
		"k=v":       true,
	}
	for in, want := range tests {
		if got := needsQuoting(in); got != want {
			t.Errorf("needsQuoting(%q) = %v, want %v", in, got, want)
		}
	}
}
