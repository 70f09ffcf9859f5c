package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		want          zapcore.Level
		wantErr       bool
	}{
		{"info", "console", zapcore.InfoLevel, false},
		{"debug", "json", zapcore.DebugLevel, false},
		{"WARN", "", zapcore.WarnLevel, false},
		{"loud", "console", 0, true},
		{"info", "xml", 0, true},
	}
	for _, tt := range tests {
		l, err := New(tt.level, tt.format)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("New(%q, %q): expected error", tt.level, tt.format)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.level, tt.format, err)
		}
		if !l.Core().Enabled(tt.want) || (tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1)) {
			t.Fatalf("New(%q, %q): wrong level", tt.level, tt.format)
		}
	}
	if Nop().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("Nop logger should discard")
	}
}
