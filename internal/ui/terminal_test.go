package ui

import (
	"os"
	"testing"
)

// unsetColorEnv clears the color variables for the duration of the test.
func unsetColorEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"NO_COLOR", "CLICOLOR", "CLICOLOR_FORCE", "ROADMAP_NO_EMOJI"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"NO_COLOR disables", map[string]string{"NO_COLOR": "1"}, false},
		{"empty NO_COLOR still disables", map[string]string{"NO_COLOR": ""}, false},
		{"CLICOLOR=0 disables", map[string]string{"CLICOLOR": "0"}, false},
		{"CLICOLOR_FORCE enables without a TTY", map[string]string{"CLICOLOR_FORCE": "1"}, true},
		{"NO_COLOR beats CLICOLOR_FORCE", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, false},
		{"CLICOLOR_FORCE=0 does not force", map[string]string{"CLICOLOR_FORCE": "0"}, IsTerminal()},
		{"no variables follows the TTY", nil, IsTerminal()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetColorEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := ShouldUseColor(); got != tt.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldUseEmoji(t *testing.T) {
	unsetColorEnv(t)
	if got := ShouldUseEmoji(); got != IsTerminal() {
		t.Errorf("ShouldUseEmoji() = %v, want TTY state %v", got, IsTerminal())
	}
	t.Setenv("ROADMAP_NO_EMOJI", "1")
	if ShouldUseEmoji() {
		t.Error("ROADMAP_NO_EMOJI should disable emoji")
	}
}
