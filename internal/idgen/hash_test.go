package idgen

import (
	"regexp"
	"testing"
	"time"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

func TestNewIssueID(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 6*1_000_000, time.UTC)

	a := NewIssueID("Fix login", created, 0)
	if !idPattern.MatchString(a) {
		t.Fatalf("NewIssueID() = %q, want 8 hex chars", a)
	}
	if again := NewIssueID("Fix login", created, 0); again != a {
		t.Errorf("NewIssueID not deterministic: %s vs %s", a, again)
	}
	if bumped := NewIssueID("Fix login", created, 1); bumped == a {
		t.Errorf("nonce should change the id, got %s twice", a)
	}
}

func TestRemoteIssueID(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"github:acme/app#1", "github:acme/app#1", true},
		{"github:acme/app#1", "github:acme/app#2", false},
		{"github:acme/app#1", "github:acme/web#1", false},
	}
	for _, tt := range tests {
		got := RemoteIssueID(tt.a) == RemoteIssueID(tt.b)
		if got != tt.same {
			t.Errorf("RemoteIssueID(%q) == RemoteIssueID(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
		}
		if !idPattern.MatchString(RemoteIssueID(tt.a)) {
			t.Errorf("RemoteIssueID(%q) = %q, want 8 hex chars", tt.a, RemoteIssueID(tt.a))
		}
	}
}
