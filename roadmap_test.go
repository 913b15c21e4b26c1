package roadmap_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roadmap-cli/roadmap"
)

func TestOpenStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "issues")
	store, err := roadmap.OpenStore(dir, "")
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}

	ctx := context.Background()
	issue := &roadmap.Issue{ID: "abc12345", Title: "Embed roadmap", Status: roadmap.StatusInProgress}
	if err := store.Save(ctx, issue); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	issues, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(issues) != 1 || issues[0].Title != "Embed roadmap" {
		t.Errorf("List() = %+v", issues)
	}
}

func TestNewBackendUnknown(t *testing.T) {
	if _, err := roadmap.NewBackend("nope", func(string) string { return "" }, nil); err == nil {
		t.Error("NewBackend should fail for an unknown backend")
	}
}

func TestNewBackendGitHub(t *testing.T) {
	values := map[string]string{"github.owner": "acme", "github.repo": "app", "github.token": "tok"}
	b, err := roadmap.NewBackend("github", func(k string) string { return values[k] }, nil)
	if err != nil {
		t.Fatalf("NewBackend failed: %v", err)
	}
	if b.Name() != "github" {
		t.Errorf("Name() = %q", b.Name())
	}
}
