package ai

import (
	"context"
	"errors"
	"testing"
)

func TestParseStructuredResponse(t *testing.T) {
	raw := `{"text":"Added a readme","fileTree":{"README.md":"# Hello"}}`

	result, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "Added a readme" {
		t.Fatalf("got text %q", result.Text)
	}
	if result.FileTree["README.md"] != "# Hello" {
		t.Fatalf("got file tree %v", result.FileTree)
	}
	if result.Raw != raw {
		t.Fatalf("raw should be preserved, got %q", result.Raw)
	}
}

func TestParseFencedJSON(t *testing.T) {
	raw := "```json\n{\"text\":\"ok\"}\n```"

	result, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "ok" {
		t.Fatalf("got text %q", result.Text)
	}
	if result.Raw != `{"text":"ok"}` {
		t.Fatalf("raw should be unfenced for clients, got %q", result.Raw)
	}
}

func TestParseFallsBackToPlainText(t *testing.T) {
	for _, raw := range []string{
		"just a plain answer",
		`{"unrelated": true}`,
		"{broken json",
	} {
		result, err := Parse(raw)
		if err != nil {
			t.Fatalf("parse of %q must not fail: %v", raw, err)
		}
		if result.Text != raw {
			t.Fatalf("got text %q, want %q", result.Text, raw)
		}
		if result.FileTree != nil {
			t.Fatal("no file tree expected")
		}
	}
}

func TestParseEmptyIsFailure(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n"} {
		if _, err := Parse(raw); !errors.Is(err, ErrEmptyCompletion) {
			t.Fatalf("expected ErrEmptyCompletion for %q, got %v", raw, err)
		}
	}
}

func TestDisabledCompleterAlwaysFails(t *testing.T) {
	if _, err := Disabled().Complete(context.Background(), "anything"); err == nil {
		t.Fatal("disabled completer must fail")
	}
}
