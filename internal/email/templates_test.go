package email

import (
	"strings"
	"testing"
)

func TestRenderLayoutSingleDocumentShell(t *testing.T) {
	out := RenderLayout("<p>Your showing is confirmed.</p>")

	if got := strings.Count(out, "<!DOCTYPE html>"); got != 1 {
		t.Fatalf("expected exactly one document shell, got %d", got)
	}
	if !strings.Contains(out, "<p>Your showing is confirmed.</p>") {
		t.Fatalf("content not embedded in layout: %s", out)
	}
}

func TestRenderLayoutKeepsMarkup(t *testing.T) {
	out := RenderLayout(`<a href="https://example.com/apply">Apply now</a>`)

	if !strings.Contains(out, `<a href="https://example.com/apply">Apply now</a>`) {
		t.Fatalf("markup was escaped: %s", out)
	}
}
