package tools

import "testing"

func TestHTMLBody(t *testing.T) {
	if got := htmlBody("line one\nline two"); got != "line one<br>line two" {
		t.Errorf("unexpected html body: %q", got)
	}
}

func TestParseAttachments(t *testing.T) {
	typed := []Attachment{{Filename: "a.pdf", Path: "/tmp/a.pdf"}}
	if got := parseAttachments(typed); len(got) != 1 || got[0].Filename != "a.pdf" {
		t.Errorf("typed slice: got %+v", got)
	}

	decoded := []any{
		map[string]any{"filename": "b.ics", "path": "/tmp/b.ics"},
		map[string]any{"filename": "no-path.txt"},
		"not an object",
	}
	got := parseAttachments(decoded)
	if len(got) != 1 {
		t.Fatalf("decoded slice: expected 1 attachment, got %d", len(got))
	}
	if got[0].Filename != "b.ics" || got[0].Path != "/tmp/b.ics" {
		t.Errorf("decoded slice: got %+v", got[0])
	}

	if got := parseAttachments(nil); got != nil {
		t.Errorf("nil input: got %+v", got)
	}
	if got := parseAttachments("junk"); got != nil {
		t.Errorf("junk input: got %+v", got)
	}
}
