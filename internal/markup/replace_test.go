package markup

import "testing"

func TestPlainTextStripsTagsAndDecodesEntities(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		expected string
	}{
		{name: "simple-paragraph", markup: "<p>Hello world</p>", expected: "Hello world"},
		{name: "nested-tags", markup: "<p>Hello <em>bright</em> world</p>", expected: "Hello bright world"},
		{name: "entities", markup: "<p>Tom &amp; Jerry &lt;3</p>", expected: "Tom & Jerry <3"},
		{name: "no-markup", markup: "plain text", expected: "plain text"},
		{name: "empty", markup: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.markup); got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestApplyReplacementByOffsets(t *testing.T) {
	tests := []struct {
		name        string
		markup      string
		start, end  int
		original    string
		replacement string
		expected    string
	}{
		{
			name:   "range-at-start",
			markup: "<p>Hello world</p>",
			start:  0, end: 5,
			original:    "Hello",
			replacement: "Hi",
			expected:    "<p>Hi world</p>",
		},
		{
			name:   "range-in-middle",
			markup: "<p>Hello world</p>",
			start:  6, end: 11,
			original:    "world",
			replacement: "there",
			expected:    "<p>Hello there</p>",
		},
		{
			name:   "range-spanning-inline-tag",
			markup: "<p>Hello <em>bright</em> world</p>",
			start:  6, end: 12,
			original:    "bright",
			replacement: "dim",
			expected:    "<p>Hello <em>dim</em> world</p>",
		},
		{
			name:   "range-covering-entity",
			markup: "<p>Tom &amp; Jerry</p>",
			start:  4, end: 5,
			original:    "&",
			replacement: "and",
			expected:    "<p>Tom and Jerry</p>",
		},
		{
			name:   "newlines-become-breaks",
			markup: "<p>Hello world</p>",
			start:  0, end: 5,
			original:    "Hello",
			replacement: "Hi\nthere",
			expected:    "<p>Hi<br>there world</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyReplacement(tt.markup, tt.start, tt.end, tt.original, tt.replacement)
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestApplyReplacementPlainTextProjection(t *testing.T) {
	markupText := "<h2>Quiet <em>mind</em>, open heart</h2>"
	plain := PlainText(markupText)
	start, end := 6, 10
	original := plain[start:end]

	got := ApplyReplacement(markupText, start, end, original, "spirit")

	expected := plain[:start] + "spirit" + plain[end:]
	if PlainText(got) != expected {
		t.Fatalf("plain text mismatch: expected %q, got %q", expected, PlainText(got))
	}
}

func TestApplyReplacementFallsBackToVerbatimMatch(t *testing.T) {
	// Offsets drifted because the block was edited, but the original text is
	// still present unsplit by tags.
	markupText := "<p>An opening clause. Hello world</p>"
	got := ApplyReplacement(markupText, 0, 5, "Hello", "Hi")
	if got != "<p>An opening clause. Hi world</p>" {
		t.Fatalf("unexpected fallback result: %q", got)
	}
}

func TestApplyReplacementFallbackReplacesFirstOccurrence(t *testing.T) {
	markupText := "<p>echo echo</p>"
	got := ApplyReplacement(markupText, 2, 6, "echo", "call")
	if got != "<p>call echo</p>" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestApplyReplacementNoOpWhenUnresolvable(t *testing.T) {
	tests := []struct {
		name       string
		markup     string
		start, end int
		original   string
	}{
		{name: "original-absent", markup: "<p>Hello world</p>", start: 0, end: 5, original: "Howdy"},
		{name: "offsets-exceed-content", markup: "<p>Hi</p>", start: 40, end: 45, original: "nothing"},
		{name: "split-by-tags", markup: "<p>He<em>l</em>lo</p>", start: 0, end: 9, original: "Goodbye x"},
		{name: "inverted-range", markup: "<p>Hello</p>", start: 4, end: 2, original: "ll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyReplacement(tt.markup, tt.start, tt.end, tt.original, "replacement")
			if got != tt.markup {
				t.Fatalf("expected input returned unchanged, got %q", got)
			}
		})
	}
}

func TestApplyReplacementIsPure(t *testing.T) {
	markupText := "<p>Hello world</p>"
	first := ApplyReplacement(markupText, 0, 5, "Hello", "Hi")
	second := ApplyReplacement(markupText, 0, 5, "Hello", "Hi")
	if first != second {
		t.Fatalf("expected deterministic output, got %q then %q", first, second)
	}
}
