// Package markup translates plain-text character offsets into positions
// within an HTML fragment and applies text substitutions at those positions.
package markup

import (
	"html"
	"regexp"
	"strings"
)

// maxEntityLookahead bounds the scan for a terminating ';' when deciding
// whether an '&' begins a character entity.
const maxEntityLookahead = 10

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// PlainText returns the visible text of an HTML fragment: every tag is
// removed and character entities are decoded to their literal runes.
// Annotation offsets are always expressed against this projection.
func PlainText(markupText string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(markupText, ""))
}

// ApplyReplacement substitutes the half-open plain-text range [start, end)
// of markupText with replacement. The range is resolved against the visible
// text; tags are skipped and each entity counts as a single character.
//
// When the stored expectedOriginal no longer matches the range (the block
// was edited after the suggestion was written), the first verbatim
// occurrence of expectedOriginal in the raw markup is replaced instead.
// When neither strategy resolves, the input is returned unchanged: a
// best-effort no-op is preferable to losing the reviewer's decision.
// The function is pure and never fails.
func ApplyReplacement(markupText string, start, end int, expectedOriginal, replacement string) string {
	// Multi-line suggestion text renders as explicit line breaks.
	replacement = strings.ReplaceAll(replacement, "\n", "<br>")

	plain := []rune(PlainText(markupText))
	if start < 0 || end > len(plain) || end <= start || string(plain[start:end]) != expectedOriginal {
		return replaceVerbatim(markupText, expectedOriginal, replacement)
	}

	markupRunes := []rune(markupText)
	markupIndex := 0
	textIndex := 0
	markupStart := -1
	markupEnd := -1

	for markupIndex < len(markupRunes) && textIndex <= end {
		if markupRunes[markupIndex] == '<' {
			tagEnd := indexRuneFrom(markupRunes, markupIndex, '>')
			if tagEnd != -1 {
				markupIndex = tagEnd + 1
				continue
			}
		}

		if markupRunes[markupIndex] == '&' {
			entityEnd := indexRuneFrom(markupRunes, markupIndex, ';')
			if entityEnd != -1 && entityEnd-markupIndex < maxEntityLookahead {
				if textIndex == start {
					markupStart = markupIndex
				}
				textIndex++
				if textIndex == end {
					markupEnd = entityEnd + 1
					break
				}
				markupIndex = entityEnd + 1
				continue
			}
		}

		if textIndex == start {
			markupStart = markupIndex
		}
		textIndex++
		if textIndex == end {
			markupEnd = markupIndex + 1
			break
		}
		markupIndex++
	}

	if markupStart != -1 && markupEnd != -1 {
		return string(markupRunes[:markupStart]) + replacement + string(markupRunes[markupEnd:])
	}

	return replaceVerbatim(markupText, expectedOriginal, replacement)
}

// replaceVerbatim swaps the first raw occurrence of original, or returns the
// input untouched when the text is absent or split by tags.
func replaceVerbatim(markupText, original, replacement string) string {
	if strings.Contains(markupText, original) && original != "" {
		return strings.Replace(markupText, original, replacement, 1)
	}
	return markupText
}

func indexRuneFrom(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == target {
			return i
		}
	}
	return -1
}
