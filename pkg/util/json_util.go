package util

import (
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json(.*?)(?:```|$)")
	bareFenceRe = regexp.MustCompile("(?s)```(.*?)(?:```|$)")
	fenceLangRe = regexp.MustCompile(`^[A-Za-z0-9_-]+\s*\n`)
)

// ExtractJsonFromText returns the JSON span of a model reply.
// A ```json fence wins over a bare ``` fence; only the first fenced block is
// used. Without fences the outermost object/array span is returned.
func ExtractJsonFromText(text string) string {
	if m := jsonFenceRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := bareFenceRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(fenceLangRe.ReplaceAllString(m[1], ""))
	}

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return strings.TrimSpace(text)
	}
	end := strings.LastIndexAny(text, "}]")
	if end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

var fullwidthDigits = strings.NewReplacer(
	"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
	"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
)

// NormalizeDigits maps full-width digits to ASCII.
func NormalizeDigits(text string) string {
	return fullwidthDigits.Replace(text)
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
