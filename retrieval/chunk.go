package retrieval

import (
	"strings"
	"unicode/utf8"
)

const DEFAULT_CHUNK_SIZE = 800

var cjkSeparators = []string{"\n\n", "\n", "。", "！", "？", "；", "，"}
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; "}

// SeparatorsForLanguage picks the split separators for a detected
// ISO 639-1 code. Ideographic languages end sentences on fullwidth
// punctuation.
func SeparatorsForLanguage(language string) []string {
	switch language {
	case "zh", "ja", "ko":
		return cjkSeparators
	default:
		return defaultSeparators
	}
}

// SplitText cuts text into chunks of at most chunkSize runes, preferring
// the given separators in order and falling back to a hard rune split for
// separator-free runs. Adjacent fragments are greedily merged back up to
// the chunk size so chunks stay as large as the budget allows.
func SplitText(text string, chunkSize int, separators []string) []string {
	if chunkSize <= 0 {
		chunkSize = DEFAULT_CHUNK_SIZE
	}
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}
	fragments := splitRecursive(text, chunkSize, separators)
	return mergeFragments(fragments, chunkSize)
}

func splitRecursive(text string, chunkSize int, separators []string) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return hardSplit(text, chunkSize)
	}
	parts := strings.SplitAfter(text, separators[0])
	var fragments []string
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		if utf8.RuneCountInString(part) > chunkSize {
			fragments = append(fragments, splitRecursive(part, chunkSize, separators[1:])...)
		} else {
			fragments = append(fragments, part)
		}
	}
	return fragments
}

func hardSplit(text string, chunkSize int) []string {
	var fragments []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		fragments = append(fragments, string(runes[start:end]))
	}
	return fragments
}

func mergeFragments(fragments []string, chunkSize int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, fragment := range fragments {
		length := utf8.RuneCountInString(fragment)
		if currentLen > 0 && currentLen+length > chunkSize {
			chunk := strings.TrimSpace(current.String())
			if len(chunk) > 0 {
				chunks = append(chunks, chunk)
			}
			current.Reset()
			currentLen = 0
		}
		current.WriteString(fragment)
		currentLen += length
	}
	chunk := strings.TrimSpace(current.String())
	if len(chunk) > 0 {
		chunks = append(chunks, chunk)
	}
	return chunks
}
