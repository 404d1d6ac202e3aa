package llm

import (
	"math"
	"unicode"
	"unicode/utf8"
)

// Estimator approximates the token cost of a text for budget decisions.
// Estimates must bias high: rejecting locally is cheap, a 413 from the
// model endpoint is not.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator estimates from character counts. Alphabetic text
// averages a few characters per token; ideographic scripts run close to
// one token per segment, so those texts are counted by segmentation
// instead. The uplift factor keeps the estimate conservative.
type HeuristicEstimator struct {
	CharsPerToken float64
	Uplift        float64
}

func NewEstimator(conf ModelConfig) Estimator {
	charsPerToken := conf.CharsPerToken
	if charsPerToken <= 0 {
		charsPerToken = DEFAULT_CHARS_PER_TOKEN
	}
	uplift := conf.TokenUplift
	if uplift <= 0 {
		uplift = DEFAULT_TOKEN_UPLIFT
	}
	return &HeuristicEstimator{CharsPerToken: charsPerToken, Uplift: uplift}
}

func (e *HeuristicEstimator) Estimate(text string) int {
	runeCount := utf8.RuneCountInString(text)
	if runeCount == 0 {
		return 0
	}
	ideographic, segments := segmentStats(text)
	var estimate float64
	if ideographic*2 >= runeCount {
		estimate = float64(segments)
	} else {
		estimate = math.Ceil(float64(runeCount) / e.CharsPerToken)
	}
	return int(math.Ceil(estimate * e.Uplift))
}

// segmentStats counts ideographic runes and total segments, where a
// segment is either a single ideographic rune or a run of other
// letters/digits.
func segmentStats(text string) (int, int) {
	ideographic := 0
	segments := 0
	inWord := false
	for _, r := range text {
		switch {
		case isIdeographicRune(r):
			ideographic++
			segments++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				segments++
				inWord = true
			}
		default:
			inWord = false
		}
	}
	return ideographic, segments
}

func isIdeographicRune(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
