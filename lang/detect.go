package lang

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

const DEFAULT_LANGUAGE = "en"

// Detector reports the dominant language of a text as a lowercase
// ISO 639-1 code. Implementations must fall back to "en" when the text is
// empty or ambiguous.
type Detector interface {
	Detect(text string) string
}

type linguaDetector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds the default detector over a fixed language set that
// covers the scripts the chunk splitter distinguishes.
func NewDetector() Detector {
	languages := []lingua.Language{
		lingua.English,
		lingua.Chinese,
		lingua.Japanese,
		lingua.Korean,
		lingua.French,
		lingua.German,
		lingua.Spanish,
		lingua.Portuguese,
		lingua.Russian,
		lingua.Arabic,
		lingua.Hindi,
	}
	return &linguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

func (d *linguaDetector) Detect(text string) string {
	if len(strings.TrimSpace(text)) == 0 {
		return DEFAULT_LANGUAGE
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return DEFAULT_LANGUAGE
	}
	return strings.ToLower(language.IsoCode639_1().String())
}
