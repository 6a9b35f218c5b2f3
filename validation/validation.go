package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/nijaru/vid-text/errors"
)

// ValidateFilename resolves filename against the video root and returns it relative
// to that root. Absolute paths are accepted when they point inside the root.
func ValidateFilename(videoRoot, filename string) (string, error) {
	const op = "validation.ValidateFilename"

	if strings.TrimSpace(filename) == "" {
		return "", apperrors.Validation(op, nil, "input file name is required")
	}

	rel := filepath.Clean(filename)
	if filepath.IsAbs(filename) {
		absRoot, err := filepath.Abs(videoRoot)
		if err != nil {
			return "", apperrors.Validation(op, err, "failed to resolve video directory")
		}
		rel, err = filepath.Rel(absRoot, rel)
		if err != nil {
			return "", apperrors.Validation(op, err, fmt.Sprintf("%s is not inside the video directory", filename))
		}
	}
	if !filepath.IsLocal(rel) {
		return "", apperrors.Validation(op, nil, fmt.Sprintf("%s is not inside the video directory", filename))
	}

	info, err := os.Stat(filepath.Join(videoRoot, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.Validation(op, err, fmt.Sprintf("input file %s not found in %s", rel, videoRoot))
		}
		return "", apperrors.Filesystem(op, err, "failed to stat input file")
	}
	if !info.Mode().IsRegular() {
		return "", apperrors.Validation(op, nil, fmt.Sprintf("%s is not a regular file", rel))
	}

	return rel, nil
}

// NormalizeLanguage maps a language name or code to its code. Empty and "auto" mean
// automatic detection and return "".
func NormalizeLanguage(language string) (string, error) {
	const op = "validation.NormalizeLanguage"

	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" || lang == "auto" {
		return "", nil
	}
	if _, ok := languages[lang]; ok {
		return lang, nil
	}
	if code, ok := languageCodes[lang]; ok {
		return code, nil
	}
	return "", apperrors.Validation(op, nil, fmt.Sprintf("unsupported language %q", language))
}

// ValidateModel accepts a known model name or a path to a local checkpoint.
func ValidateModel(name string) error {
	const op = "validation.ValidateModel"

	if name == "" {
		return apperrors.Validation(op, nil, "model name is required")
	}
	if _, ok := modelNames[name]; ok {
		return nil
	}
	if info, err := os.Stat(name); err == nil && info.Mode().IsRegular() {
		return nil
	}
	return apperrors.Validation(op, nil, fmt.Sprintf("unknown model %q", name))
}

var modelNames = map[string]struct{}{
	"tiny.en": {}, "tiny": {},
	"base.en": {}, "base": {},
	"small.en": {}, "small": {},
	"medium.en": {}, "medium": {},
	"large-v1": {}, "large-v2": {}, "large-v3": {}, "large": {},
	"large-v3-turbo": {}, "turbo": {},
}

var languages = map[string]string{
	"en": "english", "zh": "chinese", "de": "german", "es": "spanish",
	"ru": "russian", "ko": "korean", "fr": "french", "ja": "japanese",
	"pt": "portuguese", "tr": "turkish", "pl": "polish", "ca": "catalan",
	"nl": "dutch", "ar": "arabic", "sv": "swedish", "it": "italian",
	"id": "indonesian", "hi": "hindi", "fi": "finnish", "vi": "vietnamese",
	"he": "hebrew", "uk": "ukrainian", "el": "greek", "ms": "malay",
	"cs": "czech", "ro": "romanian", "da": "danish", "hu": "hungarian",
	"ta": "tamil", "no": "norwegian", "th": "thai", "ur": "urdu",
	"hr": "croatian", "bg": "bulgarian", "lt": "lithuanian", "la": "latin",
	"mi": "maori", "ml": "malayalam", "cy": "welsh", "sk": "slovak",
	"te": "telugu", "fa": "persian", "lv": "latvian", "bn": "bengali",
	"sr": "serbian", "az": "azerbaijani", "sl": "slovenian", "kn": "kannada",
	"et": "estonian", "mk": "macedonian", "br": "breton", "eu": "basque",
	"is": "icelandic", "hy": "armenian", "ne": "nepali", "mn": "mongolian",
	"bs": "bosnian", "kk": "kazakh", "sq": "albanian", "sw": "swahili",
	"gl": "galician", "mr": "marathi", "pa": "punjabi", "si": "sinhala",
	"km": "khmer", "sn": "shona", "yo": "yoruba", "so": "somali",
	"af": "afrikaans", "oc": "occitan", "ka": "georgian", "be": "belarusian",
	"tg": "tajik", "sd": "sindhi", "gu": "gujarati", "am": "amharic",
	"yi": "yiddish", "lo": "lao", "uz": "uzbek", "fo": "faroese",
	"ht": "haitian creole", "ps": "pashto", "tk": "turkmen", "nn": "nynorsk",
	"mt": "maltese", "sa": "sanskrit", "lb": "luxembourgish", "my": "myanmar",
	"bo": "tibetan", "tl": "tagalog", "mg": "malagasy", "as": "assamese",
	"tt": "tatar", "haw": "hawaiian", "ln": "lingala", "ha": "hausa",
	"ba": "bashkir", "jw": "javanese", "su": "sundanese", "yue": "cantonese",
}

// languageCodes maps names and common aliases back to codes.
var languageCodes = func() map[string]string {
	codes := map[string]string{
		"burmese":       "my",
		"valencian":     "ca",
		"flemish":       "nl",
		"haitian":       "ht",
		"letzeburgesch": "lb",
		"pushto":        "ps",
		"panjabi":       "pa",
		"moldavian":     "ro",
		"moldovan":      "ro",
		"sinhalese":     "si",
		"castilian":     "es",
		"mandarin":      "zh",
	}
	for code, name := range languages {
		codes[name] = code
	}
	return codes
}()
