package rules

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reName   = regexp.MustCompile(`^[\p{L}\s\-']+$`)
	rePhone  = regexp.MustCompile(`^[0-9\s\-+()]+$`)
	reDate   = regexp.MustCompile(`\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`)
	reNumber = regexp.MustCompile(`^[\d.,%\s$€£-]+$`)
	reDigits = regexp.MustCompile(`\d`)
	reInt    = regexp.MustCompile(`^\d+$`)
)

// validValue checks text against a value kind. Labels and noise never pass.
func validValue(kind ValueKind, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if kind == "" || kind == ValueAny {
		return true
	}
	if len([]rune(text)) < 2 && kind != ValueInteger && kind != ValueNumber {
		return false
	}

	switch kind {
	case ValueName:
		return reName.MatchString(text) && len([]rune(text)) > 2
	case ValuePhone:
		return rePhone.MatchString(text) && len(reDigits.FindAllString(text, -1)) >= 7
	case ValueEmail:
		return strings.Contains(text, "@") && strings.Contains(text, ".")
	case ValueDate:
		return reDate.MatchString(text)
	case ValueNumber:
		return reNumber.MatchString(text) && reDigits.MatchString(text)
	case ValueInteger:
		return reInt.MatchString(text)
	case ValueText:
		return strings.IndexFunc(text, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}) >= 0
	}
	return false
}

// labelWord folds a token for label comparison: lower-case, trailing separators removed.
func labelWord(text string) string {
	return strings.ToLower(strings.TrimRight(text, ":.-,;"))
}

// isLabelText reports whether a token looks like a printed label rather than a value:
// it ends with a colon, is a known label word, or is a short upper-case word.
// Codes with digits such as "A-77" stay values.
func (d *document) isLabelText(text string) bool {
	if strings.HasSuffix(text, ":") {
		return true
	}
	if d.labels[labelWord(text)] {
		return true
	}
	if len([]rune(text)) < 15 && strings.ToUpper(text) == text && strings.IndexFunc(text, unicode.IsLetter) >= 0 &&
		strings.IndexFunc(text, unicode.IsDigit) < 0 {
		return true
	}
	return false
}

// labelVocabulary collects every keyword word across keyword rules.
func labelVocabulary(rules []FieldRule) map[string]bool {
	vocab := make(map[string]bool)
	for _, r := range rules {
		if r.Pattern.Kind != KindKeyword {
			continue
		}
		for _, kw := range r.Pattern.Keywords {
			for _, w := range strings.Fields(strings.ToLower(kw)) {
				vocab[w] = true
			}
		}
	}
	return vocab
}
