package hotjobs

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultLocationExclude drops listings restricted to American candidates.
var DefaultLocationExclude = []string{
	"us only", "us timezone", "americas only", "usa only", "us-based", "est/pst",
}

// matchesTitleFilter keeps a title containing at least one keyword. An empty
// filter keeps everything.
func matchesTitleFilter(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	t := strings.ToLower(title)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// excludedLocation reports whether the location names one of the excluded
// phrases as a whole word.
func excludedLocation(location string, exclude []string) bool {
	loc := strings.ToLower(location)
	for _, phrase := range exclude {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" && containsWord(loc, phrase) {
			return true
		}
	}
	return false
}

// containsWord reports whether word occurs in s with no letter or digit
// directly before or after it. Both arguments are expected in lower case.
func containsWord(s, word string) bool {
	for offset := 0; ; {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if !wordRuneBefore(s, start) && !wordRuneAt(s, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
