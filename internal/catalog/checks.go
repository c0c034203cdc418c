package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Serdar715/xssdetective/internal/page"
)

// Reflected holds when vector appears verbatim in the response markup.
func Reflected(vector string) Check {
	return func(doc *page.Document) bool {
		if doc == nil {
			return false
		}
		found, format := DetectReflection(doc.HTML(), vector)
		return found && format == FormatRaw
	}
}

// Encoded holds when vector comes back in one of formats, as reported by
// DetectReflection. With no formats any non-raw reflection counts. It tells a
// field that echoes through an encoder from one that drops the input.
func Encoded(vector string, formats ...string) Check {
	return func(doc *page.Document) bool {
		if doc == nil {
			return false
		}
		found, format := DetectReflection(doc.HTML(), vector)
		if !found || format == FormatRaw {
			return false
		}
		if len(formats) == 0 {
			return true
		}
		for _, f := range formats {
			if f == format {
				return true
			}
		}
		return false
	}
}

// Unescaped holds when vector is reflected and none of the characters in
// chars came back escaped. Other characters may be escaped; a surviving quote
// is enough to leave an attribute value even when brackets are encoded. An
// empty chars means every special character of vector.
func Unescaped(vector, chars string) Check {
	return func(doc *page.Document) bool {
		if doc == nil {
			return false
		}
		escaped, found := EscapedChars(doc.HTML(), vector)
		if !found {
			return false
		}
		for _, c := range escaped {
			if chars == "" || strings.Contains(chars, c) {
				return false
			}
		}
		return true
	}
}

// Selector holds when the CSS selector matches at least one element of the
// parsed response, meaning the vector's markup was turned into real nodes.
func Selector(sel string) Check {
	return func(doc *page.Document) bool {
		if doc == nil || doc.Document == nil {
			return false
		}
		return doc.Find(sel).Length() > 0
	}
}

// ScriptContains holds when an inline <script> element contains substr.
func ScriptContains(substr string) Check {
	return func(doc *page.Document) bool {
		if doc == nil || doc.Document == nil {
			return false
		}
		found := false
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(s.Text(), substr) {
				found = true
			}
			return !found
		})
		return found
	}
}

// AttributeContains holds when any element has attribute attr containing
// substr, as with injected event handlers.
func AttributeContains(attr, substr string) Check {
	return func(doc *page.Document) bool {
		if doc == nil || doc.Document == nil {
			return false
		}
		found := false
		doc.Find("[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(attr)
			if strings.Contains(strings.ToLower(v), strings.ToLower(substr)) {
				found = true
			}
			return !found
		})
		return found
	}
}

// Regex holds when pattern matches the raw response.
func Regex(pattern string) (Check, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return func(doc *page.Document) bool {
		return doc != nil && re.MatchString(doc.HTML())
	}, nil
}

// Fuzzy holds when a near copy of vector is in the response.
func Fuzzy(vector string, threshold float64) Check {
	fm := NewFuzzyMatcher(threshold)
	return func(doc *page.Document) bool {
		return doc != nil && fm.Matches(doc.HTML(), vector)
	}
}

// Any holds when one of checks holds.
func Any(checks ...Check) Check {
	return func(doc *page.Document) bool {
		for _, c := range checks {
			if c(doc) {
				return true
			}
		}
		return false
	}
}

// All holds when every check holds.
func All(checks ...Check) Check {
	return func(doc *page.Document) bool {
		for _, c := range checks {
			if !c(doc) {
				return false
			}
		}
		return len(checks) > 0
	}
}
