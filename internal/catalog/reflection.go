package catalog

import (
	"html"
	"net/url"
	"strings"
)

// Reflection formats reported by DetectReflection.
const (
	FormatRaw           = "raw"
	FormatDecoded       = "decoded"
	FormatURLEncoded    = "url-encoded"
	FormatHTMLEncoded   = "html-encoded"
	FormatDoubleEncoded = "double-encoded"
)

// DetectReflection checks if probe is reflected in body and in which form.
// Only FormatRaw means the markup survived unescaped.
func DetectReflection(body, probe string) (bool, string) {
	if probe == "" {
		return false, ""
	}

	// Check raw reflection
	if strings.Contains(body, probe) {
		return true, FormatRaw
	}

	// Check URL decoded
	decodedProbe, err := url.QueryUnescape(probe)
	if err == nil && decodedProbe != probe && strings.Contains(body, decodedProbe) {
		return true, FormatDecoded
	}

	// Check URL encoded
	encodedProbe := url.QueryEscape(probe)
	if encodedProbe != probe && strings.Contains(body, encodedProbe) {
		return true, FormatURLEncoded
	}

	// Check HTML encoded
	htmlEncodedProbe := html.EscapeString(probe)
	if htmlEncodedProbe != probe && strings.Contains(body, htmlEncodedProbe) {
		return true, FormatHTMLEncoded
	}

	// Check double URL encoding
	doubleEncodedProbe := url.QueryEscape(encodedProbe)
	if doubleEncodedProbe != encodedProbe && strings.Contains(body, doubleEncodedProbe) {
		return true, FormatDoubleEncoded
	}

	return false, ""
}

// specialChars maps characters that matter for markup injection to the forms
// they take once escaped.
var specialChars = map[byte][]string{
	'<':  {"&lt;", "%3C", "&#60;", "&#x3c;"},
	'>':  {"&gt;", "%3E", "&#62;", "&#x3e;"},
	'\'': {"&#39;", "&#x27;", "%27", "&apos;"},
	'"':  {"&quot;", "&#34;", "&#x22;", "%22"},
}

// specialOrder fixes the order EscapedChars reports characters in.
const specialOrder = "<>'\""

// EscapedChars finds vector in body allowing each special character to be
// spelled raw or escaped, and lists the characters that came back escaped.
// When the vector occurs more than once the least escaped occurrence wins.
// found is false when no spelling of vector is in body.
func EscapedChars(body, vector string) (escaped []string, found bool) {
	if vector == "" {
		return nil, false
	}
	best := -1
	var bestSet map[byte]bool
	for pos := 0; pos < len(body); pos++ {
		set, ok := matchEscaped(body, pos, vector)
		if !ok {
			continue
		}
		if best == -1 || len(set) < best {
			best, bestSet = len(set), set
		}
		if best == 0 {
			break
		}
	}
	if best == -1 {
		return nil, false
	}
	for i := 0; i < len(specialOrder); i++ {
		if bestSet[specialOrder[i]] {
			escaped = append(escaped, specialOrder[i:i+1])
		}
	}
	return escaped, true
}

// matchEscaped matches vector at body[pos:] and returns the special
// characters that matched in escaped form.
func matchEscaped(body string, pos int, vector string) (map[byte]bool, bool) {
	set := make(map[byte]bool)
	for i := 0; i < len(vector); i++ {
		c := vector[i]
		if pos < len(body) && body[pos] == c {
			pos++
			continue
		}
		matched := false
		for _, enc := range specialChars[c] {
			end := pos + len(enc)
			if end <= len(body) && strings.EqualFold(body[pos:end], enc) {
				pos = end
				set[c] = true
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	}
	return set, true
}
