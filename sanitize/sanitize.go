package sanitize

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	scriptBlockRe  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockRe   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	eventHandlerRe = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	uriSchemeRe    = regexp.MustCompile(`(?i)(javascript|data|vbscript)\s*:`)
	htmlTagRe      = regexp.MustCompile(`(?s)<[^>]*>`)

	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 .\-()]{5,19}$`)
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// SanitizeObject returns a copy of in with every key that starts with the
// reserved query-operator prefix "$" or contains a NUL byte removed, at any
// nesting depth. Values inside nested maps and slices are cleaned the same
// way; string leaves pass through [SanitizeString].
func SanitizeObject(in map[string]any) map[string]any {
	out, _ := SanitizeObjectReport(in)
	return out
}

// SanitizeObjectReport behaves like [SanitizeObject] and additionally
// reports how many keys were removed, counting drops at every nesting
// depth.
func SanitizeObjectReport(in map[string]any) (map[string]any, int) {
	var dropped int
	out := sanitizeObject(in, &dropped)
	return out, dropped
}

func sanitizeObject(in map[string]any, dropped *int) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for key, value := range in {
		if isOperatorKey(key) {
			*dropped++
			continue
		}
		out[key] = sanitizeValue(value, dropped)
	}
	return out
}

func isOperatorKey(key string) bool {
	if strings.HasPrefix(key, "$") {
		return true
	}
	return strings.ContainsRune(key, 0)
}

func sanitizeValue(value any, dropped *int) any {
	switch v := value.(type) {
	case map[string]any:
		return sanitizeObject(v, dropped)
	case []any:
		cleaned := make([]any, 0, len(v))
		for _, item := range v {
			cleaned = append(cleaned, sanitizeValue(item, dropped))
		}
		return cleaned
	case string:
		return SanitizeString(v)
	default:
		return v
	}
}

// EscapeHTML entity-escapes the five HTML metacharacters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// StripHTMLTags removes script and style blocks including their content,
// then strips every remaining tag.
func StripHTMLTags(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = styleBlockRe.ReplaceAllString(s, "")
	return htmlTagRe.ReplaceAllString(s, "")
}

// SanitizeString neutralizes embedded markup without escaping ordinary text:
// script/style blocks and inline event-handler attributes are removed, and
// javascript:/data:/vbscript: URI schemes are defanged. Surrounding
// whitespace is trimmed.
func SanitizeString(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = styleBlockRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	s = uriSchemeRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// IsValidEmail reports whether s looks like a deliverable address. Format
// check only; no DNS lookup.
func IsValidEmail(s string) bool {
	if len(s) == 0 || len(s) > 254 {
		return false
	}
	return emailRe.MatchString(s)
}

// IsValidPhone accepts international-format numbers with common separators.
func IsValidPhone(s string) bool {
	if s == "" {
		return false
	}
	return phoneRe.MatchString(s)
}

// IsValidURL accepts absolute http/https URLs only. Any other scheme,
// including javascript: and data:, is rejected outright.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// SanitizeFilename strips directory components and traversal sequences,
// leaving a bare file name safe to join against a storage root.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(path.Clean("/" + name))
	name = strings.ReplaceAll(name, "..", "")
	name = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, name)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
