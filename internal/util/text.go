package util

import "strings"

// NormalizeText makes loader output safe for the segmenter: invalid UTF-8
// and NUL bytes are dropped, a leading BOM is removed and line endings are
// converted to "\n".
func NormalizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	sanitized = strings.ReplaceAll(sanitized, "\x00", "")
	sanitized = strings.TrimPrefix(sanitized, "\ufeff")
	sanitized = strings.ReplaceAll(sanitized, "\r\n", "\n")
	return strings.ReplaceAll(sanitized, "\r", "\n")
}
