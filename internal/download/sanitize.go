package download

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxStemBytes leaves room for a " (n)" counter and an extension within
// the common 255 byte file name limit.
const maxStemBytes = 240

// invalidChars are rejected by at least one common file system.
const invalidChars = `\/:*?"<>|`

// reservedNames are device names Windows refuses as file stems.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeFilename turns an arbitrary display name into a file name stem
// that is valid on Linux, macOS and Windows.
//
// The name is NFC-normalised; control characters, invalid UTF-8 and the
// characters \ / : * ? " < > | are removed; surrounding white space and
// trailing dots are trimmed; Windows device names get a "_" suffix; and the
// result is cut to maxStemBytes at a rune boundary. An empty string is
// returned when nothing usable remains.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == utf8.RuneError || unicode.IsControl(r) || strings.ContainsRune(invalidChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.TrimSpace(b.String())
	s = strings.TrimRight(s, ". ")
	if s == "" {
		return ""
	}

	stemEnd := len(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		stemEnd = i
	}
	if reservedNames[strings.ToUpper(strings.TrimSpace(s[:stemEnd]))] {
		s = s[:stemEnd] + "_" + s[stemEnd:]
	}

	return truncateBytes(s, maxStemBytes)
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], ". ")
}
