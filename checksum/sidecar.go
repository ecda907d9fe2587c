package checksum

import "strings"

// FormatSidecar renders the single-line sidecar file contents for a hex
// digest (spec.md §6: "a single line containing the lowercase hex digest").
func FormatSidecar(hexDigest string) []byte {
	return []byte(strings.ToLower(hexDigest) + "\n")
}

// ParseSidecar extracts the hex digest from sidecar file contents,
// tolerant of surrounding whitespace and a trailing filename comment, e.g.
// "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33  foo.jar" or
// "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33 *foo.jar".
func ParseSidecar(raw []byte) string {
	line := strings.TrimSpace(string(raw))
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		line = line[:i]
	}
	return strings.ToLower(strings.TrimPrefix(line, "*"))
}
