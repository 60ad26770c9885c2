package coordinator

import (
	"crypto/rand"
	"encoding/hex"
	"path"
	"strings"
)

// SanitizeFilename is the pure function spec.md §4.D requires to match
// exactly: null/empty becomes "_"; only the basename survives path
// stripping; every rune outside [A-Za-z0-9._-] becomes exactly one "_"
// with no collapsing of runs; a leading "." gets a "_" prefix; names over
// 255 bytes are truncated to fit `<trunc>-<6-hex-rand>.<ext>`.
func SanitizeFilename(name string) string {
	if name == "" {
		return "_"
	}

	base := path.Base(name)
	if base == "." || base == "/" || base == "" {
		return "_"
	}

	sanitized := replaceDisallowedRunes(base)
	if sanitized == "" {
		sanitized = "_"
	}

	if strings.HasPrefix(sanitized, ".") {
		sanitized = "_" + sanitized
	}

	if len(sanitized) > 255 {
		sanitized = truncateWithSuffix(sanitized)
	}

	return sanitized
}

// replaceDisallowedRunes walks name rune by rune (not byte by byte): each
// rune outside [A-Za-z0-9._-] becomes exactly one "_", including every
// multi-byte rune, which collapses to a single underscore rather than one
// per encoded byte.
func replaceDisallowedRunes(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isAllowedRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isAllowedRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	default:
		return false
	}
}

// truncateWithSuffix shrinks name to fit `<trunc>-<6-hex-rand>.<ext>`
// within 255 bytes, preserving the extension.
func truncateWithSuffix(name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	suffix := "-" + randomHex(3) // 3 bytes -> 6 hex chars
	budget := 255 - len(suffix) - len(ext)
	if budget < 0 {
		budget = 0
	}
	if len(stem) > budget {
		stem = stem[:budget]
	}

	return stem + suffix + ext
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable process state;
		// fall back to a fixed, clearly-synthetic suffix rather than
		// panicking mid-execution.
		return "000000"[:n*2]
	}
	return hex.EncodeToString(buf)
}
