package triple

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Clean collapses whitespace runs into a single space, trims the ends and
// replaces non-printable runes with escape sequences, so labels survive a
// JSON round trip byte-for-byte on every platform.
//
//	Clean("a\tb\n  c")     // "a b c"
//	Clean("bell\x07here") // `bell\u0007here`
func Clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")

	clean := true
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if (r == utf8.RuneError && size == 1) || !unicode.IsPrint(r) {
			clean = false
			break
		}
		i += size
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02x`, s[i])
		case unicode.IsPrint(r):
			b.WriteRune(r)
		case r <= 0xFFFF:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
		i += size
	}
	return b.String()
}
