package uri

import (
	"strings"
)

// PublicIDURNPrefix is the URN namespace used to carry public identifiers in
// system identifier or URI positions.
const PublicIDURNPrefix = "urn:publicid:"

// NormalizePublicID folds tabs and line endings to spaces, collapses interior
// whitespace runs to a single space and trims the result.
func NormalizePublicID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// IsPublicIDURN reports whether s uses the urn:publicid: namespace.
func IsPublicIDURN(s string) bool {
	return len(s) >= len(PublicIDURNPrefix) && strings.EqualFold(s[:len(PublicIDURNPrefix)], PublicIDURNPrefix)
}

// EncodeURN wraps a public identifier as a urn:publicid: URN (RFC 3151).
func EncodeURN(publicID string) string {
	p := NormalizePublicID(publicID)
	var b strings.Builder
	b.Grow(len(PublicIDURNPrefix) + len(p))
	b.WriteString(PublicIDURNPrefix)
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '/' && i+1 < len(p) && p[i+1] == '/':
			b.WriteByte(':')
			i++
		case c == ':' && i+1 < len(p) && p[i+1] == ':':
			b.WriteByte(';')
			i++
		case c == ' ':
			b.WriteByte('+')
		case c == '+':
			b.WriteString("%2B")
		case c == ':':
			b.WriteString("%3A")
		case c == '/':
			b.WriteString("%2F")
		case c == ';':
			b.WriteString("%3B")
		case c == '\'':
			b.WriteString("%27")
		case c == '?':
			b.WriteString("%3F")
		case c == '#':
			b.WriteString("%23")
		case c == '%':
			b.WriteString("%25")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var urnEscapes = map[string]byte{
	"2B": '+',
	"3A": ':',
	"2F": '/',
	"3B": ';',
	"27": '\'',
	"3F": '?',
	"23": '#',
	"25": '%',
}

// DecodeURN unwraps a urn:publicid: URN into a normalized public identifier.
// The second result is false when s is not in the publicid namespace.
func DecodeURN(s string) (string, bool) {
	if !IsPublicIDURN(s) {
		return s, false
	}
	body := s[len(PublicIDURNPrefix):]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '+':
			b.WriteByte(' ')
		case ':':
			b.WriteString("//")
		case ';':
			b.WriteString("::")
		case '%':
			if i+2 < len(body) {
				if decoded, ok := urnEscapes[strings.ToUpper(body[i+1:i+3])]; ok {
					b.WriteByte(decoded)
					i += 2
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return NormalizePublicID(b.String()), true
}
