// Package uri holds the URI and public identifier helpers shared by the
// catalog loader, the query engine and the resource cache.
package uri

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

const classpathScheme = "classpath:"

// IsAbsolute reports whether s carries a URI scheme. Single letter schemes are
// treated as Windows drive letters and therefore not absolute.
func IsAbsolute(s string) bool {
	scheme, ok := schemeOf(s)
	return ok && len(scheme) > 1
}

func schemeOf(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9', c == '+', c == '-', c == '.':
			if i == 0 {
				return "", false
			}
		case c == ':':
			if i == 0 {
				return "", false
			}
			return s[:i], true
		default:
			return "", false
		}
	}
	return "", false
}

// Scheme returns the lower-cased scheme of s, or "" if s is not absolute.
func Scheme(s string) string {
	scheme, ok := schemeOf(s)
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}

// Resolve resolves ref against base. An absolute ref is returned unchanged
// apart from classpath normalization. base must be absolute.
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if IsAbsolute(ref) {
		return NormalizeClasspath(ref), nil
	}
	if !IsAbsolute(base) {
		return "", fmt.Errorf("resolve %q: base %q is not absolute", ref, base)
	}
	if ref == "" {
		return base, nil
	}
	switch Scheme(base) {
	case "classpath":
		return resolvePathLike(classpathScheme, strings.TrimPrefix(NormalizeClasspath(base), classpathScheme), ref), nil
	case "jar":
		idx := strings.Index(base, "!")
		if idx < 0 {
			return "", fmt.Errorf("resolve %q: jar base %q has no entry separator", ref, base)
		}
		return resolvePathLike(base[:idx+1], base[idx+1:], ref), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	r, err := url.Parse(filepath.ToSlash(ref))
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	if b.Opaque != "" {
		return "", fmt.Errorf("resolve %q: base %q is opaque", ref, base)
	}
	return b.ResolveReference(r).String(), nil
}

func resolvePathLike(prefix, basePath, ref string) string {
	frag := ""
	if idx := strings.IndexByte(ref, '#'); idx >= 0 {
		ref, frag = ref[:idx], ref[idx:]
	}
	var joined string
	if strings.HasPrefix(ref, "/") {
		joined = path.Clean(ref)
	} else {
		joined = path.Join(path.Dir(basePath), ref)
	}
	if strings.HasPrefix(basePath, "/") && !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	if strings.HasSuffix(ref, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	if prefix == classpathScheme {
		joined = strings.TrimPrefix(joined, "/")
	}
	return prefix + joined + frag
}

// NormalizeClasspath rewrites classpath:/x to classpath:x.
func NormalizeClasspath(s string) string {
	if len(s) > len(classpathScheme) && strings.EqualFold(s[:len(classpathScheme)], classpathScheme) {
		return classpathScheme + strings.TrimLeft(s[len(classpathScheme):], "/")
	}
	return s
}

// ForComparison returns the form of s used when matching catalog entries. It
// never leaks into returned URIs.
func ForComparison(s string, mergeHTTPS bool) string {
	s = NormalizeClasspath(s)
	if mergeHTTPS && len(s) >= 5 && strings.EqualFold(s[:5], "http:") {
		return "https:" + s[5:]
	}
	return s
}

// FileURI converts a filesystem path to an absolute file: URI.
func FileURI(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("absolute path %s: %w", p, err)
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	if strings.HasSuffix(p, string(filepath.Separator)) || strings.HasSuffix(p, "/") {
		u.Path += "/"
	}
	return u.String(), nil
}

// DirURI converts a directory path to a file: URI ending in a slash so that
// it can serve as a base.
func DirURI(p string) (string, error) {
	u, err := FileURI(p)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u, nil
}

// FilePath converts a file: URI to a local path.
func FilePath(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse file uri %q: %w", s, err)
	}
	if !strings.EqualFold(u.Scheme, "file") {
		return "", fmt.Errorf("not a file uri: %q", s)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if u.Host != "" && u.Host != "localhost" {
		p = "//" + u.Host + p
	}
	if runtime.GOOS == "windows" && len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// CaseInsensitiveFS reports whether the host filesystem is assumed to compare
// names case-insensitively.
func CaseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

const upperHex = "0123456789ABCDEF"

// Normalize percent-encodes the characters that may not appear literally in
// a system identifier or URI reference. Existing escapes are preserved.
func Normalize(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if needsEscape(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	b := make([]byte, 0, len(s)+8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			b = append(b, '%', upperHex[c>>4], upperHex[c&0x0f])
			continue
		}
		b = append(b, c)
	}
	return string(b)
}

func needsEscape(c byte) bool {
	if c <= 0x20 || c >= 0x7f {
		return true
	}
	switch c {
	case '"', '<', '>', '\\', '^', '`', '{', '|', '}':
		return true
	}
	return false
}
