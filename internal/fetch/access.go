package fetch

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// Access lists allow and deny patterns. A pattern is either a doublestar glob
// matched against the URI with its scheme lower-cased (for example
// "https://example.com/**"), a bare scheme name such as "file", or "all".
// Deny wins over allow; an empty allow list allows every URI not denied.
type Access struct {
	Allow []string
	Deny  []string
}

type accessPolicy struct {
	allow []string
	deny  []string
}

func newAccessPolicy(a Access) (*accessPolicy, error) {
	p := &accessPolicy{}
	var err error
	if p.allow, err = compilePatterns(a.Allow); err != nil {
		return nil, err
	}
	if p.deny, err = compilePatterns(a.Deny); err != nil {
		return nil, err
	}
	return p, nil
}

func compilePatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.Contains(pattern, ":") && !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid access pattern %q", pattern)
		}
		out = append(out, pattern)
	}
	return out, nil
}

func (p *accessPolicy) allows(target string) bool {
	if p == nil {
		return true
	}
	folded := foldScheme(target)
	scheme := uri.Scheme(target)
	for _, pattern := range p.deny {
		if matchPattern(pattern, scheme, folded) {
			return false
		}
	}
	if len(p.allow) == 0 {
		return true
	}
	for _, pattern := range p.allow {
		if matchPattern(pattern, scheme, folded) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, scheme, folded string) bool {
	if !strings.Contains(pattern, ":") {
		return strings.EqualFold(pattern, "all") || strings.EqualFold(pattern, scheme)
	}
	return doublestar.MatchUnvalidated(pattern, folded)
}

func foldScheme(target string) string {
	scheme := uri.Scheme(target)
	if scheme == "" {
		return target
	}
	return scheme + target[len(scheme):]
}
