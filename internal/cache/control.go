package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jacoelho/xmlcatalog/internal/xml"
)

// Namespace qualifies cache-specific attributes in descriptors and the
// control file.
const Namespace = "http://xmlresolver.org/ns/catalog"

const (
	defaultDeleteWait = 7 * 24 * time.Hour
	defaultMaxCount   = 1000
	defaultMaxBytes   = 10 * 1024 * 1024
)

// NoMaxAge disables age based expiry.
const NoMaxAge time.Duration = -1

// localSchemes are never cached unless an earlier rule says otherwise: the
// filesystem can change them without notice.
var localSchemes = []string{"^file:", "^jar:file:", "^classpath:"}

// Rule is one cache policy rule.
type Rule struct {
	pattern    *regexp.Regexp
	DeleteWait time.Duration
	MaxAge     time.Duration
	MaxBytes   int64
	MaxCount   int
	Cache      bool
}

// Pattern returns the rule's URI regular expression, or "" for the default.
func (r Rule) Pattern() string {
	if r.pattern == nil {
		return ""
	}
	return r.pattern.String()
}

func (r Rule) matches(u string) bool {
	return r.pattern != nil && r.pattern.MatchString(u)
}

// Control is the ordered cache policy. The first matching rule governs a
// URI; Default applies otherwise.
type Control struct {
	Rules   []Rule
	Default Rule
}

// DefaultControl returns the built-in policy.
func DefaultControl() *Control {
	c := &Control{Default: Rule{
		Cache:      true,
		DeleteWait: defaultDeleteWait,
		MaxCount:   defaultMaxCount,
		MaxBytes:   defaultMaxBytes,
		MaxAge:     NoMaxAge,
	}}
	c.addLocalSchemeRules()
	return c
}

// NewRule builds a rule inheriting unset limits from c's default.
func (c *Control) NewRule(pattern string, cache bool) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("cache rule %q: %w", pattern, err)
	}
	r := c.Default
	r.pattern = re
	r.Cache = cache
	return r, nil
}

// RuleFor returns the rule governing u.
func (c *Control) RuleFor(u string) Rule {
	for _, r := range c.Rules {
		if r.matches(u) {
			return r
		}
	}
	return c.Default
}

func (c *Control) addLocalSchemeRules() {
	for _, pattern := range localSchemes {
		present := false
		for _, r := range c.Rules {
			if r.Pattern() == pattern {
				present = true
				break
			}
		}
		if present {
			continue
		}
		r, err := c.NewRule(pattern, false)
		if err != nil {
			panic(err)
		}
		c.Rules = append(c.Rules, r)
	}
}

// ParseDuration parses a control file duration: an integer with an optional
// unit s, m, h, d or w (seconds when absent). A negative value means unset.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	unit := time.Second
	switch s[len(s)-1] {
	case 's':
		s = s[:len(s)-1]
	case 'm':
		unit, s = time.Minute, s[:len(s)-1]
	case 'h':
		unit, s = time.Hour, s[:len(s)-1]
	case 'd':
		unit, s = 24*time.Hour, s[:len(s)-1]
	case 'w':
		unit, s = 7*24*time.Hour, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if n < 0 {
		return NoMaxAge, nil
	}
	return time.Duration(n) * unit, nil
}

// ParseSize parses a control file size: an integer with an optional unit
// k, m or g (binary multiples).
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch strings.ToLower(s[len(s)-1:]) {
	case "k":
		mult, s = 1024, s[:len(s)-1]
	case "m":
		mult, s = 1024*1024, s[:len(s)-1]
	case "g":
		mult, s = 1024*1024*1024, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	return n * mult, nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d < 0:
		return "-1"
	case d%(7*24*time.Hour) == 0 && d > 0:
		return strconv.FormatInt(int64(d/(7*24*time.Hour)), 10) + "w"
	case d%(24*time.Hour) == 0 && d > 0:
		return strconv.FormatInt(int64(d/(24*time.Hour)), 10) + "d"
	case d%time.Hour == 0 && d > 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	case d%time.Minute == 0 && d > 0:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "m"
	default:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
}

func formatSize(n int64) string {
	switch {
	case n > 0 && n%(1024*1024*1024) == 0:
		return strconv.FormatInt(n/(1024*1024*1024), 10) + "g"
	case n > 0 && n%(1024*1024) == 0:
		return strconv.FormatInt(n/(1024*1024), 10) + "m"
	case n > 0 && n%1024 == 0:
		return strconv.FormatInt(n/1024, 10) + "k"
	default:
		return strconv.FormatInt(n, 10)
	}
}

// readControl reads the control file at path. A missing file yields
// (nil, nil).
func readControl(path string) (*Control, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open cache control %s: %w", path, err)
	}
	defer f.Close()

	doc, err := xml.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse cache control %s: %w", path, err)
	}
	root := doc.DocumentElement()
	if root.NamespaceURI() != Namespace || root.LocalName() != "cache-control" {
		return nil, fmt.Errorf("parse cache control %s: unexpected root %s", path, root.LocalName())
	}
	c := DefaultControl()
	c.Rules = nil
	if err := applyLimits(&c.Default, root); err != nil {
		return nil, fmt.Errorf("parse cache control %s: %w", path, err)
	}
	for _, child := range root.Children() {
		if child.NamespaceURI() != Namespace {
			continue
		}
		var cache bool
		switch child.LocalName() {
		case "cache":
			cache = true
		case "no-cache":
		default:
			continue
		}
		r, err := c.NewRule(child.GetAttribute("uri"), cache)
		if err != nil {
			return nil, fmt.Errorf("parse cache control %s: %w", path, err)
		}
		if err := applyLimits(&r, child); err != nil {
			return nil, fmt.Errorf("parse cache control %s: %w", path, err)
		}
		c.Rules = append(c.Rules, r)
	}
	c.addLocalSchemeRules()
	return c, nil
}

func applyLimits(r *Rule, el xml.Element) error {
	var err error
	if v := el.GetAttribute("delete-wait"); v != "" {
		if r.DeleteWait, err = ParseDuration(v); err != nil {
			return err
		}
	}
	if v := el.GetAttribute("size"); v != "" {
		n, err := ParseSize(v)
		if err != nil {
			return err
		}
		r.MaxCount = int(n)
	}
	if v := el.GetAttribute("space"); v != "" {
		if r.MaxBytes, err = ParseSize(v); err != nil {
			return err
		}
	}
	if v := el.GetAttribute("max-age"); v != "" {
		if r.MaxAge, err = ParseDuration(v); err != nil {
			return err
		}
	}
	return nil
}

func limitAttrs(n *xml.Node, r Rule) *xml.Node {
	return n.
		Set("", "delete-wait", formatDuration(r.DeleteWait)).
		Set("", "size", strconv.Itoa(r.MaxCount)).
		Set("", "space", formatSize(r.MaxBytes)).
		Set("", "max-age", formatDuration(r.MaxAge))
}

func writeControl(path string, c *Control) error {
	root := limitAttrs(xml.NewNode("", "cache-control").Declare("", Namespace), c.Default)
	for _, r := range c.Rules {
		name := "no-cache"
		if r.Cache {
			name = "cache"
		}
		child := xml.NewNode("", name).Set("", "uri", r.Pattern())
		if r.Cache {
			limitAttrs(child, r)
		}
		root.Append(child)
	}
	return writeFileAtomic(path, func(w *os.File) error { return xml.Encode(w, root) })
}
