// Package route decides which request paths skip authentication.
package route

import (
	"fmt"
	"regexp"
	"strings"
)

// Classifier matches a path against a fixed set of exact public paths and
// public patterns. A path is public when any rule matches.
type Classifier struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

// DefaultPublicPaths and DefaultPublicPatterns describe the stock public surface:
// the landing page, the sign-in page, the health check and everything under /api.
var (
	DefaultPublicPaths    = []string{"/", "/sign-in", "/health"}
	DefaultPublicPatterns = []string{`^/api(/.*)?$`}
)

func NewClassifier(paths []string, patterns []string) (*Classifier, error) {
	c := &Classifier{
		exact:    make(map[string]struct{}, len(paths)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}

	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		c.exact[p] = struct{}{}
	}

	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile public pattern %q: %w", raw, err)
		}
		c.patterns = append(c.patterns, re)
	}

	return c, nil
}

// IsPublic reports whether path needs no credentials. It never fails; an
// empty path is treated as the root.
func (c *Classifier) IsPublic(path string) bool {
	if c == nil {
		return false
	}
	if path == "" {
		path = "/"
	}

	if _, ok := c.exact[path]; ok {
		return true
	}

	for _, re := range c.patterns {
		if re.MatchString(path) {
			return true
		}
	}

	return false
}
