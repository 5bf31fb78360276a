package mediaurl

import "strings"

// Rewriter prefixes stored media paths with the configured proxy base so
// readers never receive a direct source URL.
type Rewriter struct {
	base string
}

func NewRewriter(base string) *Rewriter {
	return &Rewriter{base: strings.TrimRight(base, "/")}
}

// Proxify prepends the proxy base to a stored media path. Empty paths pass
// through unchanged so callers can keep "no cover" as the empty string.
func (r *Rewriter) Proxify(path string) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.base + path
}
