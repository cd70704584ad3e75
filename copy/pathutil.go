package copy

import (
	"net/url"
	"strings"
)

// isURL reports whether p looks like a repository URL rather than a local
// working-copy path: it has a scheme and "://".
func isURL(p string) bool {
	u, err := url.Parse(p)
	return err == nil && u.Scheme != "" && strings.Contains(p, "://")
}

// splitParentBase splits a URL or local path into its parent and final
// path component, using "/"-segment semantics in both cases (URLs are
// always handled as "/"-joined regardless of host OS).
func splitParentBase(p string) (parent, base string) {
	trimmed := strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "", trimmed
	}
	return trimmed[:idx], trimmed[idx+1:]
}

func joinSeg(parent, child string) string {
	if parent == "" {
		return child
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}

// segments splits a "/"-joined path into its non-empty components. For a
// URL, the scheme and authority ("svn://host") are kept together as one
// atomic leading component so a naive split on "/" does not tear the "//"
// apart from the scheme.
func segments(p string) []string {
	rest := p
	var scheme string
	if idx := strings.Index(p, "://"); idx >= 0 {
		afterScheme := idx + len("://")
		if slash := strings.Index(p[afterScheme:], "/"); slash >= 0 {
			scheme = p[:afterScheme+slash]
			rest = p[afterScheme+slash:]
		} else {
			return []string{p}
		}
	}
	parts := strings.Split(rest, "/")
	out := make([]string, 0, len(parts)+1)
	if scheme != "" {
		out = append(out, scheme)
	}
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// commonSegmentPrefix returns the longest common ancestor of a and b,
// split at path separators rather than compared as raw strings - "/foo/ba"
// is not an ancestor of "/foo/bar" even though it is a string prefix. For
// URLs the result is itself a URL, or "" when the two do not even share a
// scheme and authority; for local paths it is an absolute path.
func commonSegmentPrefix(a, b string) string {
	as, bs := segments(a), segments(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	var i int
	for i < n && as[i] == bs[i] {
		i++
	}
	if i == 0 && (strings.Contains(a, "://") || strings.Contains(b, "://")) {
		return ""
	}
	if i > 0 && strings.Contains(as[0], "://") {
		return strings.Join(as[:i], "/")
	}
	return "/" + strings.Join(as[:i], "/")
}

// isAncestorOrSame reports whether ancestor is a path-segment prefix of
// descendant (or equal to it).
func isAncestorOrSame(ancestor, descendant string) bool {
	as, ds := segments(ancestor), segments(descendant)
	if len(as) > len(ds) {
		return false
	}
	for i, s := range as {
		if ds[i] != s {
			return false
		}
	}
	return true
}

// relPath returns target made relative to anchor, URI-decoded, using
// "/"-segment semantics. Both must share anchor as a prefix.
func relPath(anchor, target string) string {
	anchor = strings.TrimSuffix(anchor, "/")
	rel := strings.TrimPrefix(strings.TrimPrefix(target, anchor), "/")
	decoded, err := url.PathUnescape(rel)
	if err != nil {
		return rel
	}
	return decoded
}

// dirnameURL returns the parent URL of u, one "/"-segment up. Built on
// splitParentBase rather than path.Dir: path.Clean collapses the "//"
// after a URL scheme, mangling "svn://repo" into "svn:/repo".
func dirnameURL(u string) string {
	parent, _ := splitParentBase(u)
	return parent
}
