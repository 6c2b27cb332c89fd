package fskit

import "strings"

// SanitizePath normalizes a path the way the resolver expects it:
// a trailing "/" is treated as a trailing "/.", and repeated slashes
// collapse to one (spec.md §4.3 step 1). The empty string is rejected
// by returning it unchanged; callers must check for "".
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(path))
	lastSlash := false
	for _, r := range path {
		if r == '/' {
			if lastSlash {
				continue
			}
			lastSlash = true
		} else {
			lastSlash = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if strings.HasSuffix(out, "/") && out != "/" {
		out += "."
	} else if out == "/" {
		out = "/."
	}
	return out
}

// splitSegments tokenizes a sanitized path on "/", dropping "."
// segments and empty segments produced by a leading slash (spec.md
// §4.3 step 2).
func splitSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Depth returns the number of non-trivial path components, used by
// rename's deeper-first lock ordering (spec.md §4.6, §5).
func Depth(path string) int {
	return len(splitSegments(SanitizePath(path)))
}

// Dirname returns the path of the parent directory, "/" for a
// top-level entry.
func Dirname(path string) string {
	segs := splitSegments(SanitizePath(path))
	if len(segs) <= 1 {
		return "/"
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/")
}

// Basename returns the final path component, "/" for the root itself.
func Basename(path string) string {
	segs := splitSegments(SanitizePath(path))
	if len(segs) == 0 {
		return "/"
	}
	return segs[len(segs)-1]
}

// Fullpath joins a directory path and a child name.
func Fullpath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// PathIterator yields successive prefixes of a sanitized path, one
// segment at a time, for callers that want to walk a path
// component-by-component without going through the resolver (e.g.
// trace emission, per spec.md §4.3 "iterator form").
type PathIterator struct {
	segs []string
	i    int
	pfx  string
}

func NewPathIterator(path string) *PathIterator {
	return &PathIterator{segs: splitSegments(SanitizePath(path))}
}

// Next returns the next segment name and the path prefix up to and
// including it, or ok=false once exhausted.
func (it *PathIterator) Next() (name, prefix string, ok bool) {
	if it.i >= len(it.segs) {
		return "", "", false
	}
	name = it.segs[it.i]
	it.i++
	if it.pfx == "" {
		it.pfx = "/" + name
	} else {
		it.pfx = it.pfx + "/" + name
	}
	return name, it.pfx, true
}
