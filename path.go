// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"fmt"
	"strings"
)

// Path is a hierarchical, slash-separated entity address such as "/main/osc/out".
// The root is "/". A Path is a plain string so that it can be used as a map key
// and carried by value inside events; use [ParsePath] to validate foreign input.
type Path string

// Root is the path of the top-level container.
const Root Path = "/"

// forbiddenPathChars are printable characters that may not appear in a path.
const forbiddenPathChars = " #*,?[]{}"

// ParsePath validates s and returns it as a Path.
//
// A valid path starts with '/', does not end with '/' (except the root),
// has no empty segment, and consists of printable ASCII other than
// space and the characters #*,?[]{}.
func ParsePath(s string) (Path, error) {
	if !validPath(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	return Path(s), nil
}

// MustParsePath is like [ParsePath] but panics on an invalid path.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func validPath(s string) bool {
	if len(s) == 0 || s[0] != '/' {
		return false
	}
	if s == "/" {
		return true
	}
	if s[len(s)-1] == '/' || strings.Contains(s, "//") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 32 || c > 126 || strings.IndexByte(forbiddenPathChars, c) >= 0 {
			return false
		}
	}
	return true
}

// Valid reports whether p is a well-formed path.
func (p Path) Valid() bool { return validPath(string(p)) }

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool { return p == Root }

// String implements fmt.Stringer.
func (p Path) String() string { return string(p) }

// Name returns the last segment of p, or "" for the root.
func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	return string(p[strings.LastIndexByte(string(p), '/')+1:])
}

// Parent returns the path with the last segment removed.
// The parent of the root is the root.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(string(p), '/')
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// Child returns the path of the child of p named name.
func (p Path) Child(name string) Path {
	if p.IsRoot() {
		return Path("/" + name)
	}
	return p + Path("/"+name)
}

// Depth returns the number of segments in p. The root has depth 0.
func (p Path) Depth() int {
	if p.IsRoot() {
		return 0
	}
	return strings.Count(string(p), "/")
}

// IsChildOf reports whether p is an immediate child of parent.
func (p Path) IsChildOf(parent Path) bool {
	return !p.IsRoot() && p.Parent() == parent
}

// IsDescendantOf reports whether p lies strictly below ancestor.
// A path is not a descendant of itself.
func (p Path) IsDescendantOf(ancestor Path) bool {
	if p == ancestor {
		return false
	}
	if ancestor.IsRoot() {
		return true
	}
	return strings.HasPrefix(string(p), string(ancestor)) && p[len(ancestor)] == '/'
}

// Within reports whether p is ancestor itself or one of its descendants.
func (p Path) Within(ancestor Path) bool {
	return p == ancestor || p.IsDescendantOf(ancestor)
}

// Rebase substitutes the from prefix of p with to.
// p must satisfy p.Within(from); from itself maps to to verbatim.
func (p Path) Rebase(from, to Path) Path {
	if p == from {
		return to
	}
	suffix := string(p[len(from):])
	if from.IsRoot() {
		suffix = string(p)
	}
	if to.IsRoot() {
		return Path(suffix)
	}
	return to + Path(suffix)
}

// ComparePaths orders paths depth-first, lexicographically by segment.
//
// It is byte-wise comparison in which the separator sorts before every
// other character, so all descendants of a path form one contiguous run
// immediately after the path itself ("/a" < "/a/b" < "/a/z" < "/a-b").
func ComparePaths(a, b Path) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := pathRank(a[i]), pathRank(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func pathRank(c byte) int {
	if c == '/' {
		return -1
	}
	return int(c)
}
