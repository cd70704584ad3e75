// Package mergeinfo models the per-path revision-range provenance that
// rides along with every copy: a mapping from repository-relative path to
// the list of revision ranges merged into (or implied for) that path.
//
// Storage is a radix tree keyed on path, the same typed-wrapper-over-a-
// generic-tree pattern the teacher uses for its project-root lookups, here
// applied to path-segment data instead of project identifiers.
package mergeinfo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/armon/go-radix"
	"github.com/pkg/errors"
)

// Range is a half-open-on-the-left revision range: (Start, End], matching
// Subversion's mergeinfo convention where a range "r5:r10" means revisions
// 6 through 10 were merged.
type Range struct {
	Start int64
	End   int64
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// RangeList is a sorted, non-overlapping set of Ranges for one path.
type RangeList []Range

// union returns a new RangeList holding the ranges of both a and b,
// coalescing overlapping or adjacent ranges.
// Both inputs must already be individually sorted and non-overlapping.
func union(a, b RangeList) RangeList {
	all := make(RangeList, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	if len(all) == 0 {
		return all
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	out := make(RangeList, 0, len(all))
	cur := all[0]
	for _, r := range all[1:] {
		if r.Start <= cur.End {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

func (rl RangeList) String() string {
	parts := make([]string, len(rl))
	for i, r := range rl {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Mergeinfo is the path -> RangeList mapping. The zero value is not usable;
// call New.
type Mergeinfo struct {
	t *radix.Tree
}

// New returns an empty Mergeinfo.
func New() Mergeinfo {
	return Mergeinfo{t: radix.New()}
}

func normPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	return strings.TrimSuffix(path, "/")
}

// IsEmpty reports whether the mapping carries no ranges at all.
func (m Mergeinfo) IsEmpty() bool {
	return m.t == nil || m.t.Len() == 0
}

// Set replaces the range list recorded for path.
func (m Mergeinfo) Set(path string, rl RangeList) {
	if len(rl) == 0 {
		return
	}
	m.t.Insert(normPath(path), rl)
}

// Get returns the range list for path, if any.
func (m Mergeinfo) Get(path string) (RangeList, bool) {
	v, ok := m.t.Get(normPath(path))
	if !ok {
		return nil, false
	}
	return v.(RangeList), true
}

// Walk visits every path in the mapping in lexical order.
func (m Mergeinfo) Walk(fn func(path string, rl RangeList)) {
	m.t.Walk(func(s string, v interface{}) bool {
		fn(s, v.(RangeList))
		return false
	})
}

// Merge returns the union of m and other: every path present in either
// carries the coalesced range list from both.
func (m Mergeinfo) Merge(other Mergeinfo) Mergeinfo {
	out := New()
	m.Walk(func(path string, rl RangeList) { out.Set(path, rl) })
	other.Walk(func(path string, rl RangeList) {
		if existing, ok := out.Get(path); ok {
			out.Set(path, union(existing, rl))
		} else {
			out.Set(path, rl)
		}
	})
	return out
}

// String serializes in the standard "path:range,range\npath:range" text
// form, paths sorted for deterministic output.
func (m Mergeinfo) String() string {
	var lines []string
	m.Walk(func(path string, rl RangeList) {
		lines = append(lines, "/"+path+":"+rl.String())
	})
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// Parse is the reference implementation of the mergeinfo text-form parser.
// The core copy/move logic treats mergeinfo parsing as an external
// collaborator (see wc.Client.ParseMergeinfo); this is the concrete
// implementation the reference wc clients delegate to.
func Parse(text string) (Mergeinfo, error) {
	m := New()
	text = strings.TrimSpace(text)
	if text == "" {
		return m, nil
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			return Mergeinfo{}, errors.Errorf("malformed mergeinfo line %q: missing ':'", line)
		}
		path, rangesStr := line[:idx], line[idx+1:]
		var rl RangeList
		for _, rs := range strings.Split(rangesStr, ",") {
			rs = strings.TrimSuffix(rs, "*") // inheritable marker, not tracked here
			parts := strings.SplitN(rs, "-", 2)
			start, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				return Mergeinfo{}, errors.Wrapf(err, "malformed mergeinfo range %q", rs)
			}
			end := start
			if len(parts) == 2 {
				end, err = strconv.ParseInt(parts[1], 10, 64)
				if err != nil {
					return Mergeinfo{}, errors.Wrapf(err, "malformed mergeinfo range %q", rs)
				}
			}
			rl = append(rl, Range{Start: start, End: end})
		}
		sort.Slice(rl, func(i, j int) bool { return rl[i].Start < rl[j].Start })
		m.Set(path, union(rl, nil))
	}
	return m, nil
}
