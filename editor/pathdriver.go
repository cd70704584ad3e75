package editor

import (
	"sort"
	"strings"
)

// depthDriver is the reference PathDriver: it sorts the input paths by
// depth (number of path segments) and then lexically within a depth, which
// is sufficient to guarantee parent-before-child visitation without
// needing to materialize a tree.
type depthDriver struct{}

// NewPathDriver returns the reference path driver, which visits paths
// shallowest level first.
func NewPathDriver() PathDriver {
	return depthDriver{}
}

func depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

func (depthDriver) Drive(root DirBaton, paths []string, fn VisitFunc) error {
	uniq := make(map[string]bool, len(paths))
	ordered := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue // never input; guarded by caller
		}
		if !uniq[p] {
			uniq[p] = true
			ordered = append(ordered, p)
		}
	}

	sort.Slice(ordered, func(i, j int) bool {
		di, dj := depth(ordered[i]), depth(ordered[j])
		if di != dj {
			return di < dj
		}
		return ordered[i] < ordered[j]
	})

	// batons tracks the open directory baton for every path that was
	// itself opened as a directory during this drive, so descendants can
	// be handed their real parent baton instead of the anchor.
	batons := make(map[string]DirBaton, len(ordered))
	parentOf := func(path string) DirBaton {
		idx := strings.LastIndex(path, "/")
		if idx < 0 {
			return root
		}
		if b, ok := batons[path[:idx]]; ok {
			return b
		}
		return root
	}

	for _, path := range ordered {
		db, err := fn(path, parentOf(path))
		if err != nil {
			return err
		}
		if db != nil {
			batons[path] = db
		}
	}
	return nil
}
