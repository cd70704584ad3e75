package editor

import "testing"

func TestDriveVisitsParentsBeforeChildren(t *testing.T) {
	paths := []string{"a/b/c", "a", "a/b", "z", "a/b/d"}
	var visited []string
	parents := map[string]DirBaton{}

	d := NewPathDriver()
	err := d.Drive("root", paths, func(path string, parent DirBaton) (DirBaton, error) {
		visited = append(visited, path)
		parents[path] = parent
		return path, nil
	})
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}

	pos := func(p string) int {
		for i, v := range visited {
			if v == p {
				return i
			}
		}
		t.Fatalf("path %q never visited", p)
		return -1
	}

	if pos("a") >= pos("a/b") {
		t.Fatal("a must be visited before a/b")
	}
	if pos("a/b") >= pos("a/b/c") || pos("a/b") >= pos("a/b/d") {
		t.Fatal("a/b must be visited before its children")
	}
	if parents["a/b/c"] != "a/b" {
		t.Fatalf("a/b/c should see a/b's baton as parent, got %v", parents["a/b/c"])
	}
	if parents["a"] != "root" {
		t.Fatalf("top-level a should see the root baton, got %v", parents["a"])
	}
	if parents["z"] != "root" {
		t.Fatalf("z should see the root baton, got %v", parents["z"])
	}
}

func TestDriveDedupesPaths(t *testing.T) {
	var count int
	d := NewPathDriver()
	err := d.Drive(nil, []string{"a", "a", "a/b"}, func(path string, parent DirBaton) (DirBaton, error) {
		count++
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 visits after dedup, got %d", count)
	}
}

func TestDrivePropagatesCallbackError(t *testing.T) {
	d := NewPathDriver()
	boom := errString("boom")
	err := d.Drive(nil, []string{"a"}, func(path string, parent DirBaton) (DirBaton, error) {
		return nil, boom
	})
	if err != boom {
		t.Fatalf("Drive() = %v, want %v", err, boom)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
