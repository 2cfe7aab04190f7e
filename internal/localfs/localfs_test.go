package localfs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestListDirectorySortedDirsFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zebra.txt"), "z")
	writeFile(t, filepath.Join(dir, "Apple.txt"), "a")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "Beta"), 0755); err != nil {
		t.Fatal(err)
	}

	entries, err := ListDirectory(dir, ListOptions{})
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}

	want := []string{"Beta", "sub", "Apple.txt", "zebra.txt"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Name, name)
		}
	}
}

func TestListDirectoryHiddenFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".secret"), "s")
	writeFile(t, filepath.Join(dir, "visible"), "v")

	entries, err := ListDirectory(dir, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "visible" {
		t.Errorf("expected only 'visible', got %v", entries)
	}

	entries, err = ListDirectory(dir, ListOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with IncludeHidden, got %d", len(entries))
	}
}

func TestWalkFilesVisitsNestedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "sub", "deep", "c.txt"), "c")

	var visited []string
	err := WalkFiles(dir, WalkOptions{IncludeHidden: true}, func(entry FileEntry) error {
		rel, err := filepath.Rel(dir, entry.Path)
		if err != nil {
			return err
		}
		visited = append(visited, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("WalkFiles failed: %v", err)
	}

	want := map[string]bool{"a.txt": true, "sub/b.txt": true, "sub/deep/c.txt": true}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want keys of %v", visited, want)
	}
	for _, v := range visited {
		if !want[v] {
			t.Errorf("unexpected visit %q", v)
		}
	}
}

func TestWalkSkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git", "config"), "x")
	writeFile(t, filepath.Join(dir, "keep.txt"), "k")

	var visited []string
	err := WalkFiles(dir, WalkOptions{SkipHiddenDirs: true}, func(entry FileEntry) error {
		visited = append(visited, entry.Name)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(visited) != 1 || visited[0] != "keep.txt" {
		t.Errorf("expected only keep.txt, got %v", visited)
	}
}

func TestIsHiddenName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".bashrc", true},
		{"file.txt", false},
		{".", false},
		{"..", false},
	}
	for _, tt := range tests {
		if got := IsHiddenName(tt.name); got != tt.want {
			t.Errorf("IsHiddenName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
