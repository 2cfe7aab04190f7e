package remote

import (
	"path"
	"sort"
	"strings"
	"time"
)

// Entry describes a remote file or directory. Entries are reconstructed on
// every listing, never cached across navigation.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Lister queries remote directories over an established session.
type Lister struct {
	conn Conn
	root string
	gate *Gate
}

// NewLister creates a lister rooted at root ("/" when empty). Navigation
// never goes above the root.
func NewLister(conn Conn, root string) *Lister {
	if root == "" {
		root = "/"
	}
	return &Lister{conn: conn, root: NormalizePath(root)}
}

// UseGate serializes the lister against other holders of the same gate,
// typically the transfer engine on the shared connection. Listing calls
// made while the gate is held fail with ErrBusy.
func (l *Lister) UseGate(g *Gate) {
	l.gate = g
}

func (l *Lister) acquireGate() error {
	if l.gate == nil {
		return nil
	}
	return l.gate.Acquire()
}

func (l *Lister) releaseGate() {
	if l.gate != nil {
		l.gate.Release()
	}
}

// Root returns the configured navigation root.
func (l *Lister) Root() string { return l.root }

// List returns the entries of a remote directory sorted directories first,
// then case-insensitively by name, regardless of the order the server
// returns them in.
func (l *Lister) List(dir string) ([]Entry, error) {
	if err := l.acquireGate(); err != nil {
		return nil, err
	}
	defer l.releaseGate()

	dir = NormalizePath(dir)
	infos, err := l.conn.ReadDir(dir)
	if err != nil {
		return nil, &RemoteIOError{Op: "list", Path: dir, Err: err}
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:    info.Name(),
			Path:    JoinPath(dir, info.Name()),
			Size:    info.Size(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	SortEntries(entries)
	return entries, nil
}

// MakeDirectory creates dir and all missing ancestors; succeeds if the
// directory already exists.
func (l *Lister) MakeDirectory(dir string) error {
	if err := l.acquireGate(); err != nil {
		return err
	}
	defer l.releaseGate()

	dir = NormalizePath(dir)
	if err := l.conn.MkdirAll(dir); err != nil {
		return &RemoteIOError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// NavigateInto returns the path of an entry inside the current directory.
func (l *Lister) NavigateInto(currentPath, entryName string) string {
	return JoinPath(currentPath, entryName)
}

// NavigateUp returns the parent directory. Navigating at or above the
// configured root is a no-op.
func (l *Lister) NavigateUp(currentPath string) string {
	p := NormalizePath(currentPath)
	if p == l.root || !strings.HasPrefix(p, l.root) {
		return l.root
	}
	parent := ParentPath(p)
	if !strings.HasPrefix(parent, l.root) {
		return l.root
	}
	return parent
}

// SortEntries orders entries directories first, then case-insensitively by
// name for stable, predictable display.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// NormalizePath normalizes a remote path to forward-slash separators with
// duplicate slashes collapsed, regardless of the local platform.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// JoinPath joins a remote base path and an entry name with forward slashes.
func JoinPath(base, name string) string {
	base = NormalizePath(base)
	if base == "/" {
		return NormalizePath("/" + name)
	}
	return NormalizePath(base + "/" + name)
}

// ParentPath returns the parent of a normalized remote path.
func ParentPath(p string) string {
	p = NormalizePath(p)
	parent := path.Dir(p)
	if parent == "." || parent == "" {
		return "/"
	}
	return parent
}

// BaseName returns the last element of a remote path.
func BaseName(p string) string {
	return path.Base(NormalizePath(p))
}
