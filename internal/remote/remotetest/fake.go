// Package remotetest provides an in-memory remote.Conn for tests.
package remotetest

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Fake is an in-memory remote host. The zero value is unusable; use New.
type Fake struct {
	mu   sync.Mutex
	file map[string][]byte
	dir  map[string]bool

	// ExecFunc handles Exec calls. When nil, every command succeeds with
	// exit code 0 and empty output.
	ExecFunc func(command string) (int, string, string, error)

	// OnWrite is invoked after each successful chunk write to a remote
	// file. Useful for cancelling a context mid-transfer.
	OnWrite func(path string, written int)

	// OnRead mirrors OnWrite for downloads.
	OnRead func(path string, read int)

	// RemoveErr, when set, is returned by Remove (cleanup failure tests).
	RemoveErr error

	execLog []string
}

// New creates an empty fake with a root directory.
func New() *Fake {
	return &Fake{
		file: make(map[string][]byte),
		dir:  map[string]bool{"/": true},
	}
}

// AddFile seeds a remote file, creating parent directories.
func (f *Fake) AddFile(path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.file[path] = append([]byte(nil), content...)
	f.addParentsLocked(path)
}

// AddDir seeds a remote directory, creating parents.
func (f *Fake) AddDir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dir[path] = true
	f.addParentsLocked(path)
}

func (f *Fake) addParentsLocked(path string) {
	for {
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			break
		}
		path = path[:idx]
		f.dir[path] = true
	}
}

// FileContent returns a remote file's bytes and whether it exists.
func (f *Fake) FileContent(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.file[path]
	return append([]byte(nil), b...), ok
}

// Paths returns all seeded or written file paths, sorted.
func (f *Fake) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.file))
	for p := range f.file {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ExecLog returns the commands passed to Exec, in order.
func (f *Fake) ExecLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.execLog...)
}

type fakeInfo struct {
	name  string
	size  int64
	isDir bool
}

func (i fakeInfo) Name() string       { return i.name }
func (i fakeInfo) Size() int64        { return i.size }
func (i fakeInfo) Mode() os.FileMode  { return 0644 }
func (i fakeInfo) ModTime() time.Time { return time.Unix(0, 0) }
func (i fakeInfo) IsDir() bool        { return i.isDir }
func (i fakeInfo) Sys() interface{}   { return nil }

// ReadDir implements remote.Conn.
func (f *Fake) ReadDir(dir string) ([]os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dir[dir] {
		return nil, os.ErrNotExist
	}

	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	seen := make(map[string]os.FileInfo)
	for p, b := range f.file {
		if rest, ok := childName(p, prefix); ok {
			seen[rest] = fakeInfo{name: rest, size: int64(len(b))}
		}
	}
	for p := range f.dir {
		if rest, ok := childName(p, prefix); ok {
			seen[rest] = fakeInfo{name: rest, isDir: true}
		}
	}

	infos := make([]os.FileInfo, 0, len(seen))
	for _, info := range seen {
		infos = append(infos, info)
	}
	return infos, nil
}

func childName(path, prefix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) || path == prefix {
		return "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	if strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// Stat implements remote.Conn.
func (f *Fake) Stat(path string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if b, ok := f.file[path]; ok {
		return fakeInfo{name: baseName(path), size: int64(len(b))}, nil
	}
	if f.dir[path] {
		return fakeInfo{name: baseName(path), isDir: true}, nil
	}
	return nil, os.ErrNotExist
}

func baseName(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// MkdirAll implements remote.Conn.
func (f *Fake) MkdirAll(path string) error {
	f.AddDir(path)
	return nil
}

type fakeReader struct {
	fake *Fake
	path string
	r    *bytes.Reader
}

func (r *fakeReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 && r.fake.OnRead != nil {
		r.fake.OnRead(r.path, n)
	}
	return n, err
}

func (r *fakeReader) Close() error { return nil }

// Open implements remote.Conn.
func (f *Fake) Open(path string) (io.ReadCloser, error) {
	f.mu.Lock()
	b, ok := f.file[path]
	f.mu.Unlock()
	if !ok {
		return nil, os.ErrNotExist
	}
	return &fakeReader{fake: f, path: path, r: bytes.NewReader(b)}, nil
}

type fakeWriter struct {
	fake *Fake
	path string
	buf  bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	// Bytes become visible immediately so cancellation tests can observe a
	// partial remote file.
	w.fake.mu.Lock()
	w.fake.file[w.path] = append([]byte(nil), w.buf.Bytes()...)
	w.fake.addParentsLocked(w.path)
	w.fake.mu.Unlock()
	if n > 0 && w.fake.OnWrite != nil {
		w.fake.OnWrite(w.path, n)
	}
	return n, err
}

func (w *fakeWriter) Close() error { return nil }

// Create implements remote.Conn.
func (f *Fake) Create(path string) (io.WriteCloser, error) {
	f.mu.Lock()
	f.file[path] = nil
	f.addParentsLocked(path)
	f.mu.Unlock()
	return &fakeWriter{fake: f, path: path}, nil
}

// Remove implements remote.Conn.
func (f *Fake) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	if _, ok := f.file[path]; !ok {
		return os.ErrNotExist
	}
	delete(f.file, path)
	return nil
}

// Exec implements remote.Conn.
func (f *Fake) Exec(ctx context.Context, command string) (int, string, string, error) {
	f.mu.Lock()
	f.execLog = append(f.execLog, command)
	fn := f.ExecFunc
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, "", "", err
	}
	if fn != nil {
		return fn(command)
	}
	return 0, "", "", nil
}
