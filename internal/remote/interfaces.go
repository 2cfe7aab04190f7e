package remote

import (
	"context"
	"io"
	"os"
)

// Conn is the remote protocol collaborator consumed by the lister, the
// archive helper, and the transfer engine. *Session implements it; tests
// substitute an in-memory fake.
type Conn interface {
	// ReadDir lists entries with stat information for a remote directory.
	ReadDir(path string) ([]os.FileInfo, error)

	// Stat returns file information for a remote path.
	Stat(path string) (os.FileInfo, error)

	// MkdirAll creates a directory and all missing ancestors. Succeeds if
	// the directory already exists.
	MkdirAll(path string) error

	// Open opens a remote file for reading.
	Open(path string) (io.ReadCloser, error)

	// Create opens a remote file for writing, truncating any existing file.
	Create(path string) (io.WriteCloser, error)

	// Remove deletes a remote file.
	Remove(path string) error

	// Exec runs a shell command on the remote host and returns its exit
	// code with captured stdout and stderr. A non-zero exit code is not an
	// error at this layer; err reports transport failures only.
	Exec(ctx context.Context, command string) (exitCode int, stdout, stderr string, err error)
}
