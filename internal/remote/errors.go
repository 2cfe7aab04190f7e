// Package remote owns the SSH/SFTP session, remote directory listing, and
// the error taxonomy for everything that touches the remote host.
package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by session and engine operations.
var (
	// ErrNotConnected is returned when a remote operation is attempted
	// without a live session.
	ErrNotConnected = errors.New("not connected")

	// ErrBusy is returned when an operation is rejected because a transfer
	// task is already in flight on the session. Operations are rejected,
	// never queued.
	ErrBusy = errors.New("a transfer is already in progress")

	// ErrCancelled marks a user-initiated cancellation. It is an outcome,
	// not a failure.
	ErrCancelled = errors.New("cancelled")
)

// AuthError indicates rejected credentials or an unsupported auth method.
type AuthError struct {
	User string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %q: %v", e.User, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError indicates a connect, timeout, or reset failure.
type NetworkError struct {
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error connecting to %s: %v", e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UntrustedHostError indicates the host key was unknown or mismatched under
// the configured verification policy. Auto-trusting unknown hosts is an
// explicit configuration choice (PolicyInsecureAcceptAny), never a default.
type UntrustedHostError struct {
	Host string
	Err  error
}

func (e *UntrustedHostError) Error() string {
	return fmt.Sprintf("host key verification failed for %s: %v", e.Host, e.Err)
}

func (e *UntrustedHostError) Unwrap() error { return e.Err }

// RemoteIOError indicates a remote filesystem failure (path not found,
// permission denied).
type RemoteIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *RemoteIOError) Error() string {
	return fmt.Sprintf("remote %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteIOError) Unwrap() error { return e.Err }

// LocalIOError indicates a local filesystem failure (disk full, permission
// denied).
type LocalIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("local %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error { return e.Err }

// RemoteCommandError carries the non-zero exit of a remote shell invocation
// together with its captured stderr.
type RemoteCommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *RemoteCommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("remote command exited %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("remote command exited %d: %s", e.ExitCode, e.Command)
}
