package constants

import (
	"time"
)

// Transfer tuning
const (
	// ChunkSize - size of each read/write chunk for SFTP streaming (256 KiB).
	// Cancellation is checked between chunks.
	ChunkSize = 256 * 1024

	// ProgressThrottle - minimum interval between progress events for a task
	ProgressThrottle = 100 * time.Millisecond
)

// Session defaults
const (
	// DefaultPort - standard SSH port
	DefaultPort = 22

	// DialTimeout - TCP/SSH handshake timeout for Connect
	DialTimeout = 15 * time.Second

	// RemoteCommandTimeout - upper bound for remote tar/mkdir invocations
	RemoteCommandTimeout = 5 * time.Minute
)

// Remote scratch location
const (
	// DefaultScratchDir - remote directory for transient folder archives.
	// Must be writable by the login user; names are uuid-suffixed to stay
	// collision-resistant across concurrent users of the same host.
	DefaultScratchDir = "/tmp"

	// ArchiveSuffix - extension for folder transfer archives
	ArchiveSuffix = ".tar.gz"
)

// Event bus buffer sizes
const (
	// EventBusDefaultBuffer - default channel buffer per subscriber
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - cap to prevent runaway memory usage
	EventBusMaxBuffer = 4096
)
