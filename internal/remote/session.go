package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/prosftp/prosftp/internal/constants"
)

// HostKeyPolicy selects how the remote host's identity is verified.
type HostKeyPolicy string

const (
	// PolicyKnownHosts verifies the host key against a known_hosts file.
	// Unknown or mismatched keys fail with UntrustedHostError. Default.
	PolicyKnownHosts HostKeyPolicy = "known_hosts"

	// PolicyInsecureAcceptAny accepts any host key. Explicit opt-in only
	// (--insecure-host-key flag or host_key_policy = insecure-accept-any
	// in the config file).
	PolicyInsecureAcceptAny HostKeyPolicy = "insecure"
)

// Params holds everything needed to establish a session.
type Params struct {
	Host           string
	Port           int
	User           string
	Password       string
	IdentityFile   string // path to a private key, optional
	HostKeyPolicy  HostKeyPolicy
	KnownHostsFile string // defaults to ~/.ssh/known_hosts
	Timeout        time.Duration
}

// Session owns one authenticated SSH connection and its SFTP subsystem.
// At most one live connection per Session; Connect on a live session
// disconnects the previous one first.
type Session struct {
	mu     sync.Mutex
	params Params
	client *ssh.Client
	ftp    *sftp.Client
}

// NewSession returns a disconnected session.
func NewSession() *Session {
	return &Session{}
}

// Connect establishes the SSH session and opens the SFTP subsystem.
// Failures are classified: bad credentials -> AuthError, host identity ->
// UntrustedHostError, everything else -> NetworkError. No retries.
func (s *Session) Connect(ctx context.Context, p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disconnectLocked()

	if p.Port == 0 {
		p.Port = constants.DefaultPort
	}
	if p.Timeout == 0 {
		p.Timeout = constants.DialTimeout
	}
	if p.HostKeyPolicy == "" {
		p.HostKeyPolicy = PolicyKnownHosts
	}

	var auth []ssh.AuthMethod
	if p.IdentityFile != "" {
		key, err := os.ReadFile(p.IdentityFile)
		if err != nil {
			return &LocalIOError{Op: "read identity file", Path: p.IdentityFile, Err: err}
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return &AuthError{User: p.User, Err: fmt.Errorf("parse private key: %w", err)}
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if p.Password != "" {
		auth = append(auth, ssh.Password(p.Password))
	}
	if len(auth) == 0 {
		return &AuthError{User: p.User, Err: errors.New("no credentials provided")}
	}

	hostKeyCallback, err := hostKeyCallbackFor(p)
	if err != nil {
		return err
	}

	config := &ssh.ClientConfig{
		User:            p.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         p.Timeout,
	}

	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	dialer := net.Dialer{Timeout: p.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &NetworkError{Addr: addr, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		netConn.Close()
		return classifyHandshakeError(p, addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	ftp, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return &NetworkError{Addr: addr, Err: fmt.Errorf("open sftp subsystem: %w", err)}
	}

	s.params = p
	s.client = client
	s.ftp = ftp
	return nil
}

// Disconnect releases the connection. Idempotent; safe when not connected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *Session) disconnectLocked() {
	if s.ftp != nil {
		s.ftp.Close()
		s.ftp = nil
	}
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// IsConnected reports whether a live connection exists.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.ftp != nil
}

// Host returns the connected host name, empty when disconnected.
func (s *Session) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return ""
	}
	return s.params.Host
}

// User returns the authenticated user name, empty when disconnected.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return ""
	}
	return s.params.User
}

func (s *Session) sftpClient() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ftp == nil {
		return nil, ErrNotConnected
	}
	return s.ftp, nil
}

// ReadDir implements Conn.
func (s *Session) ReadDir(path string) ([]os.FileInfo, error) {
	ftp, err := s.sftpClient()
	if err != nil {
		return nil, err
	}
	return ftp.ReadDir(path)
}

// Stat implements Conn.
func (s *Session) Stat(path string) (os.FileInfo, error) {
	ftp, err := s.sftpClient()
	if err != nil {
		return nil, err
	}
	return ftp.Stat(path)
}

// MkdirAll implements Conn.
func (s *Session) MkdirAll(path string) error {
	ftp, err := s.sftpClient()
	if err != nil {
		return err
	}
	return ftp.MkdirAll(path)
}

// Open implements Conn.
func (s *Session) Open(path string) (io.ReadCloser, error) {
	ftp, err := s.sftpClient()
	if err != nil {
		return nil, err
	}
	return ftp.Open(path)
}

// Create implements Conn.
func (s *Session) Create(path string) (io.WriteCloser, error) {
	ftp, err := s.sftpClient()
	if err != nil {
		return nil, err
	}
	return ftp.Create(path)
}

// Remove implements Conn.
func (s *Session) Remove(path string) error {
	ftp, err := s.sftpClient()
	if err != nil {
		return err
	}
	return ftp.Remove(path)
}

// Exec runs a command on the remote host in a fresh SSH session and returns
// its exit code with captured stdout/stderr. Cancelling ctx closes the SSH
// session; a remote process that ignores the resulting SIGKILL keeps running
// until it finishes on its own (hard cancel requires Disconnect).
func (s *Session) Exec(ctx context.Context, command string) (int, string, string, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return 0, "", "", ErrNotConnected
	}

	sess, err := client.NewSession()
	if err != nil {
		return 0, "", "", fmt.Errorf("open ssh session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(command); err != nil {
		return 0, "", "", fmt.Errorf("start remote command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		return 0, stdout.String(), stderr.String(), ctx.Err()
	case err := <-done:
		if err == nil {
			return 0, stdout.String(), stderr.String(), nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), stdout.String(), stderr.String(), nil
		}
		return 0, stdout.String(), stderr.String(), fmt.Errorf("remote command: %w", err)
	}
}

func hostKeyCallbackFor(p Params) (ssh.HostKeyCallback, error) {
	switch p.HostKeyPolicy {
	case PolicyInsecureAcceptAny:
		return ssh.InsecureIgnoreHostKey(), nil
	case PolicyKnownHosts, "":
		file := p.KnownHostsFile
		if file == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, &UntrustedHostError{Host: p.Host, Err: fmt.Errorf("locate known_hosts: %w", err)}
			}
			file = filepath.Join(home, ".ssh", "known_hosts")
		}
		callback, err := knownhosts.New(file)
		if err != nil {
			return nil, &UntrustedHostError{Host: p.Host, Err: fmt.Errorf("load %s: %w", file, err)}
		}
		return callback, nil
	default:
		return nil, fmt.Errorf("unknown host key policy %q", p.HostKeyPolicy)
	}
}

// classifyHandshakeError maps an SSH handshake failure onto the error
// taxonomy. The ssh package does not always wrap the host key callback
// error, so the knownhosts failure is also detected by message.
func classifyHandshakeError(p Params, addr string, err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) || strings.Contains(err.Error(), "knownhosts:") ||
		strings.Contains(err.Error(), "key is unknown") {
		return &UntrustedHostError{Host: p.Host, Err: err}
	}
	if strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "no supported methods remain") {
		return &AuthError{User: p.User, Err: err}
	}
	return &NetworkError{Addr: addr, Err: err}
}
