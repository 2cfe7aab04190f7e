package remote

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyHandshakeError(t *testing.T) {
	p := Params{Host: "example.com", User: "alice"}

	tests := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{
			name: "wrong password",
			err:  errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"),
			want: func(err error) bool {
				var authErr *AuthError
				return errors.As(err, &authErr) && authErr.User == "alice"
			},
		},
		{
			name: "no methods remain",
			err:  errors.New("ssh: handshake failed: ssh: no supported methods remain"),
			want: func(err error) bool {
				var authErr *AuthError
				return errors.As(err, &authErr)
			},
		},
		{
			name: "unknown host key",
			err:  errors.New("ssh: handshake failed: knownhosts: key is unknown"),
			want: func(err error) bool {
				var hostErr *UntrustedHostError
				return errors.As(err, &hostErr) && hostErr.Host == "example.com"
			},
		},
		{
			name: "connection reset",
			err:  errors.New("read tcp: connection reset by peer"),
			want: func(err error) bool {
				var netErr *NetworkError
				return errors.As(err, &netErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyHandshakeError(p, "example.com:22", tt.err)
			if !tt.want(got) {
				t.Errorf("classifyHandshakeError(%v) = %T %v", tt.err, got, got)
			}
		})
	}
}

func TestHostKeyCallbackRejectsUnknownPolicy(t *testing.T) {
	_, err := hostKeyCallbackFor(Params{Host: "h", HostKeyPolicy: "trust-everyone"})
	if err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestHostKeyCallbackInsecureOptIn(t *testing.T) {
	cb, err := hostKeyCallbackFor(Params{Host: "h", HostKeyPolicy: PolicyInsecureAcceptAny})
	if err != nil {
		t.Fatalf("insecure policy should not error: %v", err)
	}
	if cb == nil {
		t.Fatal("expected a callback")
	}
}

func TestHostKeyCallbackMissingKnownHostsFile(t *testing.T) {
	_, err := hostKeyCallbackFor(Params{
		Host:           "h",
		HostKeyPolicy:  PolicyKnownHosts,
		KnownHostsFile: "/nonexistent/known_hosts",
	})
	var hostErr *UntrustedHostError
	if !errors.As(err, &hostErr) {
		t.Fatalf("expected UntrustedHostError, got %T: %v", err, err)
	}
}

func TestDisconnectedSession(t *testing.T) {
	s := NewSession()

	if s.IsConnected() {
		t.Error("new session should not be connected")
	}

	// Disconnect is idempotent and safe when not connected.
	s.Disconnect()
	s.Disconnect()

	if _, err := s.ReadDir("/"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ReadDir on disconnected session: got %v, want ErrNotConnected", err)
	}
	if err := s.MkdirAll("/x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("MkdirAll on disconnected session: got %v, want ErrNotConnected", err)
	}
	if s.Host() != "" || s.User() != "" {
		t.Error("disconnected session should report empty host and user")
	}
}

func TestConnectRequiresCredentials(t *testing.T) {
	s := NewSession()
	err := s.Connect(context.Background(), Params{Host: "example.com", User: "bob"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for missing credentials, got %T: %v", err, err)
	}
	if s.IsConnected() {
		t.Error("failed connect must not leave a live connection")
	}
}
