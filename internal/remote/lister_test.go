package remote_test

import (
	"errors"
	"testing"

	"github.com/prosftp/prosftp/internal/remote"
	"github.com/prosftp/prosftp/internal/remote/remotetest"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"//", "/"},
		{"/home//user/", "/home/user"},
		{"\\home\\user", "/home/user"},
		{"/a/b/c", "/a/b/c"},
	}
	for _, tt := range tests {
		if got := remote.NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		base, name, want string
	}{
		{"/", "etc", "/etc"},
		{"/home", "user", "/home/user"},
		{"/home/", "user", "/home/user"},
		{"/home//", "docs", "/home/docs"},
	}
	for _, tt := range tests {
		if got := remote.JoinPath(tt.base, tt.name); got != tt.want {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", tt.base, tt.name, got, tt.want)
		}
	}
}

func TestNavigateUpInvertsNavigateInto(t *testing.T) {
	lister := remote.NewLister(remotetest.New(), "/")

	paths := []string{"/", "/home", "/var/log"}
	names := []string{"dir", "some file.txt", "UPPER"}
	for _, p := range paths {
		for _, name := range names {
			down := lister.NavigateInto(p, name)
			if got := lister.NavigateUp(down); got != remote.NormalizePath(p) {
				t.Errorf("NavigateUp(NavigateInto(%q, %q)) = %q, want %q", p, name, got, p)
			}
		}
	}
}

func TestNavigateUpStopsAtRoot(t *testing.T) {
	lister := remote.NewLister(remotetest.New(), "/srv/data")

	if got := lister.NavigateUp("/srv/data"); got != "/srv/data" {
		t.Errorf("NavigateUp at root = %q, want root unchanged", got)
	}
	if got := lister.NavigateUp("/srv/data/sub"); got != "/srv/data" {
		t.Errorf("NavigateUp(/srv/data/sub) = %q, want /srv/data", got)
	}
	// A path outside the root clamps back to it.
	if got := lister.NavigateUp("/etc"); got != "/srv/data" {
		t.Errorf("NavigateUp(/etc) = %q, want /srv/data", got)
	}
}

func TestListSortsDirectoriesFirstCaseInsensitive(t *testing.T) {
	fake := remotetest.New()
	fake.AddFile("/data/zeta.txt", []byte("z"))
	fake.AddFile("/data/Alpha.txt", []byte("a"))
	fake.AddDir("/data/beta")
	fake.AddDir("/data/Gamma")
	fake.AddFile("/data/beta/nested.txt", []byte("n"))

	lister := remote.NewLister(fake, "/")
	entries, err := lister.List("/data")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	want := []string{"beta", "Gamma", "Alpha.txt", "zeta.txt"}
	if len(got) != len(want) {
		t.Fatalf("List returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q (full order %v)", i, got[i], want[i], got)
		}
	}

	for _, e := range entries {
		if e.Path != remote.JoinPath("/data", e.Name) {
			t.Errorf("entry %q has path %q", e.Name, e.Path)
		}
	}
}

func TestListMissingDirectoryIsRemoteIOError(t *testing.T) {
	lister := remote.NewLister(remotetest.New(), "/")

	_, err := lister.List("/nope")
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	var ioErr *remote.RemoteIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected RemoteIOError, got %T: %v", err, err)
	}
	if ioErr.Path != "/nope" {
		t.Errorf("error path = %q, want /nope", ioErr.Path)
	}
}

func TestListerGateSerializesOperations(t *testing.T) {
	fake := remotetest.New()
	fake.AddDir("/data")
	lister := remote.NewLister(fake, "/")
	gate := remote.NewGate()
	lister.UseGate(gate)

	if err := gate.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := lister.List("/data"); !errors.Is(err, remote.ErrBusy) {
		t.Errorf("List while gate held = %v, want ErrBusy", err)
	}
	if err := lister.MakeDirectory("/data/new"); !errors.Is(err, remote.ErrBusy) {
		t.Errorf("MakeDirectory while gate held = %v, want ErrBusy", err)
	}

	gate.Release()
	if _, err := lister.List("/data"); err != nil {
		t.Errorf("List after release: %v", err)
	}
}

func TestMakeDirectoryIsIdempotent(t *testing.T) {
	fake := remotetest.New()
	lister := remote.NewLister(fake, "/")

	if err := lister.MakeDirectory("/a/b/c"); err != nil {
		t.Fatalf("MakeDirectory failed: %v", err)
	}
	if err := lister.MakeDirectory("/a/b/c"); err != nil {
		t.Fatalf("MakeDirectory on existing dir failed: %v", err)
	}
	if _, err := fake.Stat("/a/b"); err != nil {
		t.Error("expected intermediate directory /a/b to exist")
	}
}
