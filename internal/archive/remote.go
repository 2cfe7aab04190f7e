package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prosftp/prosftp/internal/constants"
	"github.com/prosftp/prosftp/internal/remote"
)

// CompressRemote packs a remote directory into destArchivePath by running
// tar(1) on the host. The archive is rooted at the directory's basename.
func CompressRemote(ctx context.Context, conn remote.Conn, dirPath, destArchivePath string) error {
	parent := remote.ParentPath(dirPath)
	base := remote.BaseName(dirPath)
	command := fmt.Sprintf("tar -czf %s -C %s %s",
		shellQuote(destArchivePath), shellQuote(parent), shellQuote(base))
	return runRemote(ctx, conn, command)
}

// ExtractRemote unpacks a remote .tar.gz into destDir and removes the
// archive in the same invocation, so a successful extract never leaves the
// tarball behind.
func ExtractRemote(ctx context.Context, conn remote.Conn, archivePath, destDir string) error {
	command := fmt.Sprintf("tar -xzf %s -C %s && rm -f %s",
		shellQuote(archivePath), shellQuote(destDir), shellQuote(archivePath))
	return runRemote(ctx, conn, command)
}

// RemoveRemote deletes a remote file. It is used for scratch cleanup;
// callers treat failures as non-fatal and only log them.
func RemoveRemote(ctx context.Context, conn remote.Conn, path string) error {
	return runRemote(ctx, conn, "rm -f "+shellQuote(path))
}

func runRemote(ctx context.Context, conn remote.Conn, command string) error {
	exitCode, _, stderr, err := conn.Exec(ctx, command)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return &remote.RemoteCommandError{Command: command, ExitCode: exitCode, Stderr: stderr}
	}
	return nil
}

// ScratchArchivePath returns a collision-resistant path under scratchDir
// for a folder's transfer archive.
func ScratchArchivePath(scratchDir, folderName string) string {
	name := fmt.Sprintf("%s_%s%s", folderName, uuid.NewString(), constants.ArchiveSuffix)
	return remote.JoinPath(scratchDir, name)
}
