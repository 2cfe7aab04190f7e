// Package archive creates and extracts the gzip-compressed tar archives
// used for folder transfers, locally in-process and remotely via tar(1).
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/prosftp/prosftp/internal/localfs"
	"github.com/prosftp/prosftp/internal/remote"
)

// CompressLocal packs dirPath into a temporary .tar.gz and returns its path.
// Entries are rooted at basename(dirPath), so extracting the archive
// elsewhere recreates the folder under its own name. The caller owns the
// returned file and must remove it.
func CompressLocal(dirPath string) (string, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return "", &remote.LocalIOError{Op: "stat", Path: dirPath, Err: err}
	}
	if !info.IsDir() {
		return "", &remote.LocalIOError{Op: "compress", Path: dirPath, Err: fmt.Errorf("not a directory")}
	}

	base := filepath.Base(filepath.Clean(dirPath))
	tmp, err := os.CreateTemp("", "prosftp_*_"+base+".tar.gz")
	if err != nil {
		return "", &remote.LocalIOError{Op: "create temp archive", Path: base, Err: err}
	}

	if err := writeTarGz(tmp, dirPath, base); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &remote.LocalIOError{Op: "compress", Path: dirPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", &remote.LocalIOError{Op: "compress", Path: dirPath, Err: err}
	}
	return tmp.Name(), nil
}

func writeTarGz(out io.Writer, dirPath, base string) error {
	gzWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzWriter)

	err := localfs.Walk(dirPath, localfs.WalkOptions{IncludeHidden: true}, func(entry localfs.FileEntry) error {
		if entry.Path == dirPath {
			return nil
		}
		rel, err := filepath.Rel(dirPath, entry.Path)
		if err != nil {
			return err
		}
		name := path.Join(base, filepath.ToSlash(rel))

		header := &tar.Header{
			Name:    name,
			Mode:    int64(entry.Mode.Perm()),
			ModTime: entry.ModTime,
		}
		if entry.IsDir {
			header.Typeflag = tar.TypeDir
			header.Name += "/"
			return tarWriter.WriteHeader(header)
		}
		if !entry.Mode.IsRegular() {
			// Symlinks and devices are not carried over the wire.
			return nil
		}

		header.Typeflag = tar.TypeReg
		header.Size = entry.Size
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		file, err := os.Open(entry.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tarWriter, file)
		return err
	})
	if err != nil {
		return err
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzWriter.Close()
}

// ExtractLocal unpacks a .tar.gz into destDir. Entries that would escape
// destDir are rejected.
func ExtractLocal(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return &remote.LocalIOError{Op: "open archive", Path: archivePath, Err: err}
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return &remote.LocalIOError{Op: "extract", Path: archivePath, Err: err}
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &remote.LocalIOError{Op: "extract", Path: archivePath, Err: err}
		}

		name := filepath.FromSlash(header.Name)
		if !filepath.IsLocal(name) {
			return &remote.LocalIOError{Op: "extract", Path: archivePath,
				Err: fmt.Errorf("archive entry escapes destination: %q", header.Name)}
		}
		target := filepath.Join(destDir, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode).Perm()|0700); err != nil {
				return &remote.LocalIOError{Op: "extract", Path: target, Err: err}
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return &remote.LocalIOError{Op: "extract", Path: target, Err: err}
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return &remote.LocalIOError{Op: "extract", Path: target, Err: err}
			}
			if _, err := io.Copy(out, tarReader); err != nil {
				out.Close()
				return &remote.LocalIOError{Op: "extract", Path: target, Err: err}
			}
			if err := out.Close(); err != nil {
				return &remote.LocalIOError{Op: "extract", Path: target, Err: err}
			}
		default:
			// Other entry types are skipped.
		}
	}
}

// shellQuote single-quotes s for safe interpolation into a remote shell
// command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
