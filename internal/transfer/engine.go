package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prosftp/prosftp/internal/archive"
	"github.com/prosftp/prosftp/internal/constants"
	"github.com/prosftp/prosftp/internal/events"
	"github.com/prosftp/prosftp/internal/remote"
)

// Stage names carried on progress events for multi-step folder transfers.
const (
	StageCompress = "compress"
	StageTransfer = "transfer"
	StageExtract  = "extract"
	StageCleanup  = "cleanup"
)

// Engine runs transfer tasks against a connected session, strictly one at a
// time. A second operation started while one is in flight is rejected with
// remote.ErrBusy; nothing is queued behind the caller's back. The same gate
// serializes everything else sharing the connection, such as a Lister bound
// to it via UseGate.
type Engine struct {
	conn       remote.Conn
	bus        *events.Bus
	gate       *remote.Gate
	scratchDir string

	mu      sync.Mutex
	current *Task
}

// NewEngine creates an engine publishing to bus. Remote scratch archives for
// folder downloads are placed under the default scratch directory.
func NewEngine(conn remote.Conn, bus *events.Bus) *Engine {
	return &Engine{
		conn:       conn,
		bus:        bus,
		gate:       remote.NewGate(),
		scratchDir: constants.DefaultScratchDir,
	}
}

// Gate exposes the engine's connection gate so other collaborators on the
// same connection can be serialized against in-flight transfers.
func (e *Engine) Gate() *remote.Gate {
	return e.gate
}

// SetScratchDir overrides the remote directory used for folder-download
// scratch archives.
func (e *Engine) SetScratchDir(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dir != "" {
		e.scratchDir = dir
	}
}

// CurrentTask returns the task in flight, or nil when the engine is idle.
func (e *Engine) CurrentTask() *Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) acquire() error {
	return e.gate.Acquire()
}

func (e *Engine) release() {
	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()
	e.gate.Release()
}

func (e *Engine) setCurrent(task *Task) {
	e.mu.Lock()
	e.current = task
	e.mu.Unlock()
}

// UploadFile copies a single local file into remoteDir, keeping its name.
// It blocks until the task reaches a terminal state and returns the task
// alongside the terminal error, if any.
func (e *Engine) UploadFile(ctx context.Context, localPath, remoteDir string) (*Task, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	task := e.begin(ctx, KindUploadFile, filepath.Base(localPath), localPath, remoteDir)
	return task, e.finish(task, e.runUploadFile(task, localPath, remoteDir))
}

// DownloadFile copies a single remote file into localDir, keeping its name.
func (e *Engine) DownloadFile(ctx context.Context, remotePath, localDir string) (*Task, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	task := e.begin(ctx, KindDownloadFile, remote.BaseName(remotePath), remotePath, localDir)
	return task, e.finish(task, e.runDownloadFile(task, remotePath, localDir))
}

// UploadFiles uploads several local files into remoteDir sequentially under
// a single busy slot. It stops at the first failure or cancellation and
// returns the tasks created so far, each with its own terminal event.
func (e *Engine) UploadFiles(ctx context.Context, localPaths []string, remoteDir string) ([]*Task, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	batchID := uuid.NewString()
	tasks := make([]*Task, 0, len(localPaths))
	for _, localPath := range localPaths {
		task := e.beginBatch(ctx, KindUploadFile, filepath.Base(localPath), localPath, remoteDir, batchID)
		tasks = append(tasks, task)
		if err := e.finish(task, e.runUploadFile(task, localPath, remoteDir)); err != nil {
			return tasks, err
		}
	}
	return tasks, nil
}

// DownloadFiles downloads several remote files into localDir sequentially
// under a single busy slot, stopping at the first failure or cancellation.
func (e *Engine) DownloadFiles(ctx context.Context, remotePaths []string, localDir string) ([]*Task, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	batchID := uuid.NewString()
	tasks := make([]*Task, 0, len(remotePaths))
	for _, remotePath := range remotePaths {
		task := e.beginBatch(ctx, KindDownloadFile, remote.BaseName(remotePath), remotePath, localDir, batchID)
		tasks = append(tasks, task)
		if err := e.finish(task, e.runDownloadFile(task, remotePath, localDir)); err != nil {
			return tasks, err
		}
	}
	return tasks, nil
}

// UploadFolder transfers a local directory tree as a single .tar.gz archive.
// With extract set, the archive is unpacked on the host into remoteDir and
// removed, leaving the folder under its own name; otherwise the archive
// itself is left in remoteDir.
func (e *Engine) UploadFolder(ctx context.Context, localDir, remoteDir string, extract bool) (*Task, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	task := e.begin(ctx, KindUploadFolder, filepath.Base(filepath.Clean(localDir)), localDir, remoteDir)
	return task, e.finish(task, e.runUploadFolder(task, localDir, remoteDir, extract))
}

// DownloadFolder transfers a remote directory tree as a single .tar.gz
// archive packed on the host under the scratch directory. With extract set,
// the archive is unpacked into localDir and removed; otherwise it is kept
// as <name>.tar.gz in localDir. The remote scratch archive is removed in
// both cases.
func (e *Engine) DownloadFolder(ctx context.Context, remoteDir, localDir string, extract bool) (*Task, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.release()

	task := e.begin(ctx, KindDownloadFolder, remote.BaseName(remoteDir), remoteDir, localDir)
	return task, e.finish(task, e.runDownloadFolder(task, remoteDir, localDir, extract))
}

func (e *Engine) begin(ctx context.Context, kind TaskKind, name, source, dest string) *Task {
	return e.beginBatch(ctx, kind, name, source, dest, "")
}

func (e *Engine) beginBatch(ctx context.Context, kind TaskKind, name, source, dest, batchID string) *Task {
	task := newTask(ctx, kind, name, source, dest)
	task.BatchID = batchID
	e.setCurrent(task)
	e.publish(task, events.EventTransferQueued, "")
	return task
}

// finish drives the task to its terminal state and publishes exactly one
// terminal event. Cancellation surfaces as remote.ErrCancelled.
func (e *Engine) finish(task *Task, err error) error {
	switch {
	case err == nil:
		task.setState(TaskCompleted)
		e.publish(task, events.EventTransferCompleted, "")
		return nil
	case isCancelled(err):
		task.setState(TaskCancelled)
		e.publish(task, events.EventTransferCancelled, "")
		return remote.ErrCancelled
	default:
		task.setErr(err)
		task.setState(TaskFailed)
		e.publish(task, events.EventTransferFailed, "")
		return err
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, remote.ErrCancelled)
}

func (e *Engine) publish(task *Task, eventType events.EventType, stage string) {
	done, total := task.Bytes()
	e.bus.Publish(&events.TransferEvent{
		BaseEvent:  events.BaseEvent{EventType: eventType, Time: time.Now()},
		TaskID:     task.ID,
		BatchID:    task.BatchID,
		Kind:       string(task.Kind),
		Name:       task.Name,
		Stage:      stage,
		BytesDone:  done,
		BytesTotal: total,
		Speed:      task.Speed(),
		Err:        task.Err(),
	})
}

func (e *Engine) runUploadFile(task *Task, localPath, remoteDir string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return &remote.LocalIOError{Op: "stat", Path: localPath, Err: err}
	}
	if info.IsDir() {
		return &remote.LocalIOError{Op: "upload", Path: localPath,
			Err: fmt.Errorf("is a directory, use a folder upload")}
	}
	task.setTotal(info.Size())

	if err := e.conn.MkdirAll(remoteDir); err != nil {
		return &remote.RemoteIOError{Op: "mkdir", Path: remoteDir, Err: err}
	}
	remotePath := remote.JoinPath(remoteDir, filepath.Base(localPath))
	return e.streamUpload(task, localPath, remotePath)
}

func (e *Engine) runDownloadFile(task *Task, remotePath, localDir string) error {
	info, err := e.conn.Stat(remotePath)
	if err != nil {
		return &remote.RemoteIOError{Op: "stat", Path: remotePath, Err: err}
	}
	if info.IsDir() {
		return &remote.RemoteIOError{Op: "download", Path: remotePath,
			Err: fmt.Errorf("is a directory, use a folder download")}
	}
	task.setTotal(info.Size())

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return &remote.LocalIOError{Op: "mkdir", Path: localDir, Err: err}
	}
	localPath := filepath.Join(localDir, remote.BaseName(remotePath))
	return e.streamDownload(task, remotePath, localPath)
}

func (e *Engine) runUploadFolder(task *Task, localDir, remoteDir string, extract bool) error {
	base := filepath.Base(filepath.Clean(localDir))

	e.bus.PublishLog(events.InfoLevel, "compressing "+localDir, task.ID, nil)
	e.publish(task, events.EventTransferProgress, StageCompress)
	archivePath, err := archive.CompressLocal(localDir)
	if err != nil {
		return err
	}
	defer e.removeLocalScratch(task, archivePath)

	info, err := os.Stat(archivePath)
	if err != nil {
		return &remote.LocalIOError{Op: "stat", Path: archivePath, Err: err}
	}
	task.setTotal(info.Size())

	if err := e.conn.MkdirAll(remoteDir); err != nil {
		return &remote.RemoteIOError{Op: "mkdir", Path: remoteDir, Err: err}
	}

	var remoteArchive string
	if extract {
		remoteArchive = archive.ScratchArchivePath(remoteDir, base)
	} else {
		remoteArchive = remote.JoinPath(remoteDir, base+constants.ArchiveSuffix)
	}
	if err := e.streamUpload(task, archivePath, remoteArchive); err != nil {
		return err
	}
	if !extract {
		return nil
	}

	e.bus.PublishLog(events.InfoLevel, "extracting on remote host into "+remoteDir, task.ID, nil)
	e.publish(task, events.EventTransferProgress, StageExtract)
	if err := archive.ExtractRemote(task.Context(), e.conn, remoteArchive, remoteDir); err != nil {
		// The uploaded archive is kept so the failure can be inspected
		// remotely; extraction removes it only on success.
		e.bus.PublishLog(events.WarnLevel,
			"extraction failed, remote archive kept at "+remoteArchive, task.ID, err)
		return err
	}
	return nil
}

func (e *Engine) runDownloadFolder(task *Task, remoteDir, localDir string, extract bool) error {
	base := remote.BaseName(remoteDir)
	remoteArchive := archive.ScratchArchivePath(e.scratchDir, base)

	e.bus.PublishLog(events.InfoLevel, "compressing "+remoteDir+" on remote host", task.ID, nil)
	e.publish(task, events.EventTransferProgress, StageCompress)
	if err := archive.CompressRemote(task.Context(), e.conn, remoteDir, remoteArchive); err != nil {
		return err
	}
	defer e.removeRemoteScratch(task, remoteArchive)

	info, err := e.conn.Stat(remoteArchive)
	if err != nil {
		return &remote.RemoteIOError{Op: "stat", Path: remoteArchive, Err: err}
	}
	task.setTotal(info.Size())

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return &remote.LocalIOError{Op: "mkdir", Path: localDir, Err: err}
	}

	localArchive := filepath.Join(localDir, base+constants.ArchiveSuffix)
	if extract {
		tmp, err := os.CreateTemp("", "prosftp_*_"+base+constants.ArchiveSuffix)
		if err != nil {
			return &remote.LocalIOError{Op: "create temp archive", Path: base, Err: err}
		}
		tmp.Close()
		localArchive = tmp.Name()
	}
	if err := e.streamDownload(task, remoteArchive, localArchive); err != nil {
		if extract {
			e.removeLocalScratch(task, localArchive)
		}
		return err
	}
	if !extract {
		return nil
	}

	e.bus.PublishLog(events.InfoLevel, "extracting into "+localDir, task.ID, nil)
	e.publish(task, events.EventTransferProgress, StageExtract)
	if err := archive.ExtractLocal(localArchive, localDir); err != nil {
		// The downloaded archive is kept so the transfer is not lost.
		e.bus.PublishLog(events.WarnLevel,
			"extraction failed, local archive kept at "+localArchive, task.ID, err)
		return err
	}
	e.removeLocalScratch(task, localArchive)
	return nil
}

// streamUpload copies a local file to remotePath in fixed-size chunks,
// checking for cancellation at every chunk boundary. A partial remote file
// left by a failed or cancelled copy is removed best-effort.
func (e *Engine) streamUpload(task *Task, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return &remote.LocalIOError{Op: "open", Path: localPath, Err: err}
	}
	defer src.Close()

	dst, err := e.conn.Create(remotePath)
	if err != nil {
		return &remote.RemoteIOError{Op: "create", Path: remotePath, Err: err}
	}

	task.setState(TaskActive)
	e.publish(task, events.EventTransferStarted, StageTransfer)

	copyErr := e.copyChunks(task, dst, src,
		func(err error) error { return &remote.LocalIOError{Op: "read", Path: localPath, Err: err} },
		func(err error) error { return &remote.RemoteIOError{Op: "write", Path: remotePath, Err: err} })
	if copyErr != nil {
		dst.Close()
		e.removeRemotePartial(task, remotePath)
		return copyErr
	}
	if err := dst.Close(); err != nil {
		e.removeRemotePartial(task, remotePath)
		return &remote.RemoteIOError{Op: "close", Path: remotePath, Err: err}
	}
	return nil
}

// streamDownload copies a remote file to localPath in fixed-size chunks.
// A partial local file left by a failed or cancelled copy is removed
// best-effort.
func (e *Engine) streamDownload(task *Task, remotePath, localPath string) error {
	src, err := e.conn.Open(remotePath)
	if err != nil {
		return &remote.RemoteIOError{Op: "open", Path: remotePath, Err: err}
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return &remote.LocalIOError{Op: "create", Path: localPath, Err: err}
	}

	task.setState(TaskActive)
	e.publish(task, events.EventTransferStarted, StageTransfer)

	copyErr := e.copyChunks(task, dst, src,
		func(err error) error { return &remote.RemoteIOError{Op: "read", Path: remotePath, Err: err} },
		func(err error) error { return &remote.LocalIOError{Op: "write", Path: localPath, Err: err} })
	if copyErr != nil {
		dst.Close()
		e.removeLocalPartial(task, localPath)
		return copyErr
	}
	if err := dst.Close(); err != nil {
		e.removeLocalPartial(task, localPath)
		return &remote.LocalIOError{Op: "close", Path: localPath, Err: err}
	}
	return nil
}

// copyChunks is the cancellable copy loop shared by both directions.
// Progress events are throttled; a final one is always published so
// consumers see the last byte count.
func (e *Engine) copyChunks(task *Task, dst io.Writer, src io.Reader, wrapRead, wrapWrite func(error) error) error {
	buf := make([]byte, constants.ChunkSize)
	var done int64
	var lastPublish time.Time

	for {
		if err := task.Context().Err(); err != nil {
			return err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return wrapWrite(writeErr)
			}
			done += int64(n)
			task.updateBytes(done)
			if time.Since(lastPublish) >= constants.ProgressThrottle {
				e.publish(task, events.EventTransferProgress, StageTransfer)
				lastPublish = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return wrapRead(readErr)
		}
	}
	e.publish(task, events.EventTransferProgress, StageTransfer)
	return nil
}

// Cleanup below is best-effort. Outcomes are reported on the bus and never
// replace the primary transfer error.

func (e *Engine) removeRemotePartial(task *Task, path string) {
	if err := e.conn.Remove(path); err != nil {
		e.bus.PublishLog(events.WarnLevel, "could not remove partial remote file "+path, task.ID, err)
		return
	}
	e.bus.PublishLog(events.DebugLevel, "removed partial remote file "+path, task.ID, nil)
}

func (e *Engine) removeLocalPartial(task *Task, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.bus.PublishLog(events.WarnLevel, "could not remove partial local file "+path, task.ID, err)
		return
	}
	e.bus.PublishLog(events.DebugLevel, "removed partial local file "+path, task.ID, nil)
}

func (e *Engine) removeLocalScratch(task *Task, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.bus.PublishLog(events.WarnLevel, "could not remove local scratch archive "+path, task.ID, err)
		return
	}
	e.bus.PublishLog(events.DebugLevel, "removed local scratch archive "+path, task.ID, nil)
}

// removeRemoteScratch deletes a remote scratch archive, even when the task's
// own context has already been cancelled.
func (e *Engine) removeRemoteScratch(task *Task, path string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(task.Context()), constants.RemoteCommandTimeout)
	defer cancel()
	if err := archive.RemoveRemote(ctx, e.conn, path); err != nil {
		e.bus.PublishLog(events.WarnLevel, "could not remove remote scratch archive "+path, task.ID, err)
		return
	}
	e.bus.PublishLog(events.DebugLevel, "removed remote scratch archive "+path, task.ID, nil)
}
