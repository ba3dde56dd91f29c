package viewer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// ErrSessionDir is returned when a recording session directory cannot
// be created. This is an unrecoverable environment error: continuing
// without the directory would corrupt the recorded sequence.
var ErrSessionDir = errors.New("viewer: cannot create recording session directory")

// indexWidth is the zero padding of session directory and frame file
// names, keeping lexical and numeric ordering consistent.
const indexWidth = 4

// writeCloudFunc persists one cloud to a path. Swappable for tests.
type writeCloudFunc func(path string, c *pointcloud.Cloud) error

// Recorder persists consumed clouds as a numbered sequence. Each
// off-to-on transition of recording allocates the next session index
// and its own directory; frames within a session are numbered from 1
// with no gaps for successful writes.
type Recorder struct {
	root    string
	logger  *slog.Logger
	write   writeCloudFunc
	session int
	frame   int
	active  bool
	dir     string
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithWriter overrides the cloud file writer. Used by tests to inject
// codec failures.
func WithWriter(w writeCloudFunc) RecorderOption {
	return func(r *Recorder) {
		r.write = w
	}
}

// NewRecorder creates a recorder placing session directories under root.
func NewRecorder(root string, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		root:   root,
		logger: logger,
		write:  pointcloud.WriteCompressedFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BeginSession allocates the next session index, creates its directory
// and resets the frame counter. The session index and directory are
// immutable for the lifetime of the session.
func (r *Recorder) BeginSession() error {
	r.session++
	r.dir = filepath.Join(r.root, fmt.Sprintf("%0*d", indexWidth, r.session))

	if err := os.Mkdir(r.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionDir, err)
	}

	r.frame = 1
	r.active = true
	r.logger.Info("recording session started", "session", r.session, "dir", r.dir)
	return nil
}

// WriteCloud serializes c into the current session. Writes are best
// effort per frame: a codec failure is logged and skipped, and does not
// consume a frame index, so successful writes stay gap free.
func (r *Recorder) WriteCloud(c *pointcloud.Cloud) {
	if !r.active {
		return
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%0*d%s", indexWidth, r.frame, pointcloud.FileExt))
	if err := r.write(path, c); err != nil {
		r.logger.Warn("dropped recorded frame", "path", path, "error", err)
		return
	}
	r.frame++
}

// EndSession marks recording inactive and resets the frame index. The
// session directory is left as is; an empty directory is a valid
// (if trivial) session.
func (r *Recorder) EndSession() {
	r.active = false
	r.frame = 0
}

// Active reports whether a session is open.
func (r *Recorder) Active() bool {
	return r.active
}

// Session returns the current session index, 0 before the first session.
func (r *Recorder) Session() int {
	return r.session
}

// FrameIndex returns the index the next frame will be written under.
func (r *Recorder) FrameIndex() int {
	return r.frame
}
