package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/gridclash/arena/internal/engine"
)

// Ext is the file extension of a compressed replay.
const Ext = ".jsonl.zst"

// FileRecorder writes a replay as zstd-compressed JSON lines: the header,
// one line per round, then the footer.
type FileRecorder struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// Create opens path for writing, creating parent directories as needed.
func Create(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileRecorder{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the file being written.
func (r *FileRecorder) Path() string { return r.path }

func (r *FileRecorder) WriteHeader(h engine.Header) error {
	return r.write(line{Kind: kindHeader, Header: &h})
}

func (r *FileRecorder) WriteRound(rr engine.RoundRecord) error {
	return r.write(line{Kind: kindRound, Round: &rr})
}

func (r *FileRecorder) WriteFooter(f engine.Footer) error {
	return r.write(line{Kind: kindFooter, Footer: &f})
}

func (r *FileRecorder) write(l line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("replay %s: closed", r.path)
	}
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

// Close flushes the buffered lines and finishes the zstd frame.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	var err1, err2, err3 error
	err1 = r.w.Flush()
	err2 = r.enc.Close()
	err3 = r.f.Close()
	r.w, r.enc, r.f = nil, nil, nil
	for _, err := range []error{err1, err2, err3} {
		if err != nil {
			return fmt.Errorf("close replay %s: %w", r.path, err)
		}
	}
	return nil
}
