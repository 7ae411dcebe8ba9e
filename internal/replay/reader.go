package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/gridclash/arena/internal/engine"
)

// ErrCorrupt wraps every structural problem found in a replay stream.
var ErrCorrupt = errors.New("corrupt replay")

// Replay is a fully loaded match record.
type Replay struct {
	Header engine.Header
	Rounds []engine.RoundRecord
	Footer *engine.Footer // nil if the match never finished
}

// Verify checks that rounds run 1..n without gaps and that the footer, if
// present, agrees with them.
func (r *Replay) Verify() error {
	for i, rr := range r.Rounds {
		if rr.Round != i+1 {
			return fmt.Errorf("%w: record %d holds round %d", ErrCorrupt, i, rr.Round)
		}
	}
	if r.Footer == nil {
		return fmt.Errorf("%w: missing footer", ErrCorrupt)
	}
	if r.Footer.MatchID != r.Header.MatchID {
		return fmt.Errorf("%w: footer match %s, header %s", ErrCorrupt, r.Footer.MatchID, r.Header.MatchID)
	}
	if r.Footer.Rounds != len(r.Rounds) {
		return fmt.Errorf("%w: footer says %d rounds, found %d", ErrCorrupt, r.Footer.Rounds, len(r.Rounds))
	}
	return nil
}

// Reader streams a replay file line by line.
type Reader struct {
	f   *os.File
	dec *zstd.Decoder
	sc  *bufio.Scanner
	n   int
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	return &Reader{f: f, dec: dec, sc: sc}, nil
}

func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

// next returns the following line, or io.EOF at the end of the stream.
func (r *Reader) next() (line, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return line{}, err
		}
		return line{}, io.EOF
	}
	r.n++
	var l line
	if err := json.Unmarshal(r.sc.Bytes(), &l); err != nil {
		return line{}, fmt.Errorf("%w: line %d: %v", ErrCorrupt, r.n, err)
	}
	return l, nil
}

// ReadAll loads the whole stream. The header must come first and nothing may
// follow the footer.
func (r *Reader) ReadAll() (*Replay, error) {
	first, err := r.next()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty stream", ErrCorrupt)
	}
	if err != nil {
		return nil, err
	}
	if first.Kind != kindHeader || first.Header == nil {
		return nil, fmt.Errorf("%w: first line is %q, want header", ErrCorrupt, first.Kind)
	}
	rep := &Replay{Header: *first.Header}
	for {
		l, err := r.next()
		if errors.Is(err, io.EOF) {
			return rep, nil
		}
		if err != nil {
			return nil, err
		}
		if rep.Footer != nil {
			return nil, fmt.Errorf("%w: line %d after footer", ErrCorrupt, r.n)
		}
		switch {
		case l.Kind == kindRound && l.Round != nil:
			rep.Rounds = append(rep.Rounds, *l.Round)
		case l.Kind == kindFooter && l.Footer != nil:
			rep.Footer = l.Footer
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected %q", ErrCorrupt, r.n, l.Kind)
		}
	}
}

// Load reads and verifies a replay file.
func Load(path string) (*Replay, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	rep, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rep, nil
}
