package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
)

// Fixture is an Estimator replaying landmarks recorded earlier, one frame per
// line of JSON.  A line of null marks a frame where nobody was detected.  It
// lets the monitor run against a video without the NPU, and gives tests a
// deterministic pose source.
type Fixture struct {
	mu     sync.Mutex
	frames []*posemon.Landmarks
	next   int
	// Loop restarts the replay when the recorded frames are exhausted
	Loop bool
}

// NewFixture returns a Fixture replaying the given frames, a nil entry is a
// frame without detection
func NewFixture(frames []*posemon.Landmarks) *Fixture {
	return &Fixture{frames: frames}
}

// LoadFixture reads recorded frames from r
func LoadFixture(r io.Reader) (*Fixture, error) {

	var frames []*posemon.Landmarks

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0

	for sc.Scan() {
		line++

		if len(sc.Bytes()) == 0 {
			continue
		}

		var lms *posemon.Landmarks

		if err := json.Unmarshal(sc.Bytes(), &lms); err != nil {
			return nil, fmt.Errorf("fixture line %d: %w", line, err)
		}

		frames = append(frames, lms)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	return NewFixture(frames), nil
}

// OpenFixture loads recorded frames from a file
func OpenFixture(path string) (*Fixture, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadFixture(f)
}

// Len returns the number of recorded frames
func (f *Fixture) Len() int {
	return len(f.frames)
}

// Estimate returns the next recorded frame, the image is ignored.  Once all
// frames are replayed, and Loop is not set, every further frame has no
// detection.
func (f *Fixture) Estimate(gocv.Mat) (posemon.Landmarks, bool, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.next >= len(f.frames) {
		if !f.Loop || len(f.frames) == 0 {
			return posemon.Landmarks{}, false, nil
		}
		f.next = 0
	}

	lms := f.frames[f.next]
	f.next++

	if lms == nil {
		return posemon.Landmarks{}, false, nil
	}

	return *lms, true, nil
}

// Close does nothing
func (f *Fixture) Close() error {
	return nil
}

// FixtureWriter records the output of another Estimator in the fixture
// format while passing it through unchanged
type FixtureWriter struct {
	Estimator
	mu  sync.Mutex
	w   *bufio.Writer
	c   io.Closer
	enc *json.Encoder
	// failed is set once writing has failed, recording stops from then on
	failed bool
}

// NewFixtureWriter wraps est so every estimate is also written to w.  If w is
// an io.Closer it is closed with the writer.
func NewFixtureWriter(est Estimator, w io.Writer) *FixtureWriter {
	bw := bufio.NewWriter(w)

	fw := &FixtureWriter{
		Estimator: est,
		w:         bw,
		enc:       json.NewEncoder(bw),
	}

	if c, ok := w.(io.Closer); ok {
		fw.c = c
	}

	return fw
}

// Estimate runs the wrapped estimator and records the result.  Frames that
// fail with an error are not recorded.  A recording failure is logged and
// ends the recording, the estimate itself is still returned.
func (fw *FixtureWriter) Estimate(img gocv.Mat) (posemon.Landmarks, bool, error) {

	lms, ok, err := fw.Estimator.Estimate(img)

	if err != nil {
		return lms, ok, err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.failed {
		return lms, ok, nil
	}

	var rec *posemon.Landmarks

	if ok {
		rec = &lms
	}

	if werr := fw.enc.Encode(rec); werr != nil {
		fw.failed = true
		logger.Named("pose").Error(context.Background(), "landmark recording stopped",
			logger.Error(werr))
	}

	return lms, ok, nil
}

// Close flushes the recording and closes both the output and the wrapped
// estimator
func (fw *FixtureWriter) Close() error {

	fw.mu.Lock()
	err := fw.w.Flush()

	if fw.c != nil {
		err = errors.Join(err, fw.c.Close())
	}
	fw.mu.Unlock()

	return errors.Join(err, fw.Estimator.Close())
}
