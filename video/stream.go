package video

import (
	"fmt"
	"net/http"
	"sync"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon/logger"
)

// Stream serves annotated frames to browsers as a MJPEG multipart stream.
// Each frame is JPEG encoded once and fanned out to every connected client,
// clients that fall behind only receive the latest frame.
type Stream struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
	log     logger.Logger
}

// NewStream returns an empty Stream
func NewStream() *Stream {
	return &Stream{
		clients: make(map[chan []byte]struct{}),
		log:     logger.Named("stream"),
	}
}

// Clients returns the number of connected clients
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

// Show encodes img and hands it to the connected clients
func (s *Stream) Show(img gocv.Mat) error {

	if s.Clients() == 0 {
		return nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)

	if err != nil {
		return fmt.Errorf("error encoding frame: %w", err)
	}

	// copy out of C memory as clients write it after the buffer is freed
	frame := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c <- frame:
		default:
			// replace the pending frame with this one
			select {
			case <-c:
			default:
			}
			c <- frame
		}
	}

	return nil
}

// ServeHTTP streams frames until the client disconnects or the Stream is
// closed
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	c := make(chan []byte, 1)

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}

	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.log.Info(r.Context(), "client connected", logger.String("remote", r.RemoteAddr))

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()

		s.log.Info(r.Context(), "client disconnected", logger.String("remote", r.RemoteAddr))
	}()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			return

		case frame, ok := <-c:
			if !ok {
				return
			}

			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(frame)

			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Close disconnects all clients
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	for c := range s.clients {
		close(c)
		delete(s.clients, c)
	}

	return nil
}
