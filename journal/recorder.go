package journal

import (
	"context"
	"sync"

	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
)

// Recorder writes a monitor's assessments into a session of the journal.  A
// session holds a single joint, when assessments for another joint arrive
// after a config reload a new session is started for them.
type Recorder struct {
	store   *Store
	source  string
	mu      sync.Mutex
	session Session
}

// NewRecorder starts a new session in the store and returns a Recorder for it
func NewRecorder(ctx context.Context, store *Store, joint, source string) (*Recorder, error) {

	sess, err := store.StartSession(ctx, joint, source)

	if err != nil {
		return nil, err
	}

	return &Recorder{store: store, source: source, session: sess}, nil
}

// Session returns the session being recorded
func (r *Recorder) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.session
}

// PublishAssessment records the assessment of a frame
func (r *Recorder) PublishAssessment(ctx context.Context, frame int, a posemon.Assessment) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	if a.Joint != r.session.Joint {
		sess, err := r.store.StartSession(ctx, a.Joint, r.source)

		if err != nil {
			return err
		}

		logger.Named("journal").Info(ctx, "joint changed, new session",
			logger.String("previous", r.session.ID),
			logger.String("session", sess.ID),
			logger.String("joint", a.Joint),
		)

		r.session = sess
	}

	return r.store.Record(ctx, r.session.ID, frame, a)
}

// PublishSkip does nothing, frames without an assessment are not journaled
func (r *Recorder) PublishSkip(context.Context, int, string) error {
	return nil
}
