package triage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/triage-intake/internal/observability/metrics"
	"github.com/clinicore/triage-intake/pkg/logging"
)

// TranscriptMirror writes one line to the remote audit transcript.
type TranscriptMirror interface {
	MirrorTranscription(ctx context.Context, sessionID, text string) error
}

type mirrorJob struct {
	id        string
	sessionID string
	text      string
}

// MirrorQueue is the best-effort side channel for transcript mirroring.
// Writes never block the primary request/response path; failures are logged
// and counted, never propagated.
type MirrorQueue struct {
	client  TranscriptMirror
	jobs    chan mirrorJob
	logger  *logging.Logger
	metrics *metrics.TriageMetrics
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewMirrorQueue starts a single worker draining the queue. buffer <= 0
// falls back to a sane default.
func NewMirrorQueue(client TranscriptMirror, buffer int, logger *logging.Logger, m *metrics.TriageMetrics) *MirrorQueue {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.Default()
	}
	q := &MirrorQueue{
		client:  client,
		jobs:    make(chan mirrorJob, buffer),
		logger:  logger,
		metrics: m,
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue submits a mirror write without blocking. A full queue drops the
// line rather than stall the interview.
func (q *MirrorQueue) Enqueue(sessionID, text string) {
	job := mirrorJob{id: uuid.NewString(), sessionID: sessionID, text: text}
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn("mirror queue full, dropping line", "job_id", job.id, "session_id", sessionID)
		q.metrics.ObserveMirrorFailure()
	}
}

// Close stops the worker after draining buffered jobs.
func (q *MirrorQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}

func (q *MirrorQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case job := <-q.jobs:
			q.deliver(job)
		case <-q.done:
			// Drain what is already buffered, then stop.
			for {
				select {
				case job := <-q.jobs:
					q.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (q *MirrorQueue) deliver(job mirrorJob) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	if err := q.client.MirrorTranscription(ctx, job.sessionID, job.text); err != nil {
		q.logger.Warn("transcript mirror failed",
			"job_id", job.id,
			"session_id", job.sessionID,
			"error", err,
		)
		q.metrics.ObserveMirrorFailure()
	}
}
