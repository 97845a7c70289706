package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// Recorder writes results in the background so game sessions never wait on
// the database.
type Recorder struct {
	store Store
	queue chan GameResult
	log   *zap.Logger
}

func NewRecorder(s Store, log *zap.Logger, buffer int) *Recorder {
	return &Recorder{store: s, queue: make(chan GameResult, buffer), log: log.Named("recorder")}
}

// Submit queues r. When the queue is full the result is dropped and logged.
func (r *Recorder) Submit(res GameResult) {
	select {
	case r.queue <- res:
	default:
		r.log.Warn("result queue full, dropping", zap.String("session_id", res.SessionID))
	}
}

// Run saves queued results until ctx is done, then drains what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case res := <-r.queue:
			r.save(context.WithoutCancel(ctx), res)
		case <-ctx.Done():
			for {
				select {
				case res := <-r.queue:
					r.save(context.WithoutCancel(ctx), res)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Recorder) save(parent context.Context, res GameResult) {
	ctx, cancel := context.WithTimeout(parent, saveTimeout)
	defer cancel()
	if err := r.store.SaveResult(ctx, res); err != nil {
		r.log.Error("save result", zap.String("session_id", res.SessionID), zap.Error(err))
		return
	}
	r.log.Info("result saved", zap.String("session_id", res.SessionID), zap.Int("levels", res.Levels))
}
