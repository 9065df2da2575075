package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperror "github.com/Yulian302/lfusys-services-media/commons/errors"
	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/commons/metrics"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/hashicorp/go-multierror"
)

type ReaperOptions struct {
	// MaxAge is how long a multipart upload may stay open before it is aborted.
	MaxAge time.Duration
	Prefix string
	// MaxAborts caps aborts per sweep; 0 means no cap.
	MaxAborts int
}

type ReapResult struct {
	UploadsScanned      int
	StaleUploadsFound   int
	UploadsAborted      int
	SkippedByAbortLimit int
}

// MultipartReaper aborts multipart uploads that were initiated but never
// completed or aborted by their client.
type MultipartReaper struct {
	objects  store.ObjectStore
	sessions store.SessionStore
	metrics  *metrics.Metrics
	opts     ReaperOptions

	logger logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMultipartReaper(objects store.ObjectStore, sessions store.SessionStore, m *metrics.Metrics, opts ReaperOptions, l logger.Logger) *MultipartReaper {
	return &MultipartReaper{
		objects:  objects,
		sessions: sessions,
		metrics:  m,
		opts:     opts,
		logger:   l,
	}
}

// Sweep aborts every upload older than MaxAge at now, oldest first. Errors
// for individual uploads are collected and do not stop the sweep.
func (r *MultipartReaper) Sweep(ctx context.Context, now time.Time) (ReapResult, error) {
	var result ReapResult
	if r.opts.MaxAge <= 0 {
		return result, errors.New("reaper max age must be positive")
	}

	pending, err := r.objects.ListMultipartUploads(ctx, r.opts.Prefix)
	if err != nil {
		return result, err
	}
	result.UploadsScanned = len(pending)

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Initiated.Equal(pending[j].Initiated) {
			return pending[i].UploadId < pending[j].UploadId
		}
		return pending[i].Initiated.Before(pending[j].Initiated)
	})

	var errs *multierror.Error
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if now.Sub(p.Initiated) < r.opts.MaxAge {
			continue
		}
		result.StaleUploadsFound++

		if r.opts.MaxAborts > 0 && result.UploadsAborted >= r.opts.MaxAborts {
			result.SkippedByAbortLimit++
			continue
		}

		if err := r.objects.AbortMultipartUpload(ctx, p.FileKey, p.UploadId); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("abort %s (%s): %w", p.UploadId, p.FileKey, err))
			continue
		}
		result.UploadsAborted++
		if r.metrics != nil {
			r.metrics.ReapedUploads.Inc()
		}

		if r.sessions != nil {
			if err := r.sessions.Delete(ctx, p.UploadId); err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
				errs = multierror.Append(errs, fmt.Errorf("delete session record %s: %w", p.UploadId, err))
			}
		}
	}

	return result, errs.ErrorOrNil()
}

// Start runs a sweep every interval until Shutdown.
func (r *MultipartReaper) Start(parent context.Context, interval time.Duration, startupSweep bool) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	if startupSweep {
		r.logSweep(ctx, "multipart startup sweep", time.Now().UTC())
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				r.logSweep(ctx, "multipart periodic sweep", t.UTC())
			}
		}
	}()
}

func (r *MultipartReaper) logSweep(ctx context.Context, name string, now time.Time) {
	res, err := r.Sweep(ctx, now)
	args := []any{
		"uploads_scanned", res.UploadsScanned,
		"stale_uploads_found", res.StaleUploadsFound,
		"uploads_aborted", res.UploadsAborted,
		"skipped_by_abort_limit", res.SkippedByAbortLimit,
	}
	if err != nil {
		r.logger.Warn(name+" completed with errors", append(args, "error", err)...)
		return
	}
	r.logger.Info(name+" completed", args...)
}

func (r *MultipartReaper) Shutdown(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
