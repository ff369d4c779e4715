// Package batch drives feature extraction and classification over many URLs
// under bounded concurrency, per-record timeouts, and an optional batch
// deadline. One failing record never stalls or corrupts its siblings, and
// the final report always has one row per input URL in input order.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phishsense/phishsense/internal/classifier"
	"github.com/phishsense/phishsense/internal/feature"
	"github.com/phishsense/phishsense/internal/model"
	"github.com/phishsense/phishsense/internal/urlinfo"
)

// Extractor defines how the coordinator turns one record into a vector.
type Extractor interface {
	Extract(ctx context.Context, rec urlinfo.Record) feature.Extraction
}

// Options configures a Coordinator.
type Options struct {
	// Concurrency caps the number of records extracted simultaneously.
	Concurrency int
	// PerRecordTimeout caps the probe-plus-classify work for one record.
	PerRecordTimeout time.Duration
	// BatchTimeout caps a whole run; 0 disables the batch deadline. On
	// expiry, unfinished records are failed and completed ones retained.
	BatchTimeout time.Duration
	// MinConfidence fails classified rows below this confidence with a
	// low-confidence error code; 0 accepts every verdict, however degraded.
	MinConfidence float64
	// SerializeInference routes Classify calls through a single-access
	// gate, for models whose inference is not concurrency safe.
	SerializeInference bool
}

// Coordinator owns the worker pool. The model handle is injected once at
// construction and treated as read-only for the process lifetime.
type Coordinator struct {
	extractor Extractor
	model     classifier.Model
	opts      Options
	logger    *slog.Logger

	inferMu sync.Mutex // taken only when SerializeInference is set
}

// NewCoordinator builds a Coordinator over the given extractor and model.
func NewCoordinator(extractor Extractor, m classifier.Model, opts Options, logger *slog.Logger) *Coordinator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Coordinator{extractor: extractor, model: m, opts: opts, logger: logger}
}

// Job is one in-flight batch. Progress is safe to poll from any goroutine
// while workers run.
type Job struct {
	total int
	done  atomic.Int64
	rows  []model.ReportRow
	fin   chan struct{}
}

// Progress returns the monotonically increasing completed count and the
// total. Completion order is not observable, only the counts are.
func (j *Job) Progress() (done, total int) {
	return int(j.done.Load()), j.total
}

// Wait blocks until every record is terminal and returns the rows in input
// order. The slice length always equals the input length.
func (j *Job) Wait() []model.ReportRow {
	<-j.fin
	return j.rows
}

// Run processes urls and blocks until the batch completes or its deadline
// elapses, whichever is first.
func (c *Coordinator) Run(ctx context.Context, urls []string) []model.ReportRow {
	return c.Start(ctx, urls).Wait()
}

// Start launches the worker pool over urls and returns the tracking Job.
func (c *Coordinator) Start(ctx context.Context, urls []string) *Job {
	job := &Job{
		total: len(urls),
		rows:  make([]model.ReportRow, len(urls)),
		fin:   make(chan struct{}),
	}
	if len(urls) == 0 {
		close(job.fin)
		return job
	}

	batchCtx := ctx
	var cancel context.CancelFunc = func() {}
	if c.opts.BatchTimeout > 0 {
		batchCtx, cancel = context.WithTimeout(ctx, c.opts.BatchTimeout)
	}

	jobs := make(chan int, len(urls))
	numWorkers := min(len(urls), c.opts.Concurrency)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for idx := range jobs {
				// Each row slot is written by exactly one worker.
				job.rows[idx] = c.processRecord(batchCtx, urls[idx])
				job.done.Add(1)
			}
		})
	}

	for idx := range urls {
		jobs <- idx
	}
	close(jobs)

	go func() {
		wg.Wait()
		cancel()
		done, _ := job.Progress()
		c.logger.Info("batch complete", "total", job.total, "done", done)
		close(job.fin)
	}()

	return job
}

// processRecord drives one URL to a terminal row. Probe failures degrade
// feature slots inside the extractor; only record-level conditions
// (malformed URL, deadlines, inference errors, the confidence floor)
// produce a failed row.
func (c *Coordinator) processRecord(batchCtx context.Context, rawURL string) model.ReportRow {
	row := model.ReportRow{URL: rawURL}

	if batchCtx.Err() != nil {
		row.ErrCode = model.ErrBatchTimeout
		return row
	}

	rec, err := urlinfo.Parse(rawURL)
	if err != nil {
		c.logger.Debug("record rejected", "url", rawURL, "error", err)
		row.ErrCode = model.ErrMalformedURL
		return row
	}

	recCtx, cancel := context.WithTimeout(batchCtx, c.opts.PerRecordTimeout)
	defer cancel()

	ext := c.extractor.Extract(recCtx, rec)
	if recCtx.Err() != nil {
		if batchCtx.Err() != nil {
			row.ErrCode = model.ErrBatchTimeout
		} else {
			row.ErrCode = model.ErrRecordTimeout
		}
		return row
	}

	res, err := c.classify(ext.Vector)
	if err != nil {
		c.logger.Error("inference failed", "url", rawURL, "error", err)
		row.ErrCode = model.ErrInference
		return row
	}

	if c.opts.MinConfidence > 0 && res.Confidence < c.opts.MinConfidence {
		c.logger.Debug("verdict below confidence floor",
			"url", rawURL,
			"confidence", res.Confidence,
			"degraded_slots", len(ext.Degraded),
		)
		row.ErrCode = model.ErrLowConfidence
		return row
	}

	row.Features = ext.Vector.Values()
	row.Degraded = ext.DegradedNames()
	row.Classification = &model.Classification{Label: res.Label, Confidence: res.Confidence}
	return row
}

func (c *Coordinator) classify(v feature.Vector) (classifier.Result, error) {
	if c.opts.SerializeInference {
		c.inferMu.Lock()
		defer c.inferMu.Unlock()
	}
	return c.model.Classify(v)
}
