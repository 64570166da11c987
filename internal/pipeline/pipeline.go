// Package pipeline runs the per-image tagging state machine over a batch
// of images: load the existing header, resolve the capture time, align it
// against the navigation and depth series, build the tag record and hand
// it to the tag store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/navtag/internal/depth"
	"github.com/banshee-data/navtag/internal/imagetime"
	"github.com/banshee-data/navtag/internal/monitoring"
	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/tags"
	"github.com/banshee-data/navtag/internal/tagstore"
	"github.com/banshee-data/navtag/internal/timeseries"
	"github.com/banshee-data/navtag/internal/timeutil"
)

// ErrHeaderLoad wraps every header load failure. Under FailClosed, Run
// returns an error matching it.
var ErrHeaderLoad = errors.New("header load failed")

// Result is the outcome for one job.
type Result struct {
	Job
	// State is Written or Failed once the job has run.
	State State
	// Reached is the last state completed before a failure.
	Reached   State
	ImageTime float64
	Record    *tags.Record

	// Lags are aligned sample time minus image time, in seconds.
	NavLag   float64
	DepthLag float64
	HasNav   bool
	HasDepth bool
	// Clamped is set when either alignment fell outside its series.
	Clamped bool

	Err error
}

// Summary totals a run.
type Summary struct {
	RunID   string
	Total   int
	Written int
	Failed  int
	Clamped int
	// Results holds every job that ran, in job order.
	Results  []Result
	NavLag   LagStats
	DepthLag LagStats
	Elapsed  time.Duration
}

// Pipeline holds the read-only inputs shared by every job of a run.
type Pipeline struct {
	Store    tagstore.Store
	Resolver imagetime.Resolver

	// Navigation is required. Depth is optional; without it records carry no
	// ranging tags.
	Navigation *timeseries.Index[psonnav.Fix]
	Depth      *timeseries.Index[depth.Sample]

	Profile tags.CalibrationProfile
	Policy  Policy

	// Workers above one processes images concurrently. Log lines may then
	// interleave; results are still reported in job order.
	Workers int

	// RunID labels the run. A random one is assigned when empty.
	RunID string

	// Progress is called after each job. Nil logs a progress line.
	Progress func(done, total int, res Result)

	Clock timeutil.Clock
}

func (p *Pipeline) validate() error {
	switch {
	case p.Store == nil:
		return errors.New("pipeline has no tag store")
	case p.Resolver == nil:
		return errors.New("pipeline has no image time resolver")
	case p.Navigation == nil:
		return errors.New("pipeline has no navigation series")
	}
	return nil
}

// Run processes jobs and returns the run summary. Per-image failures are
// logged and counted. The returned error is non-nil only when the run was
// stopped early: by ctx, which is checked between images, or by a header
// load failure under FailClosed. The summary covers the jobs that ran
// either way.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) (Summary, error) {
	if err := p.validate(); err != nil {
		return Summary{}, err
	}
	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	runID := p.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	workers := max(p.Workers, 1)

	start := clock.Now()
	monitoring.Logf("run %s: %d images, header failure %s, %d worker(s)", runID, len(jobs), p.Policy, workers)

	var (
		results []Result
		ran     []bool
		err     error
	)
	if workers == 1 || len(jobs) < 2 {
		results, ran, err = p.runSequential(ctx, jobs)
	} else {
		results, ran, err = p.runParallel(ctx, jobs, workers)
	}

	sum := summarise(runID, results, ran)
	sum.Elapsed = clock.Since(start)
	monitoring.Logf("run %s: %d of %d images written, %d failed, %d clamped in %s",
		runID, sum.Written, len(jobs), sum.Failed, sum.Clamped, sum.Elapsed.Round(time.Millisecond))
	return sum, err
}

func (p *Pipeline) runSequential(ctx context.Context, jobs []Job) ([]Result, []bool, error) {
	results := make([]Result, len(jobs))
	ran := make([]bool, len(jobs))
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, ran, fmt.Errorf("run stopped before %s: %w", job.Source, err)
		}
		results[i], ran[i] = p.process(job), true
		p.progress(i+1, len(jobs), results[i])
		if err := p.abortErr(results[i]); err != nil {
			return results, ran, err
		}
	}
	return results, ran, nil
}

func (p *Pipeline) runParallel(ctx context.Context, jobs []Job, workers int) ([]Result, []bool, error) {
	results := make([]Result, len(jobs))
	ran := make([]bool, len(jobs))

	// Under FailClosed every header is loaded in job order first, so that
	// nothing after an aborting image is written.
	var (
		headers []tagstore.Header
		aborted *Result
		abortAt = len(jobs)
	)
	if p.Policy == FailClosed {
		headers = make([]tagstore.Header, len(jobs))
		for i, job := range jobs {
			hdr, err := p.Store.LoadHeader(job.Source)
			if err != nil {
				res := p.headerFailed(job, err)
				aborted, abortAt = &res, i
				break
			}
			headers[i] = hdr
		}
	}

	next := make(chan int)
	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				var res Result
				if headers != nil {
					res = p.processHeader(jobs[i], headers[i])
				} else {
					res = p.process(jobs[i])
				}

				mu.Lock()
				results[i], ran[i] = res, true
				done++
				p.progress(done, len(jobs), res)
				mu.Unlock()
			}
		}()
	}

	var stopErr error
	for i := range jobs[:abortAt] {
		if ctx.Err() == nil {
			select {
			case next <- i:
				continue
			case <-ctx.Done():
			}
		}
		stopErr = fmt.Errorf("run stopped before %s: %w", jobs[i].Source, ctx.Err())
		break
	}
	close(next)
	wg.Wait()

	if stopErr != nil {
		return results, ran, stopErr
	}
	if aborted != nil {
		if err := ctx.Err(); err != nil {
			return results, ran, fmt.Errorf("run stopped before %s: %w", aborted.Source, err)
		}
		results[abortAt], ran[abortAt] = *aborted, true
		p.progress(done+1, len(jobs), *aborted)
		return results, ran, p.abortErr(*aborted)
	}
	return results, ran, nil
}

// abortErr returns the run-stopping error for res, if any.
func (p *Pipeline) abortErr(res Result) error {
	if p.Policy != FailClosed || res.State != Failed || !errors.Is(res.Err, ErrHeaderLoad) {
		return nil
	}
	return fmt.Errorf("run aborted at %s: %w", res.Source, res.Err)
}

func (p *Pipeline) progress(done, total int, res Result) {
	if p.Progress != nil {
		p.Progress(done, total, res)
		return
	}
	monitoring.Logf("[%d/%d %.1f%%] %s", done, total, 100*float64(done)/float64(total), filepath.Base(res.Source))
}

// process drives one job through the state machine. It never panics on a
// bad image; every failure ends in State Failed with Err set.
func (p *Pipeline) process(job Job) Result {
	hdr, err := p.Store.LoadHeader(job.Source)
	if err != nil {
		return p.headerFailed(job, err)
	}
	return p.processHeader(job, hdr)
}

func (p *Pipeline) headerFailed(job Job, err error) Result {
	res := Result{Job: job, State: Failed, Reached: Pending, Err: fmt.Errorf("%w: %w", ErrHeaderLoad, err)}
	monitoring.Logf("%s: failed after %s: %v", job.Source, res.Reached, res.Err)
	return res
}

// processHeader continues a job whose header is already loaded.
func (p *Pipeline) processHeader(job Job, hdr tagstore.Header) Result {
	res := Result{Job: job, State: Pending, Reached: HeaderLoaded}
	fail := func(err error) Result {
		res.State, res.Err = Failed, err
		monitoring.Logf("%s: failed after %s: %v", job.Source, res.Reached, err)
		return res
	}

	t, err := p.Resolver.Resolve(job.Source, hdr)
	if err != nil {
		return fail(fmt.Errorf("resolve image time: %w", err))
	}
	res.ImageTime = t

	fix, navTime, err := align(p.Navigation, t)
	if err != nil {
		if !errors.Is(err, timeseries.ErrAlignmentBoundary) {
			return fail(fmt.Errorf("align navigation: %w", err))
		}
		res.Clamped = true
		monitoring.Logf("%s: warning: navigation %v", job.Source, err)
	}
	res.NavLag, res.HasNav = navTime-t, true

	var sample *depth.Sample
	if p.Depth != nil {
		var depthTime float64
		sample, depthTime, err = align(p.Depth, t)
		if err != nil {
			if !errors.Is(err, timeseries.ErrAlignmentBoundary) {
				return fail(fmt.Errorf("align depth: %w", err))
			}
			res.Clamped = true
			monitoring.Logf("%s: warning: depth %v", job.Source, err)
		}
		res.DepthLag, res.HasDepth = depthTime-t, true
	}
	res.Reached = Aligned

	rec := tags.Build(t, fix, sample, p.Profile)
	res.Reached = Tagged

	if err := p.Store.SaveTags(rec, job.Source, job.Dest); err != nil {
		return fail(err)
	}
	res.Record = rec
	res.Reached, res.State = Written, Written
	return res
}

// align returns a copy of the aligned sample and its time. Boundary
// errors come back with the clamped sample.
func align[T any](ix *timeseries.Index[T], t float64) (*T, float64, error) {
	s, i, err := ix.Align(t)
	if err != nil && !errors.Is(err, timeseries.ErrAlignmentBoundary) {
		return nil, 0, err
	}
	_, at := ix.At(i)
	return &s, at, err
}

func summarise(runID string, results []Result, ran []bool) Summary {
	sum := Summary{RunID: runID}
	var navLags, depthLags []float64
	for i, res := range results {
		if !ran[i] {
			continue
		}
		sum.Total++
		sum.Results = append(sum.Results, res)
		switch res.State {
		case Written:
			sum.Written++
		case Failed:
			sum.Failed++
		}
		if res.Clamped {
			sum.Clamped++
		}
		if res.HasNav {
			navLags = append(navLags, res.NavLag)
		}
		if res.HasDepth {
			depthLags = append(depthLags, res.DepthLag)
		}
	}
	sum.NavLag = lagStats(navLags)
	sum.DepthLag = lagStats(depthLags)
	return sum
}
