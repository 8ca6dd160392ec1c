package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/mrsinham/randimage/internal/pixel"
)

// Job pairs a request with its destination. A positive Instance numbers
// the image inside the series of Options.Encode.SeriesSeed (DICOM only).
type Job struct {
	Request  pixel.Request
	Sink     Sink
	Instance int
}

// RunBatch runs jobs on a pool of workers (0 = one per CPU, never more than
// jobs). Results come back in job order. The first failure cancels the jobs
// that have not started yet and is returned.
func (c *Coordinator) RunBatch(ctx context.Context, jobs []Job, workers int, progress func(done, total int)) ([]Result, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}
	c.log.Debug("starting batch", "jobs", len(jobs), "workers", numWorkers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		index  int
		result Result
		err    error
	}
	jobChan := make(chan int, len(jobs))
	resultChan := make(chan outcome, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				res, err := c.runJob(ctx, jobs[i])
				resultChan <- outcome{i, res, err}
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, len(jobs))
	completed := 0
	var firstErr error
	for o := range resultChan {
		results[o.index] = o.result
		if o.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("image %d: %w", o.index+1, o.err)
			cancel()
		}
		completed++
		if progress != nil {
			progress(completed, len(jobs))
		}
		if completed%10 == 0 || completed == len(jobs) {
			c.log.Info("progress", "done", completed, "total", len(jobs))
		}
	}

	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}
