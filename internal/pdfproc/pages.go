package pdfproc

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/book-expert/greenboard-print-service/internal/raster"
)

// pageJob represents a single task for a worker: run one page through the
// inversion pipeline.
type pageJob struct {
	page  image.Image
	index int
}

// processPages runs every page through the inversion pipeline using a worker
// pool. Workers write results into a slice indexed by page number, so the
// output order always matches the input order regardless of scheduling.
func (processor *Processor) processPages(
	ctx context.Context,
	pages []image.Image,
) ([]image.Image, error) {
	jobs := make(chan pageJob, len(pages))
	results := make([]image.Image, len(pages))
	failures := make([]error, len(pages))

	pipelineOpts := processor.pipelineOptions()

	pageProgressBar := pb.New(len(pages)).
		SetTemplateString(`  {{ bar . " " "▸" "▹" " " " "}} {{percent .}} {{etime .}}`).
		SetWriter(processor.config.ProgressBarOutput).
		Start()
	defer pageProgressBar.Finish()

	var waitGroup sync.WaitGroup

	for range processor.config.Workers {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			for job := range jobs {
				if ctx.Err() != nil {
					failures[job.index] = ctx.Err()

					continue
				}

				processed, processErr := raster.ProcessPage(
					job.page,
					pipelineOpts,
				)
				if processErr != nil {
					failures[job.index] = processErr

					continue
				}

				results[job.index] = processed

				pageProgressBar.Increment()
			}
		}()
	}

	for index, page := range pages {
		jobs <- pageJob{page: page, index: index}
	}

	close(jobs)

	waitGroup.Wait()

	// A failed page must not silently drop out of the sequence; report the
	// first failure and let the batch driver decide skip-vs-abort.
	for index, failure := range failures {
		if failure != nil {
			return nil, fmt.Errorf("page %d: %w", index+1, failure)
		}
	}

	return results, nil
}
