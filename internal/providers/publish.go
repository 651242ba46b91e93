package providers

import (
	"context"
	"sync"

	"github.com/marshally/pr-agent/pkg/models"
)

// defaultPublishWorkers bounds concurrent comment-publishing calls per
// invocation. Comments target disjoint anchors, so ordering among them
// does not matter; the provider serializes on its side.
const defaultPublishWorkers = 4

// PublishEach runs post once per comment across a small worker pool and
// collects one result per comment, in input order. Workers already running
// when ctx is cancelled finish their call so a half-posted review is not
// abandoned mid-request; remaining comments are reported with ctx.Err().
func PublishEach(ctx context.Context, comments []models.ProviderComment, post func(context.Context, models.ProviderComment) error) []PublishResult {
	results := make([]PublishResult, len(comments))
	if len(comments) == 0 {
		return results
	}

	workers := defaultPublishWorkers
	if len(comments) < workers {
		workers = len(comments)
	}

	// Calls that have already started run to completion even if ctx is
	// cancelled; only queued comments are abandoned.
	postCtx := context.WithoutCancel(ctx)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = PublishResult{Comment: comments[i], Err: err}
					continue
				}
				results[i] = PublishResult{Comment: comments[i], Err: post(postCtx, comments[i])}
			}
		}()
	}

	for i := range comments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
