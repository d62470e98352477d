package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/fpvtools/blackbox-analysis/internal/storage"
)

// job is one estimator invocation over one (axis, channel) pair. run returns
// the JSON-serializable result payload.
type job struct {
	kind    string
	axis    string
	channel string
	params  any
	run     func() (any, error)
}

// runJobs fans the jobs out across a bounded worker pool and collects the
// successful payloads as storable results. Estimator failures are logged per
// job and never abort the other jobs; cancellation does.
func runJobs(ctx context.Context, logger *slog.Logger, jobs []job) []storage.Result {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(jobs) {
		workers = len(jobs)
	}

	in := make(chan job)
	out := make(chan storage.Result, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range in {
				res, err := execute(j)
				if err != nil {
					logger.Warn("estimator failed",
						slog.String("kind", j.kind),
						slog.String("axis", j.axis),
						slog.String("channel", j.channel),
						slog.String("error", err.Error()))
					continue
				}
				out <- res
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case in <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(in)
	wg.Wait()
	close(out)

	results := make([]storage.Result, 0, len(jobs))
	for r := range out {
		results = append(results, r)
	}
	return results
}

func execute(j job) (storage.Result, error) {
	payload, err := j.run()
	if err != nil {
		return storage.Result{}, err
	}

	params, err := paramsKey(j)
	if err != nil {
		return storage.Result{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return storage.Result{}, fmt.Errorf("marshaling payload: %w", err)
	}

	return storage.Result{
		Kind:    j.kind,
		Axis:    j.axis,
		Channel: j.channel,
		Params:  params,
		Payload: string(body),
	}, nil
}

// paramsKey canonicalizes a job's estimator parameters into the string the
// result cache is keyed by.
func paramsKey(j job) (string, error) {
	b, err := json.Marshal(j.params)
	if err != nil {
		return "", fmt.Errorf("marshaling params: %w", err)
	}
	return string(b), nil
}
