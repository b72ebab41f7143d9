// Package fileproc provides concurrent fan-out utilities for the
// embarrassingly parallel pipeline steps: per-file extraction during
// ingest and per-snippet signature generation during indexing.
package fileproc

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkerMultiplier is applied to NumCPU for the worker count.
// 2x suits the mixed I/O and CPU profile of extraction and hashing.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each item is processed.
type ProgressFunc func()

// ErrorFunc is called when an item fails. If nil, errors are skipped
// silently.
type ErrorFunc func(path string, err error)

// MapOrdered processes items in parallel and returns results aligned
// with the input order: results[i] corresponds to items[i], with ok[i]
// false for items whose fn returned an error. Order preservation keeps
// downstream record emission deterministic regardless of worker
// scheduling. If maxWorkers is <= 0, defaults to 2x NumCPU.
func MapOrdered[S any, T any](items []S, maxWorkers int, name func(S) string, fn func(int, S) (T, error), onProgress ProgressFunc, onError ErrorFunc) (results []T, ok []bool) {
	if len(items) == 0 {
		return nil, nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	results = make([]T, len(items))
	ok = make([]bool, len(items))

	p := pool.New().WithMaxGoroutines(maxWorkers)
	for i, item := range items {
		p.Go(func() {
			result, err := fn(i, item)
			if err != nil {
				if onError != nil {
					onError(name(item), err)
				}
			} else {
				results[i] = result
				ok[i] = true
			}
			if onProgress != nil {
				onProgress()
			}
		})
	}
	p.Wait()

	return results, ok
}

// ForEachFile processes file paths in parallel, collecting successful
// results in input order.
func ForEachFile[T any](files []string, fn func(string) (T, error), onProgress ProgressFunc, onError ErrorFunc) []T {
	results, ok := MapOrdered(files, 0,
		func(path string) string { return path },
		func(_ int, path string) (T, error) { return fn(path) },
		onProgress, onError)

	kept := make([]T, 0, len(results))
	for i, r := range results {
		if ok[i] {
			kept = append(kept, r)
		}
	}
	return kept
}
