package gos2pcore

import "sync"

type job struct {
	index int
	path  string
}

type result struct {
	index int
	res   FileResult
}

// FileResult is the outcome of decoding one path with DecodeFiles.
type FileResult struct {
	Path string
	Data *Data
	Err  error
}

// DecodeFiles decodes paths with up to workers goroutines. Results are in
// the same order as paths; one failing file does not stop the others.
func DecodeFiles(paths []string, workers int, opts ...Option) []FileResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan job, len(paths))
	results := make(chan result, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				d, err := DecodeFile(j.path, opts...)
				results <- result{index: j.index, res: FileResult{Path: j.path, Data: d, Err: err}}
			}
		}()
	}

	for i, p := range paths {
		jobs <- job{index: i, path: p}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	final := make([]FileResult, len(paths))
	for r := range results {
		final[r.index] = r.res
	}
	return final
}
