package preprocess

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelRows splits [0,h) into contiguous chunks and runs fn on each chunk
// concurrently. fn must only write rows inside its own chunk.
func parallelRows(h int, fn func(y0, y1 int)) {
	if h <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > h {
		workers = h
	}
	chunk := (h + workers - 1) / workers
	var g errgroup.Group
	for y0 := 0; y0 < h; y0 += chunk {
		y1 := min(y0+chunk, h)
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}
