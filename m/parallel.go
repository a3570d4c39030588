package m

import "golang.org/x/sync/errgroup"

// forEachNeuron runs body once per neuron index in [0, n) and waits for all
// of them. limit <= 0 runs one goroutine per neuron, limit == 1 runs the
// bodies in order on the calling goroutine. The first error is returned
// once every started body has finished.
func forEachNeuron(n, limit int, body func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if limit == 1 {
		for i := 0; i < n; i++ {
			if err := body(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	if limit > 1 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return body(i)
		})
	}
	return g.Wait()
}
