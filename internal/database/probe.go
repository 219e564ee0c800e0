package database

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const probeTimeout = 3 * time.Second

// Probe checks a single backing service.
type Probe struct {
	Name string
	Ping func(ctx context.Context) error
}

// CheckAll runs every probe concurrently, each bounded by its own timeout.
// The result maps probe names to "ok" or the error text; healthy is false
// when any probe failed.
func CheckAll(ctx context.Context, probes []Probe) (status map[string]string, healthy bool) {
	results := make([]error, len(probes))

	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			results[i] = p.Ping(pctx)
			return nil
		})
	}
	_ = g.Wait()

	status = make(map[string]string, len(probes))
	healthy = true
	for i, p := range probes {
		if results[i] != nil {
			status[p.Name] = results[i].Error()
			healthy = false
			continue
		}
		status[p.Name] = "ok"
	}
	return status, healthy
}
