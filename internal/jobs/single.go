package jobs

import (
	"context"
	"fmt"

	"github.com/cdubvdub/fpl-power-meter-api/internal/portal"
	"github.com/cdubvdub/fpl-power-meter-api/internal/rows"
)

// LookupSingle runs one address on a dedicated session, cold, and
// waits for the result. Nothing is persisted. The browser keeps
// running to completion even if the caller gives up; only the wait is
// cut short.
func (s *Scheduler) LookupSingle(ctx context.Context, params SessionParams, row rows.NormalizedRow) (*portal.LookupResult, error) {
	runner, release, err := s.factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %v", err)
	}

	type outcome struct {
		res *portal.LookupResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer release()
		res, err := runner.Run(context.Background(), portal.ColdEntry, row.Address, row.Unit)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
