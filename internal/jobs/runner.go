package jobs

import (
	"context"

	"github.com/cdubvdub/fpl-power-meter-api/internal/portal"
)

type portalRunner struct {
	flow *portal.Flow
}

func (r *portalRunner) Run(ctx context.Context, mode portal.EntryMode, address, unit string) (*portal.LookupResult, error) {
	return r.flow.Run(ctx, mode, address, unit)
}

// PortalRunnerFactory opens a real browser session per call and binds a
// flow to it. The release func tears the whole session down.
func PortalRunnerFactory(opts portal.SessionOptions, portalURL, screenshotDir string, log portal.Logger) RunnerFactory {
	return func(params SessionParams) (Runner, func(), error) {
		sess, err := portal.OpenSession(opts)
		if err != nil {
			return nil, nil, err
		}
		flow := portal.NewFlow(sess.Page(), portal.FlowConfig{
			PortalURL:     portalURL,
			Creds:         params.Creds,
			TaxID:         params.TaxID,
			RequestorName: params.RequestorName,
			ScreenshotDir: screenshotDir,
		}, log)
		return &portalRunner{flow: flow}, sess.Close, nil
	}
}
