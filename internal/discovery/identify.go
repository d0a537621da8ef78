// internal/discovery/identify.go
package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"escpos-bridge/internal/discovery/snmp"
)

// Identifier resolves the identity of one responder
type Identifier interface {
	Identify(ctx context.Context, host string) (*snmp.Identity, error)
}

// IdentifyAll runs the identification query for every device, at most
// concurrency at a time. A failed query leaves the device unidentified and
// is only logged. A nil identifier is a no-op.
func IdentifyAll(ctx context.Context, identifier Identifier, devices []*DiscoveredDevice, concurrency int, timeout time.Duration, logger *zap.Logger) {
	if identifier == nil || len(devices) == 0 {
		return
	}
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, device := range devices {
		g.Go(func() error {
			qctx := gctx
			if timeout > 0 {
				var cancel context.CancelFunc
				qctx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}

			identity, err := identifier.Identify(qctx, device.Host)
			if err != nil {
				logger.Warn("Printer identification failed",
					zap.Error(&DiscoveryError{Kind: KindIdentificationFailed, Host: device.Host, Err: err}),
				)
				return nil
			}

			device.Name = identity.Name
			device.Description = identity.Description
			device.HardwareDescription = identity.HardwareDescription
			device.Identified = true
			return nil
		})
	}
	_ = g.Wait()
}
