package roomsweep

import (
	"context"
	"time"

	"roomsync/internal/registry"

	"go.uber.org/zap"
)

// Run drops empty rooms from the registry every interval.
func Run(ctx context.Context, reg *registry.Registry, every time.Duration) {
	tk := time.NewTicker(every)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if n := reg.Sweep(); n > 0 {
					zap.L().Debug("roomsweep.collected", zap.Int("rooms", n), zap.Int("left", reg.Len()))
				}
			}
		}
	}()
}
