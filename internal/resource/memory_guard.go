// Package resource clamps pipeline concurrency to the memory actually
// available on the host. Each render worker may launch a browser process, and
// an overcommitted host kills captures mid-flight.
package resource

import (
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// MemoryGuard reduces the requested worker count when available memory cannot
// cover one browser process per worker.
type MemoryGuard struct {
	reserveBytes   uint64
	perWorkerBytes uint64
	logger         *zap.Logger
}

// NewMemoryGuard builds a guard. reserveBytes is kept free for the process
// itself; perWorkerBytes is the budget for one concurrent browser session.
func NewMemoryGuard(reserveBytes, perWorkerBytes uint64, logger *zap.Logger) *MemoryGuard {
	if perWorkerBytes == 0 {
		perWorkerBytes = 512 << 20
	}
	return &MemoryGuard{
		reserveBytes:   reserveBytes,
		perWorkerBytes: perWorkerBytes,
		logger:         logger,
	}
}

// ClampWorkers returns the largest worker count, at most requested and at
// least one, that fits the current memory budget. Probe failures leave the
// request untouched.
func (g *MemoryGuard) ClampWorkers(requested int) int {
	if requested <= 1 {
		return requested
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		g.logger.Warn("memory probe failed, keeping requested concurrency", zap.Error(err))
		return requested
	}
	available := vm.Available
	if available <= g.reserveBytes {
		g.logger.Warn("low memory, clamping to one worker",
			zap.Uint64("available", available),
		)
		return 1
	}
	budget := int((available - g.reserveBytes) / g.perWorkerBytes)
	if budget < 1 {
		budget = 1
	}
	if budget < requested {
		g.logger.Info("memory guard reduced concurrency",
			zap.Int("requested", requested),
			zap.Int("granted", budget),
		)
		return budget
	}
	return requested
}
