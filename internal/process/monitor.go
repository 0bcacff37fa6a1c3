package process

import (
	"time"

	gopsproc "github.com/shirou/gopsutil/v3/process"
)

// SubscribeViolations returns a bounded channel of resource violations,
// mirroring SubscribeEvents (spec §4.3's resource monitor: "emits events
// and leaves policy to the engine").
func (s *Supervisor) SubscribeViolations() <-chan Violation {
	ch := make(chan Violation, eventBufferCapacity)
	s.subMu.Lock()
	s.violationSubs = append(s.violationSubs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Supervisor) emitViolation(v Violation) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.violationSubs {
		select {
		case ch <- v:
		default:
			s.log.Warn().Str("instance_id", v.InstanceID).Msg("resource violation dropped, subscriber full")
		}
	}
}

// resourceLoop periodically samples each running child's RSS and CPU%
// via gopsutil, grounded on linkflow-ai's monitoring_service.go ticker
// loop shape but sampling per-child instead of host-wide.
func (s *Supervisor) resourceLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.resourceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sampleResources()
		}
	}
}

func (s *Supervisor) sampleResources() {
	s.mu.RLock()
	type target struct {
		id     string
		pid    int
		limits Limits
	}
	var targets []target
	for id, c := range s.children {
		if c.info.Status != StatusRunning {
			continue
		}
		targets = append(targets, target{id: id, pid: c.info.PID, limits: c.limits})
	}
	s.mu.RUnlock()

	for _, t := range targets {
		proc, err := gopsproc.NewProcess(int32(t.pid))
		if err != nil {
			continue
		}
		if t.limits.MaxMemoryMB > 0 {
			if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
				rssMB := float64(mem.RSS) / (1024 * 1024)
				if rssMB > t.limits.MaxMemoryMB {
					s.emitViolation(Violation{
						InstanceID: t.id,
						Limit:      "max_memory_mb",
						Value:      rssMB,
						Threshold:  t.limits.MaxMemoryMB,
						Timestamp:  time.Now(),
					})
				}
			}
		}
		if t.limits.MaxCPUPct > 0 {
			if pct, err := proc.CPUPercent(); err == nil && pct > t.limits.MaxCPUPct {
				s.emitViolation(Violation{
					InstanceID: t.id,
					Limit:      "max_cpu_pct",
					Value:      pct,
					Threshold:  t.limits.MaxCPUPct,
					Timestamp:  time.Now(),
				})
			}
		}
	}
}
