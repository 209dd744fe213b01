package printer

import (
	"context"
	"log/slog"
	"time"
)

// Monitor periodically rescans for printers and reports arrivals and removals
type Monitor struct {
	manager  *Manager
	logger   *slog.Logger
	interval time.Duration
	previous map[string]*Printer
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewMonitor creates a new printer monitor
func NewMonitor(manager *Manager, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		manager:  manager,
		logger:   logger,
		interval: interval,
		previous: make(map[string]*Printer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins monitoring. The current printers form the baseline.
func (m *Monitor) Start() {
	for _, p := range m.manager.GetAllPrinters() {
		m.previous[p.ID] = p
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.checkChanges()
			}
		}
	}()
}

// Stop stops the monitor and waits for an in-flight scan
func (m *Monitor) Stop() {
	m.cancel()
	<-m.done
}

func (m *Monitor) checkChanges() {
	printers, err := m.manager.DetectPrinters()
	if err != nil {
		m.logger.Warn("printer rescan failed", "err", err)
		return
	}

	current := make(map[string]*Printer, len(printers))
	for _, p := range printers {
		current[p.ID] = p
	}

	added, removed := m.manager.callbacks()

	for id, p := range current {
		if _, ok := m.previous[id]; !ok {
			m.logger.Info("printer added", "id", id, "description", p.Description)
			if added != nil {
				added(p)
			}
		}
	}

	for id, p := range m.previous {
		if _, ok := current[id]; !ok {
			m.logger.Info("printer removed", "id", id, "description", p.Description)
			if removed != nil {
				removed(id)
			}
		}
	}

	m.previous = current
}
