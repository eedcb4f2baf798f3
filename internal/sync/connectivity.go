package sync

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

// Monitor probes the upstream health endpoint and reports connectivity
// transitions. It stands in for the browser's online/offline events: the
// engine debounces the restore side with its settle delay.
type Monitor struct {
	url      string
	client   *http.Client
	interval time.Duration
	onChange func(online bool)

	online  atomic.Bool
	started atomic.Bool
	stopCh  chan struct{}
}

// NewMonitor creates a monitor that probes url every interval and calls
// onChange on each transition.
func NewMonitor(url string, client *http.Client, interval time.Duration, onChange func(online bool)) *Monitor {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		url:      url,
		client:   client,
		interval: interval,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
}

// Start probes once immediately, then on every tick.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		m.check()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stopCh:
				return
			}
		}
	}()
	log.Printf("[Monitor] Started - probing %s every %v", m.url, m.interval)
}

// Stop ends the probe loop.
func (m *Monitor) Stop() {
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
}

// Online reports the last probe result.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// CheckNow runs one probe immediately and returns the result.
func (m *Monitor) CheckNow() bool {
	return m.check()
}

func (m *Monitor) check() bool {
	online := m.probe()
	was := m.online.Swap(online)
	if was != online && m.onChange != nil {
		if online {
			log.Printf("[Monitor] Upstream reachable")
		} else {
			log.Printf("[Monitor] Upstream unreachable")
		}
		m.onChange(online)
	}
	return online
}

func (m *Monitor) probe() bool {
	timeout := m.client.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
