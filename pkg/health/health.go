// Package health exposes liveness and readiness endpoints. Registered checks
// run periodically in a single background goroutine; endpoint handlers only
// read the latest results, so probes stay cheap under load.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// CheckFunc probes one component; nil means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	failed atomic.Pointer[string] // last failure message, nil when healthy
}

func (c *check) run(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.fn(cctx); err != nil {
		msg := err.Error()
		c.failed.Store(&msg)
		return
	}
	c.failed.Store(nil)
}

// Service aggregates health checks behind /livez and /readyz style handlers.
type Service struct {
	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	ready     atomic.Bool
	stop      context.CancelFunc
	done      chan struct{}
}

// New creates an empty health service. The service reports not-ready until
// SetReady(true) is called.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check that gates the liveness endpoint.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, &check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check that gates the readiness endpoint.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, &check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness gate; used to drain before shutdown.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start runs all checks now and then every interval until Stop or ctx
// cancellation.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.done = make(chan struct{})

	runAll := func() {
		s.mu.Lock()
		all := append(append([]*check{}, s.liveness...), s.readiness...)
		s.mu.Unlock()
		for _, c := range all {
			c.run(ctx)
		}
	}
	runAll()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runAll()
			}
		}
	}()
}

// Stop halts the background check loop.
func (s *Service) Stop() {
	if s.stop != nil {
		s.stop()
		<-s.done
	}
}

func report(checks []*check) (map[string]string, bool) {
	out := make(map[string]string, len(checks))
	healthy := true
	for _, c := range checks {
		if msg := c.failed.Load(); msg != nil {
			out[c.name] = *msg
			healthy = false
		} else {
			out[c.name] = "ok"
		}
	}
	return out, healthy
}

func respond(w http.ResponseWriter, details map[string]string, healthy bool) {
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(details)
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := append([]*check{}, s.liveness...)
	s.mu.Unlock()
	details, healthy := report(checks)
	respond(w, details, healthy)
}

// ReadyEndpoint serves the readiness probe; it fails while the manual gate is
// down regardless of check results.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := append([]*check{}, s.readiness...)
	s.mu.Unlock()
	details, healthy := report(checks)
	if !s.ready.Load() {
		details["ready"] = "not ready"
		healthy = false
	}
	respond(w, details, healthy)
}

// GoroutineCountCheck fails when the process exceeds threshold goroutines,
// catching runaway leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("too many goroutines: %d > %d", n, threshold)
		}
		return nil
	}
}
