// Package health provides liveness and readiness probes for the gateway.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scoremilk/chat-gateway/pkg/logger"
)

// Check represents a single health check that can succeed or fail.
type Check interface {
	// Name returns the human-readable name of this check
	Name() string

	// Check returns nil if healthy, an error if unhealthy
	Check(ctx context.Context) error
}

// CheckFunc adapts a plain function to the Check interface.
type CheckFunc struct {
	name string
	fn   func(context.Context) error
}

// NewCheckFunc creates a CheckFunc with the given name and function.
func NewCheckFunc(name string, fn func(context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the name of this check.
func (c *CheckFunc) Name() string { return c.name }

// Check executes the check function.
func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// Result is the outcome of a single check execution.
type Result struct {
	Name    string
	Healthy bool
	Error   string
	Latency time.Duration
}

// Status is the aggregate outcome of a probe.
type Status struct {
	Healthy bool
	Checks  []Result
}

// Checker manages and executes the gateway's liveness and readiness checks.
type Checker struct {
	livenessChecks  []Check
	readinessChecks []Check
	timeout         time.Duration
	log             logger.Logger
	mu              sync.RWMutex
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout sets the per-check timeout. Default is 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// WithLogger sets the logger for check failures.
func WithLogger(l logger.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// New creates a Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddLivenessCheck registers a check deciding whether the process should be
// restarted.
func (c *Checker) AddLivenessCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.livenessChecks = append(c.livenessChecks, check)
}

// AddReadinessCheck registers a check deciding whether the gateway can accept
// chat connections.
func (c *Checker) AddReadinessCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readinessChecks = append(c.readinessChecks, check)
}

// CheckLiveness executes all liveness checks.
func (c *Checker) CheckLiveness(ctx context.Context) (*Status, error) {
	c.mu.RLock()
	checks := c.livenessChecks
	c.mu.RUnlock()
	return c.execute(ctx, checks)
}

// CheckReadiness executes all readiness checks.
func (c *Checker) CheckReadiness(ctx context.Context) (*Status, error) {
	c.mu.RLock()
	checks := c.readinessChecks
	c.mu.RUnlock()
	return c.execute(ctx, checks)
}

func (c *Checker) execute(ctx context.Context, checks []Check) (*Status, error) {
	if len(checks) == 0 {
		// No checks configured, assume healthy.
		return &Status{Healthy: true, Checks: []Result{}}, nil
	}

	results := make([]Result, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(idx int, chk Check) {
			defer wg.Done()
			results[idx] = c.executeOne(ctx, chk)
		}(i, check)
	}
	wg.Wait()

	status := &Status{Healthy: true, Checks: results}
	var failed []string
	for _, r := range results {
		if !r.Healthy {
			status.Healthy = false
			failed = append(failed, r.Name)
		}
	}
	if !status.Healthy {
		return status, fmt.Errorf("health checks failed: %v", failed)
	}
	return status, nil
}

func (c *Checker) executeOne(parentCtx context.Context, check Check) Result {
	ctx, cancel := context.WithTimeout(parentCtx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check.Check(ctx)
	latency := time.Since(start)

	result := Result{Name: check.Name(), Healthy: err == nil, Latency: latency}
	if err != nil {
		result.Error = err.Error()
		if c.log != nil {
			c.log.Warn("health check failed",
				logger.StringField("check", check.Name()),
				logger.ErrorField(err),
				logger.DurationField("latency", latency))
		}
	}
	return result
}
