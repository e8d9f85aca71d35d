// Package health runs concurrent probes against the lexical index, vector
// store, and Merkle snapshot, and rolls the results up into one overall
// status.
package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localcode/codescope/internal/lexical"
	"github.com/localcode/codescope/internal/vector"
)

// Status is a component or overall health level.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth is one probe's outcome.
type ComponentHealth struct {
	Status    Status
	Message   string
	LatencyMS *int64
}

func healthyComponent(message string, latency *int64) ComponentHealth {
	return ComponentHealth{Status: StatusHealthy, Message: message, LatencyMS: latency}
}

func degradedComponent(message string) ComponentHealth {
	return ComponentHealth{Status: StatusDegraded, Message: message}
}

func unhealthyComponent(message string) ComponentHealth {
	return ComponentHealth{Status: StatusUnhealthy, Message: message}
}

// SystemHealth is the full health report.
type SystemHealth struct {
	Overall Status
	Lexical ComponentHealth
	Vector  ComponentHealth
	Merkle  ComponentHealth
}

// Monitor probes the three stores that back hybrid search.
type Monitor struct {
	lex        *lexical.Index
	vec        *vector.Store
	merklePath string
}

// New constructs a Monitor. lex or vec may be nil, which probes report as
// Degraded ("not configured") rather than failing outright.
func New(lex *lexical.Index, vec *vector.Store, merklePath string) *Monitor {
	return &Monitor{lex: lex, vec: vec, merklePath: merklePath}
}

// CheckHealth runs all three probes concurrently and rolls them up.
func (m *Monitor) CheckHealth(ctx context.Context) SystemHealth {
	var lexHealth, vecHealth, merkleHealth ComponentHealth

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexHealth = m.checkLexical(gctx)
		return nil
	})
	g.Go(func() error {
		vecHealth = m.checkVector(gctx)
		return nil
	})
	g.Go(func() error {
		merkleHealth = m.checkMerkle()
		return nil
	})
	_ = g.Wait() // each probe recovers its own error into a ComponentHealth

	return SystemHealth{
		Overall: overallStatus(lexHealth, vecHealth, merkleHealth),
		Lexical: lexHealth,
		Vector:  vecHealth,
		Merkle:  merkleHealth,
	}
}

func (m *Monitor) checkLexical(ctx context.Context) ComponentHealth {
	if m.lex == nil {
		return degradedComponent("lexical index not configured")
	}

	start := time.Now()
	if _, err := m.lex.Search(ctx, "__health_check__", 1); err != nil {
		return unhealthyComponent(fmt.Sprintf("lexical search error: %v", err))
	}
	latency := time.Since(start).Milliseconds()
	return healthyComponent("lexical index operational", &latency)
}

func (m *Monitor) checkVector(ctx context.Context) ComponentHealth {
	if m.vec == nil {
		return degradedComponent("vector store not configured")
	}

	start := time.Now()
	if err := m.vec.HealthCheck(ctx); err != nil {
		return unhealthyComponent(fmt.Sprintf("vector store error: %v", err))
	}
	latency := time.Since(start).Milliseconds()
	return healthyComponent(fmt.Sprintf("vector store operational (%d vectors)", m.vec.Count()), &latency)
}

func (m *Monitor) checkMerkle() ComponentHealth {
	info, err := os.Stat(m.merklePath)
	if os.IsNotExist(err) {
		return degradedComponent("merkle snapshot not found (first index pending)")
	}
	if err != nil {
		return degradedComponent(fmt.Sprintf("merkle snapshot unreadable: %v", err))
	}
	return healthyComponent(fmt.Sprintf("merkle snapshot exists (%d bytes)", info.Size()), nil)
}

// overallStatus rolls up component statuses: both search legs unhealthy is
// system-unhealthy; any single degraded/unhealthy component is
// system-degraded; otherwise healthy.
func overallStatus(lex, vec, merkle ComponentHealth) Status {
	if lex.Status == StatusUnhealthy && vec.Status == StatusUnhealthy {
		return StatusUnhealthy
	}

	hasDegraded := lex.Status != StatusHealthy || vec.Status != StatusHealthy ||
		merkle.Status != StatusHealthy
	if hasDegraded {
		return StatusDegraded
	}

	return StatusHealthy
}
