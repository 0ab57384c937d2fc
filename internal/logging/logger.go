// Package logging provides categorized structured logging for reelsmith.
// Every subsystem logs through a named child of a single zap logger so
// categories can be filtered downstream. Until Initialize is called the
// package is a no-op, which keeps tests quiet by default.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategorySession    Category = "session"    // Session store, phase transitions
	CategoryIntent     Category = "intent"     // Intent extraction and merging
	CategoryContext    Category = "context"    // Token budget, compression
	CategoryAPI        Category = "api"        // LLM completion calls
	CategoryResilience Category = "resilience" // Retry, circuit breaker
	CategoryRouting    Category = "routing"    // Mode routing, phase handlers
	CategoryPricing    Category = "pricing"    // Cost estimation, catalog reloads
	CategoryCapability Category = "capability" // Provider selection
	CategoryStyles     Category = "styles"     // Style recommendation client
	CategoryServer     Category = "server"     // HTTP API
)

var (
	mu   sync.RWMutex
	base = zap.NewNop().Sugar()
)

// Initialize installs the process-wide logger. Call once at startup.
func Initialize(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l.Sugar()
}

// Get returns the logger for a category.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.Named(string(c))
}

// Convenience helpers for the chattiest categories.

func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debugf(format, args...)
}

func ContextDebug(format string, args ...interface{}) {
	Get(CategoryContext).Debugf(format, args...)
}

func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debugf(format, args...)
}

func ResilienceDebug(format string, args ...interface{}) {
	Get(CategoryResilience).Debugf(format, args...)
}

func RoutingDebug(format string, args ...interface{}) {
	Get(CategoryRouting).Debugf(format, args...)
}

// Timer measures the duration of an operation and logs it on Stop.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() {
	Get(t.category).Debugf("%s took %s", t.operation, time.Since(t.start).Round(time.Millisecond))
}
