package phonograph

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Option provides a way to set functional parameters to context.
type Option func(*Context)

// WithLogger sets logger for context lifecycle messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Context) {
		c.logger = l
	}
}

// WithName sets context name.
func WithName(name string) Option {
	return func(c *Context) {
		c.name = name
	}
}

// WithQuantumSize sets number of frames rendered per quantum.
func WithQuantumSize(frames int) Option {
	return func(c *Context) {
		c.quantumSize = frames
	}
}

// WithLockTimeout sets how long realtime render waits for the graph lock
// before it renders a silent quantum.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Context) {
		c.lockTimeout = d
	}
}

// WithMetric enables expvar metrics of nodes created in context.
func WithMetric() Option {
	return func(c *Context) {
		c.metered = true
	}
}

// WithChangeQueueSize sets capacity of pending changes queue.
func WithChangeQueueSize(n int) Option {
	return func(c *Context) {
		c.changeQueueSize = n
	}
}

// WithEventQueueSize sets capacity of ended events queue.
func WithEventQueueSize(n int) Option {
	return func(c *Context) {
		c.eventQueueSize = n
	}
}
