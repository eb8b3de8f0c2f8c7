// Package shutdown coordinates graceful teardown of the service: the HTTP
// listener stops first so no new runs start, then long-lived resources like
// the chunk index and provider clients are closed.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/nefro313/jobfit-ai-backend/logging"
)

// ErrAlreadyShutdown indicates shutdown was already initiated.
var ErrAlreadyShutdown = errors.New("shutdown already initiated")

// Phases order teardown. Lower phases run first.
const (
	// PhaseServer stops accepting new requests.
	PhaseServer = 10

	// PhaseWork drains in-flight pipeline runs.
	PhaseWork = 20

	// PhaseStorage closes indexes and persistent resources.
	PhaseStorage = 30
)

// Handler is a component teardown function. The context is cancelled when
// the shutdown timeout expires.
type Handler func(ctx context.Context) error

type registration struct {
	name    string
	phase   int
	handler Handler
}

// Coordinator runs registered handlers in phase order on shutdown.
type Coordinator struct {
	mu       sync.Mutex
	handlers []registration

	timeout time.Duration
	log     *logging.Logger

	once sync.Once
	done chan struct{}
	err  error
}

// NewCoordinator creates a coordinator with the given overall timeout.
func NewCoordinator(timeout time.Duration, log *logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logging.New()
	}
	return &Coordinator{
		timeout: timeout,
		log:     log.WithComponent("shutdown"),
		done:    make(chan struct{}),
	}
}

// Register adds a named handler to run in the given phase. Handlers within
// the same phase run in registration order.
func (c *Coordinator) Register(name string, phase int, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: handler})
}

// Notify blocks until SIGTERM or SIGINT arrives, then runs shutdown.
func (c *Coordinator) Notify() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	c.log.Info("signal received", map[string]interface{}{"signal": sig.String()})
	return c.Shutdown()
}

// Shutdown runs all handlers in phase order under the configured timeout.
// Subsequent calls return ErrAlreadyShutdown.
func (c *Coordinator) Shutdown() error {
	started := false
	c.once.Do(func() {
		started = true
		c.err = c.run()
		close(c.done)
	})
	if !started {
		select {
		case <-c.done:
			return c.err
		default:
			return ErrAlreadyShutdown
		}
	}
	return c.err
}

// Done is closed when shutdown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) run() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	var firstErr error
	for _, reg := range handlers {
		start := time.Now()
		err := reg.handler(ctx)
		if err != nil {
			c.log.Error("handler failed", map[string]interface{}{
				"handler": reg.name,
				"error":   err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.log.Info("handler complete", map[string]interface{}{
			"handler":  reg.name,
			"duration": time.Since(start).String(),
		})
	}
	return firstErr
}
