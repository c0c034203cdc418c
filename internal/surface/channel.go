package surface

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Serdar715/xssdetective/internal/deferred"
	"github.com/Serdar715/xssdetective/internal/page"
)

// DefaultTimeout bounds how long a frame may stay unready.
const DefaultTimeout = 15 * time.Second

// Channel runs submissions through hidden frames. Each Submit gets its own
// frame and goroutine; nothing is queued unless MaxInFlight is set.
type Channel struct {
	engine      Engine
	timeout     time.Duration
	maxInFlight int
	log         logrus.FieldLogger
	breaker     *Breaker

	sem     chan struct{}
	created atomic.Int64

	mu     sync.Mutex
	frames map[string]*Frame
}

// Option configures a Channel.
type Option func(*Channel)

// WithTimeout sets the per-frame readiness deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxInFlight caps concurrent submissions. Zero means unbounded.
func WithMaxInFlight(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.maxInFlight = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Channel) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBreaker fails submissions fast while b is open. Nil disables it.
func WithBreaker(b *Breaker) Option {
	return func(c *Channel) {
		c.breaker = b
	}
}

// NewChannel creates a channel submitting through engine.
func NewChannel(engine Engine, opts ...Option) *Channel {
	quiet := logrus.New()
	quiet.Out = io.Discard
	c := &Channel{
		engine:  engine,
		timeout: DefaultTimeout,
		log:     quiet,
		frames:  make(map[string]*Frame),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxInFlight > 0 {
		c.sem = make(chan struct{}, c.maxInFlight)
	}
	return c
}

// Submit opens a frame for (field, payload) and returns a Deferred resolved
// with the frame's document once it is ready. It never blocks. A frame that
// is not ready within the timeout rejects with a *TimeoutError. The frame is
// disposed before the Deferred settles.
func (c *Channel) Submit(ctx context.Context, field page.Field, payload string) *deferred.Deferred[*page.Document] {
	frame := newFrame(field, payload)
	d := deferred.New[*page.Document]()

	c.created.Add(1)
	c.mu.Lock()
	c.frames[frame.Name] = frame
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"frame": frame.Name,
		"field": field.ID.String(),
	}).Debug("frame opened")

	go c.run(ctx, frame, d)
	return d
}

func (c *Channel) run(ctx context.Context, frame *Frame, d *deferred.Deferred[*page.Document]) {
	if c.sem != nil {
		select {
		case c.sem <- struct{}{}:
			defer func() { <-c.sem }()
		case <-ctx.Done():
			c.dispose(frame)
			d.Reject(c.submitError("wait for slot", frame, ctx.Err()))
			return
		}
	}

	if c.breaker != nil && !c.breaker.Allow() {
		c.log.WithFields(logrus.Fields{
			"frame":    frame.Name,
			"failures": c.breaker.FailureCount(),
		}).Debug("engine unhealthy, submission rejected")
		c.dispose(frame)
		d.Reject(c.submitError("submit", frame, ErrEngineUnhealthy))
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- c.engine.Submit(runCtx, frame)
	}()

	for {
		select {
		case <-frame.Ready():
			c.dispose(frame)
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			c.log.WithField("frame", frame.Name).Debug("frame ready")
			d.Resolve(frame.Document())
			return

		case err := <-errc:
			errc = nil
			if err == nil {
				// the engine returned; a load may still be on its way
				continue
			}
			select {
			case <-frame.Ready():
				continue
			default:
			}
			c.dispose(frame)
			if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || runCtx.Err() != nil) {
				d.Reject(c.timeoutError(frame))
				return
			}
			if c.breaker != nil && ctx.Err() == nil {
				c.breaker.RecordFailure()
			}
			d.Reject(c.submitError("submit", frame, err))
			return

		case <-runCtx.Done():
			c.dispose(frame)
			if ctx.Err() != nil {
				d.Reject(c.submitError("submit", frame, ctx.Err()))
				return
			}
			c.log.WithFields(logrus.Fields{
				"frame": frame.Name,
				"loads": frame.Loads(),
			}).Warn("frame timed out")
			d.Reject(c.timeoutError(frame))
			return
		}
	}
}

func (c *Channel) timeoutError(frame *Frame) error {
	return &TimeoutError{Frame: frame.Name, Field: frame.Field.DisplayName(), After: c.timeout}
}

func (c *Channel) submitError(op string, frame *Frame, cause error) error {
	action := ""
	if form := frame.Field.Form(); form != nil && form.Action != nil {
		action = form.Action.String()
	}
	return &SubmitError{
		Operation: op,
		URL:       action,
		Field:     frame.Field.DisplayName(),
		Payload:   frame.Payload,
		Cause:     cause,
	}
}

func (c *Channel) dispose(frame *Frame) {
	c.mu.Lock()
	delete(c.frames, frame.Name)
	c.mu.Unlock()
}

// InFlight returns the names of frames not yet disposed, sorted.
func (c *Channel) InFlight() []string {
	c.mu.Lock()
	names := make([]string, 0, len(c.frames))
	for name := range c.frames {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)
	return names
}

// Created counts the frames this channel has opened.
func (c *Channel) Created() int {
	return int(c.created.Load())
}
