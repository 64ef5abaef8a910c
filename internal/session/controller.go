package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/docquiz/internal/quiz"
)

// tickInterval is the countdown cadence.
const tickInterval = time.Second

// tickWriteTimeout bounds the persistence write made on each tick.
const tickWriteTimeout = 2 * time.Second

// SubmitEvent describes the end of a session.
type SubmitEvent struct {
	State  State
	Reason SubmitReason

	// Err is the persistence failure of the final write, if any.
	Err error
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithPersistence saves the session as it changes.
func WithPersistence(p *Persistence) Option {
	return func(c *Controller) { c.persist = p }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log.With().Str("component", "session").Logger() }
}

// OnSubmit registers fn to run once when the session ends.
func OnSubmit(fn func(SubmitEvent)) Option {
	return func(c *Controller) { c.onSubmit = append(c.onSubmit, fn) }
}

// OnChange registers fn to run after every state change, ticks included.
func OnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = append(c.onChange, fn) }
}

// Controller is the timed state machine of one session. All operations are
// serialized; hooks run after the operation completes, outside the lock.
type Controller struct {
	mu      sync.Mutex
	store   *Store
	sched   Scheduler
	persist *Persistence
	log     zerolog.Logger

	onSubmit []func(SubmitEvent)
	onChange []func(State)

	cancel func()
	gen    uint64
	closed bool
}

func newController(st *Store, opts []Option) *Controller {
	c := &Controller{
		store: st,
		sched: SystemScheduler{},
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// New starts a session over qs. With persistence configured the question
// set, empty trace and full budget are saved before the timer starts.
func New(ctx context.Context, qs *quiz.QuestionSet, opts ...Option) (*Controller, error) {
	st, err := NewStore(qs)
	if err != nil {
		return nil, err
	}
	c := newController(st, opts)

	if c.persist != nil {
		if err := c.saveInitial(ctx); err != nil {
			// Leave nothing a later Resume could mix with older keys.
			if cerr := c.persist.Clear(ctx); cerr != nil {
				c.log.Warn().Err(cerr).Msg("failed to clear partial session")
			}
			return nil, err
		}
	}

	c.mu.Lock()
	c.arm()
	c.mu.Unlock()

	c.log.Info().
		Int("questions", st.qs.Len()).
		Str("difficulty", st.qs.Difficulty.String()).
		Int("seconds", st.remaining).
		Msg("session started")
	return c, nil
}

func (c *Controller) saveInitial(ctx context.Context) error {
	if err := c.persist.SaveQuestionSet(ctx, c.store.qs); err != nil {
		return err
	}
	if err := c.persist.SaveAnswers(ctx, c.store.answers); err != nil {
		return err
	}
	return c.persist.SaveRemaining(ctx, c.store.remaining)
}

// Resume rebuilds the session saved in p and continues its countdown. A
// session saved with no time left comes back already submitted.
func Resume(ctx context.Context, p *Persistence, opts ...Option) (*Controller, error) {
	saved, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	st, err := restoreStore(saved.QuestionSet, saved.Answers, saved.RemainingSeconds)
	if err != nil {
		return nil, err
	}
	c := newController(st, append(opts, WithPersistence(p)))

	c.mu.Lock()
	if st.phase == PhaseActive {
		c.arm()
	}
	c.mu.Unlock()

	c.log.Info().
		Int("answered", st.answers.AnsweredCount()).
		Int("seconds", st.remaining).
		Str("phase", st.phase.String()).
		Msg("session resumed")
	return c, nil
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// SelectAnswer records option for the current question. It never moves to
// another question.
func (c *Controller) SelectAnswer(ctx context.Context, option int) (State, error) {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return c.State(), err
	}
	idx := c.store.current
	if option < 0 || option >= c.store.optionCount(idx) {
		c.mu.Unlock()
		return c.State(), fmt.Errorf("option %d: %w", option, ErrIndexOutOfRange)
	}
	if err := c.store.Answer(idx, option); err != nil {
		c.mu.Unlock()
		return c.State(), err
	}

	var perr error
	if c.persist != nil {
		perr = c.persist.SaveAnswers(ctx, c.store.answers)
	}
	snap := c.store.Snapshot()
	c.mu.Unlock()

	c.changed(snap)
	return snap, perr
}

// GoNext moves to the next question. It is a no-op on the last one.
func (c *Controller) GoNext() (State, error) {
	return c.advance(1)
}

// GoPrevious moves to the previous question. It is a no-op on the first.
func (c *Controller) GoPrevious() (State, error) {
	return c.advance(-1)
}

func (c *Controller) advance(delta int) (State, error) {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return c.State(), err
	}
	before := c.store.current
	if err := c.store.Advance(delta); err != nil {
		c.mu.Unlock()
		return c.State(), err
	}
	moved := c.store.current != before
	snap := c.store.Snapshot()
	c.mu.Unlock()

	if moved {
		c.changed(snap)
	}
	return snap, nil
}

// Submit ends the session. Submitting an ended session returns its final
// state with no side effects.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	return c.submit(ctx, false)
}

// SubmitFromLast is the submit action offered on the final question.
func (c *Controller) SubmitFromLast(ctx context.Context) (State, error) {
	return c.submit(ctx, true)
}

func (c *Controller) submit(ctx context.Context, fromLast bool) (State, error) {
	c.mu.Lock()
	if c.store.phase == PhaseSubmitted {
		snap := c.store.Snapshot()
		c.mu.Unlock()
		return snap, nil
	}
	if c.closed {
		c.mu.Unlock()
		return c.State(), ErrClosed
	}
	if fromLast && c.store.current != len(c.store.answers)-1 {
		c.mu.Unlock()
		return c.State(), ErrNotOnLastQuestion
	}

	ev := c.finish(ctx, ReasonManual)
	c.mu.Unlock()

	c.submitted(ev)
	return ev.State, ev.Err
}

// Close stops the countdown. The stored session is kept. Close is
// idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimer()
}

// Abandon closes the controller and clears the stored session.
func (c *Controller) Abandon(ctx context.Context) error {
	c.Close()
	if c.persist == nil {
		return nil
	}
	if err := c.persist.Clear(ctx); err != nil {
		return err
	}
	c.log.Info().Msg("session abandoned")
	return nil
}

// usable is called with mu held.
func (c *Controller) usable() error {
	if c.store.phase == PhaseSubmitted {
		return ErrAlreadySubmitted
	}
	if c.closed {
		return ErrClosed
	}
	return nil
}

// arm schedules the next tick. Called with mu held.
func (c *Controller) arm() {
	c.gen++
	gen := c.gen
	c.cancel = c.sched.After(tickInterval, func() { c.tick(gen) })
}

// stopTimer releases the pending tick, if any. Called with mu held.
func (c *Controller) stopTimer() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.closed || c.store.phase == PhaseSubmitted {
		c.mu.Unlock()
		return
	}
	// This timer has fired; nothing left to cancel.
	c.cancel = nil

	ctx, cancel := context.WithTimeout(context.Background(), tickWriteTimeout)
	defer cancel()

	remaining := c.store.tick()
	if c.persist != nil {
		if err := c.persist.SaveRemaining(ctx, remaining); err != nil {
			c.log.Warn().Err(err).Int("remaining", remaining).Msg("failed to save countdown")
		}
	}

	if remaining > 0 {
		c.arm()
		snap := c.store.Snapshot()
		c.mu.Unlock()
		c.changed(snap)
		return
	}

	ev := c.finish(ctx, ReasonTimeout)
	c.mu.Unlock()
	c.submitted(ev)
}

// finish moves the store to Submitted, stops the timer and writes the
// final trace. Called with mu held.
func (c *Controller) finish(ctx context.Context, reason SubmitReason) SubmitEvent {
	c.store.submit(reason)
	c.stopTimer()

	var err error
	if c.persist != nil {
		if err = c.persist.SaveAnswers(ctx, c.store.answers); err == nil {
			err = c.persist.SaveRemaining(ctx, c.store.remaining)
		}
	}

	snap := c.store.Snapshot()
	l := c.log.Info()
	if err != nil {
		l = c.log.Warn().Err(err)
	}
	l.Str("reason", string(reason)).
		Int("answered", snap.Answers.AnsweredCount()).
		Int("questions", snap.QuestionSet.Len()).
		Int("remaining", snap.RemainingSeconds).
		Msg("session submitted")

	return SubmitEvent{State: snap, Reason: reason, Err: err}
}

func (c *Controller) changed(s State) {
	for _, fn := range c.onChange {
		fn(s)
	}
}

func (c *Controller) submitted(ev SubmitEvent) {
	c.changed(ev.State)
	for _, fn := range c.onSubmit {
		fn(ev)
	}
}
