// Package attention drives a streaming generation and scores each generated
// word against the prompt it was generated from.
package attention

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/glassbox/pkg/attribution"
	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/reassembler"
	"github.com/papercomputeco/glassbox/pkg/tokenizer"
)

// Controller turns prompts into attribution streams. It holds no per-request
// state and may serve concurrent runs.
type Controller struct {
	client       llm.Client
	logger       *zap.Logger
	onTransition func(from, to State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for lifecycle debugging.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithTransitionHook registers fn to observe every state change of a run.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(c *Controller) {
		c.onTransition = fn
	}
}

// New builds a Controller on top of an upstream client.
func New(client llm.Client, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run streams a generation for prompt and yields one Event per completed
// word followed by a single Done event.
//
// The upstream is pulled only after the previous word's event was accepted
// by the consumer. Stopping iteration, or cancelling ctx, closes the
// upstream without flushing. An upstream failure flushes the buffered tail
// before the Done event. The returned sequence is single-use.
func (c *Controller) Run(ctx context.Context, prompt string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		r := &run{
			ctrl:    c,
			ctx:     ctx,
			yield:   yield,
			started: time.Now(),
		}
		r.exec(prompt)
	}
}

type run struct {
	ctrl    *Controller
	ctx     context.Context
	yield   func(Event) bool
	state   State
	tokens  []string
	words   int
	started time.Time
}

func (r *run) exec(prompt string) {
	r.transition(StateTokenizing)
	r.tokens = tokenizer.PromptTokens(prompt)

	stream, err := r.ctrl.client.Stream(r.ctx, llm.NewPromptRequest(prompt))
	if err != nil {
		if r.canceled() {
			r.abort(r.ctx.Err())
			return
		}
		r.ctrl.logger.Error("could not open upstream stream", zap.Error(err))
		r.finish(reassembler.New(), fmt.Errorf("%w: %w", llm.ErrUpstream, err))
		return
	}
	defer stream.Close()

	r.transition(StateStreaming)
	asm := reassembler.New()

	for {
		chunk, err := stream.Next()
		if err != nil {
			if r.canceled() {
				r.abort(r.ctx.Err())
				return
			}
			r.ctrl.logger.Error("upstream stream failed",
				zap.Int("words", r.words),
				zap.Error(err),
			)
			r.finish(asm, fmt.Errorf("%w: %w", llm.ErrUpstream, err))
			return
		}
		if chunk == nil {
			break
		}

		if chunk.HasText() {
			for _, word := range asm.Feed(chunk.Text) {
				if !r.emit(word) {
					r.stop()
					return
				}
			}
		}

		if chunk.Done {
			break
		}
		if r.canceled() {
			r.abort(r.ctx.Err())
			return
		}
	}

	r.finish(asm, nil)
}

// finish flushes the residual word and emits the Done event.
func (r *run) finish(asm *reassembler.Reassembler, cause error) {
	r.transition(StateFlushing)
	if word, ok := asm.Flush(); ok {
		if !r.emit(word) {
			r.stop()
			return
		}
	}

	r.transition(StateDone)
	r.ctrl.logger.Debug("attention stream finished",
		zap.Int("words", r.words),
		zap.Duration("elapsed", time.Since(r.started)),
		zap.Bool("upstream_error", cause != nil),
	)
	r.yield(Event{Done: true, Err: cause})
}

// abort ends a canceled run without flushing.
func (r *run) abort(cause error) {
	r.transition(StateDone)
	r.ctrl.logger.Debug("attention stream canceled", zap.Int("words", r.words))
	r.yield(Event{Done: true, Err: cause})
}

// stop ends a run whose consumer went away.
func (r *run) stop() {
	r.transition(StateDone)
	r.ctrl.logger.Debug("attention stream consumer stopped", zap.Int("words", r.words))
}

func (r *run) emit(word string) bool {
	r.words++
	// Word keeps the delimiter as streamed; scoring sees the bare word.
	return r.yield(Event{
		Attribution: &Attribution{
			Word:   word,
			Scores: attribution.Score(strings.TrimSpace(word), r.tokens),
			Tokens: r.tokens,
		},
	})
}

func (r *run) canceled() bool {
	return r.ctx.Err() != nil
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.ctrl.logger.Debug("attention state",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	if r.ctrl.onTransition != nil {
		r.ctrl.onTransition(from, to)
	}
}

// Outcome classifies a terminal event for reporting.
func Outcome(ev Event) string {
	switch {
	case ev.Err == nil:
		return "completed"
	case errors.Is(ev.Err, context.Canceled), errors.Is(ev.Err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "upstream_error"
	}
}
