package api

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/glassbox/pkg/attention"
	"github.com/papercomputeco/glassbox/pkg/sse"
)

// handleAttentionStream streams one attribution event per generated word as
// SSE, then the [DONE] sentinel. Once headers are sent failures no longer
// change the status; the client sees a shortened stream and the sentinel.
func (s *Server) handleAttentionStream(c *fiber.Ctx) error {
	var req PromptRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err)
	}

	logger := s.logger.With(zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)))
	logger.Debug("attention stream requested", zap.Int("prompt_bytes", len(req.Prompt)))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// fasthttp recycles its RequestCtx after the handler returns while the
	// stream keeps running, so the stream hangs off the server instead.
	ctx, cancel := context.WithCancel(s.streams)

	// io.Pipe blocks each event write until fasthttp has flushed the
	// previous chunk, so the upstream is only pulled as fast as the client
	// reads.
	pr, pw := io.Pipe()
	go s.streamAttention(ctx, cancel, req.Prompt, pw, logger)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) streamAttention(ctx context.Context, cancel context.CancelFunc, prompt string, pw *io.PipeWriter, logger *zap.Logger) {
	start := time.Now()
	w := sse.NewWriter(pw)
	words := 0

	// A stalled upstream produces no writes, so a client that left is only
	// noticed through the keep-alive. mu orders its frames with ours.
	var mu sync.Mutex
	go s.keepAlive(ctx, cancel, &mu, w, logger)
	defer func() {
		mu.Lock()
		cancel()
		mu.Unlock()
		pw.Close()
	}()

	for ev := range s.attention.Run(ctx, prompt) {
		if ev.Done {
			mu.Lock()
			s.finishAttention(w, ev, words, start, logger)
			mu.Unlock()
			return
		}

		mu.Lock()
		err := w.WriteJSON(ev.Attribution)
		mu.Unlock()
		if err != nil {
			// Leaving the loop closes the upstream stream.
			logger.Info("attention client disconnected",
				zap.Int("words", words),
				zap.Error(err),
			)
			s.attentionOutcome("canceled")
			return
		}

		words++
		if s.config.Metrics != nil {
			s.config.Metrics.AttentionWord()
		}
	}
}

// keepAlive writes a comment frame every KeepAlive until ctx ends. A failed
// write cancels ctx, which stops the upstream.
func (s *Server) keepAlive(ctx context.Context, cancel context.CancelFunc, mu *sync.Mutex, w *sse.Writer, logger *zap.Logger) {
	ticker := time.NewTicker(s.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			if ctx.Err() != nil {
				mu.Unlock()
				return
			}
			err := w.WriteComment("keep-alive")
			mu.Unlock()
			if err != nil {
				logger.Info("attention client gone during keep-alive", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (s *Server) finishAttention(w *sse.Writer, ev attention.Event, words int, start time.Time, logger *zap.Logger) {
	outcome := attention.Outcome(ev)
	if ev.Err != nil {
		logger.Error("attention stream ended early",
			zap.String("outcome", outcome),
			zap.Int("words", words),
			zap.Error(ev.Err),
		)
	}

	if err := w.WriteDone(); err != nil {
		logger.Info("attention client disconnected before done", zap.Error(err))
		outcome = "canceled"
	}

	s.attentionOutcome(outcome)
	logger.Debug("attention stream complete",
		zap.String("outcome", outcome),
		zap.Int("words", words),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) attentionOutcome(outcome string) {
	if s.config.Metrics != nil {
		s.config.Metrics.AttentionStream(outcome)
	}
}
