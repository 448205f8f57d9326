// Package sampling runs one prompt at several temperatures and collects the
// model's self-reported confidence for every sentence it wrote.
package sampling

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/glassbox/pkg/llm"
)

// DefaultTemperatures are conservative, balanced and chaotic.
var DefaultTemperatures = []float64{0.1, 0.7, 1.5}

// FallbackConfidence is assigned to sentences whose confidence the model did
// not report in a readable form.
const FallbackConfidence = 0.5

const instruction = `Answer the prompt below. Then rate how confident you are in each sentence of your answer.
Reply with only a JSON object of this shape:
{"response": "<your full answer>", "sentences": [{"text": "<sentence>", "confidence": <number between 0 and 1>}]}

Prompt: `

// Result is one temperature's answer. Scores is parallel to Sentences.
type Result struct {
	Temperature float64   `json:"temperature"`
	Text        string    `json:"text"`
	Sentences   []string  `json:"sentences"`
	Scores      []float64 `json:"scores"`
}

// Lab fans a prompt out over a set of temperatures.
type Lab struct {
	client       llm.Client
	temperatures []float64
	logger       *zap.Logger
}

// NewLab creates a Lab. With no temperatures DefaultTemperatures are used.
func NewLab(client llm.Client, logger *zap.Logger, temperatures ...float64) *Lab {
	if len(temperatures) == 0 {
		temperatures = DefaultTemperatures
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lab{
		client:       client,
		temperatures: slices.Sorted(slices.Values(temperatures)),
		logger:       logger,
	}
}

// Run generates at every temperature concurrently. Results are ordered by
// temperature. A failed generation fails the whole run.
func (l *Lab) Run(ctx context.Context, prompt string) ([]Result, error) {
	results := make([]Result, len(l.temperatures))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range l.temperatures {
		g.Go(func() error {
			res, err := l.sample(gctx, prompt, t)
			if err != nil {
				return fmt.Errorf("temperature %.1f: %w", t, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type selfReport struct {
	Response  string `json:"response"`
	Sentences []struct {
		Text       string   `json:"text"`
		Confidence *float64 `json:"confidence"`
	} `json:"sentences"`
}

func (l *Lab) sample(ctx context.Context, prompt string, temperature float64) (Result, error) {
	req := llm.NewPromptRequest(instruction + prompt).WithTemperature(temperature)
	req.JSON = true

	resp, err := l.client.Generate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	raw := resp.Text()
	res := Result{Temperature: temperature}

	var report selfReport
	if err := llm.ExtractJSON(raw, &report); err == nil {
		for _, s := range report.Sentences {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			conf := FallbackConfidence
			if s.Confidence != nil {
				conf = clamp(*s.Confidence)
			}
			res.Sentences = append(res.Sentences, text)
			res.Scores = append(res.Scores, conf)
		}
		res.Text = strings.TrimSpace(report.Response)
		if res.Text == "" {
			res.Text = strings.Join(res.Sentences, " ")
		}
	} else {
		l.logger.Debug("self-report not parseable, falling back to sentence split",
			zap.Float64("temperature", temperature),
			zap.Error(err),
		)
	}

	if len(res.Sentences) == 0 {
		if res.Text == "" {
			res.Text = strings.TrimSpace(raw)
		}
		res.Sentences = SplitSentences(res.Text)
		if res.Sentences == nil {
			res.Sentences = []string{}
		}
		res.Scores = make([]float64, len(res.Sentences))
		for i := range res.Scores {
			res.Scores[i] = FallbackConfidence
		}
	}

	return res, nil
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}
