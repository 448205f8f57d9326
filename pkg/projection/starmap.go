package projection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/glassbox/pkg/embeddings"
)

// DefaultAnchors are the reference concepts plotted around a prompt.
var DefaultAnchors = []string{
	"science",
	"art",
	"emotion",
	"technology",
	"nature",
	"history",
	"food",
	"sports",
	"politics",
	"music",
}

// Point is a position in the projected space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Anchor is a labelled reference concept.
type Anchor struct {
	Label string `json:"label"`
	Point
}

// StarMap is the projection of a prompt and the anchors.
type StarMap struct {
	PromptPoint       Point         `json:"prompt_point"`
	Anchors           []Anchor      `json:"anchors"`
	VarianceExplained [Dims]float64 `json:"variance_explained"`
}

// Projector embeds prompts and projects them among anchor concepts. Anchor
// embeddings are computed once and cached for the life of the Projector.
type Projector struct {
	embedder embeddings.Embedder
	anchors  []string

	mu    sync.Mutex
	cache map[string][]float64
}

// NewProjector builds a Projector. With no anchors DefaultAnchors are used.
func NewProjector(embedder embeddings.Embedder, anchors ...string) *Projector {
	if len(anchors) == 0 {
		anchors = DefaultAnchors
	}
	return &Projector{
		embedder: embedder,
		anchors:  anchors,
		cache:    make(map[string][]float64, len(anchors)),
	}
}

// Anchors returns the anchor labels in plotting order.
func (p *Projector) Anchors() []string {
	return p.anchors
}

// Project embeds prompt and returns its position among the anchors.
func (p *Projector) Project(ctx context.Context, prompt string) (*StarMap, error) {
	anchorVecs, err := p.anchorVectors(ctx)
	if err != nil {
		return nil, err
	}

	promptVec, err := p.embed(ctx, prompt)
	if err != nil {
		return nil, err
	}

	rows := append([][]float64{promptVec}, anchorVecs...)
	coords, variance, err := Project(rows)
	if err != nil {
		return nil, fmt.Errorf("projecting embeddings: %w", err)
	}

	out := &StarMap{
		PromptPoint:       toPoint(coords[0]),
		Anchors:           make([]Anchor, len(p.anchors)),
		VarianceExplained: variance,
	}
	for i, label := range p.anchors {
		out.Anchors[i] = Anchor{Label: label, Point: toPoint(coords[i+1])}
	}
	return out, nil
}

// anchorVectors returns the cached anchor embeddings, embedding any that are
// missing concurrently.
func (p *Projector) anchorVectors(ctx context.Context) ([][]float64, error) {
	p.mu.Lock()
	missing := make([]string, 0, len(p.anchors))
	for _, label := range p.anchors {
		if _, ok := p.cache[label]; !ok {
			missing = append(missing, label)
		}
	}
	p.mu.Unlock()

	if len(missing) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for _, label := range missing {
			g.Go(func() error {
				vec, err := p.embed(gctx, label)
				if err != nil {
					return fmt.Errorf("anchor %q: %w", label, err)
				}
				p.mu.Lock()
				p.cache[label] = vec
				p.mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]float64, len(p.anchors))
	for i, label := range p.anchors {
		out[i] = p.cache[label]
	}
	return out, nil
}

func (p *Projector) embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embeddings.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbedding, err)
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out, nil
}

func toPoint(c [Dims]float64) Point {
	return Point{X: c[0], Y: c[1], Z: c[2]}
}
