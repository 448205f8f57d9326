// Package factcheck extracts factual claims from a model response and asks
// the model to verify each one.
package factcheck

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/glassbox/pkg/llm"
)

const (
	// MaxClaims caps how many claims are extracted from one response.
	MaxClaims = 8

	// verifyConcurrency bounds the verification calls in flight.
	verifyConcurrency = 4
)

const extractInstruction = `Extract the atomic factual claims from the text below. Copy each claim verbatim from the text where possible.
Return at most %d claims. Reply with only a JSON object of this shape:
{"claims": ["<claim>", "..."]}

Text:
%s`

const verifyInstruction = `Is the following claim factually accurate?
Reply with only a JSON object of this shape:
{"verdict": "verified" | "uncertain" | "hallucination", "reason": "<one short sentence>"}

Claim: %s`

// Claim is one verified statement.
type Claim struct {
	Claim   string  `json:"claim"`
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

// Checker runs the two step extraction and verification.
type Checker struct {
	client llm.Client
	logger *zap.Logger
}

// NewChecker creates a Checker.
func NewChecker(client llm.Client, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{client: client, logger: logger}
}

// Check extracts claims from text and verifies them concurrently. Claims
// are returned in extraction order. Blank text yields no claims.
func (c *Checker) Check(ctx context.Context, text string) ([]Claim, error) {
	if strings.TrimSpace(text) == "" {
		return []Claim{}, nil
	}

	statements, err := c.extract(ctx, text)
	if err != nil {
		return nil, err
	}

	claims := make([]Claim, len(statements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for i, s := range statements {
		g.Go(func() error {
			claim, err := c.verify(gctx, s)
			if err != nil {
				return fmt.Errorf("verifying claim %d: %w", i, err)
			}
			claims[i] = claim
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Checker) extract(ctx context.Context, text string) ([]string, error) {
	req := llm.NewPromptRequest(fmt.Sprintf(extractInstruction, MaxClaims, text))
	req.JSON = true

	resp, err := c.client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}

	raw, err := parseClaims(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, min(len(raw), MaxClaims))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == MaxClaims {
			break
		}
	}
	return out, nil
}

// parseClaims accepts either {"claims": [...]} or a bare array.
func parseClaims(text string) ([]string, error) {
	var wrapped struct {
		Claims []string `json:"claims"`
	}
	if err := llm.ExtractJSON(text, &wrapped); err == nil && wrapped.Claims != nil {
		return wrapped.Claims, nil
	}

	var bare []string
	if err := llm.ExtractJSON(text, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

func (c *Checker) verify(ctx context.Context, statement string) (Claim, error) {
	req := llm.NewPromptRequest(fmt.Sprintf(verifyInstruction, statement)).WithTemperature(0)
	req.JSON = true

	resp, err := c.client.Generate(ctx, req)
	if err != nil {
		return Claim{}, err
	}

	var out struct {
		Verdict string `json:"verdict"`
		Reason  string `json:"reason"`
	}
	if err := llm.ExtractJSON(resp.Text(), &out); err != nil {
		c.logger.Debug("verification not parseable", zap.String("claim", statement), zap.Error(err))
		return Claim{
			Claim:   statement,
			Verdict: Uncertain,
			Reason:  "the verifier did not return a readable verdict",
		}, nil
	}

	return Claim{
		Claim:   statement,
		Verdict: ParseVerdict(out.Verdict),
		Reason:  strings.TrimSpace(out.Reason),
	}, nil
}
