package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"reelsmith/internal/capability"
	"reelsmith/internal/intent"
)

// Generator dispatches an approved plan to a generation provider and
// returns the result asset URLs. The orchestrator wraps every call in
// the resilience executor, so implementations just do the work.
type Generator interface {
	Generate(ctx context.Context, sel capability.Selection, specs intent.InferredSpecs) ([]string, error)
}

// SimulatedGenerator stands in for the real provider dispatch. It
// returns stable-looking asset URLs so the execution and delivery
// phases behave end to end without provider credentials.
type SimulatedGenerator struct {
	BaseURL string
}

// NewSimulatedGenerator creates a simulated generator.
func NewSimulatedGenerator() *SimulatedGenerator {
	return &SimulatedGenerator{BaseURL: "https://assets.reelsmith.dev"}
}

// Generate produces one placeholder asset URL under the provider's
// endpoint path.
func (g *SimulatedGenerator) Generate(ctx context.Context, sel capability.Selection, specs intent.InferredSpecs) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/%s/%s/output", g.BaseURL, sel.ProviderEndpoint, uuid.NewString())
	return []string{url}, nil
}
