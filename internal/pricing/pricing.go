// Package pricing converts a selected provider plus generation parameters
// into a price in credits, the internal cost unit (100 credits = one unit
// of real currency).
package pricing

import (
	"fmt"
	"math"
	"sync"

	"reelsmith/internal/logging"
)

// BillingUnit is how a provider's generation is metered.
type BillingUnit string

const (
	PerSecond     BillingUnit = "per_second"     // video
	PerImage      BillingUnit = "per_image"      // image
	PerGeneration BillingUnit = "per_generation" // fixed, e.g. 3D
	PerMinute     BillingUnit = "per_minute"     // audio / speech
)

// Price is one pricing-table entry.
type Price struct {
	Unit BillingUnit `yaml:"unit"`
	USD  float64     `yaml:"usd"`
}

// Table maps provider/model names to their price entry.
type Table map[string]Price

// DefaultTable returns the built-in pricing, aligned with the capability
// catalog's provider names.
func DefaultTable() Table {
	return Table{
		// Video, billed per second of output
		"kling-2.5":       {Unit: PerSecond, USD: 0.07},
		"veo-3":           {Unit: PerSecond, USD: 0.40},
		"runway-gen4":     {Unit: PerSecond, USD: 0.25},
		"pika-2.2":        {Unit: PerSecond, USD: 0.045},
		"luma-ray2-flash": {Unit: PerSecond, USD: 0.06},
		"hailuo-02":       {Unit: PerSecond, USD: 0.10},

		// Images, billed per image
		"flux-pro":    {Unit: PerImage, USD: 0.05},
		"flux-dev":    {Unit: PerImage, USD: 0.025},
		"sdxl-turbo":  {Unit: PerImage, USD: 0.02},
		"ideogram-v3": {Unit: PerImage, USD: 0.08},
		"recraft-v3":  {Unit: PerImage, USD: 0.06},

		// Audio, billed per minute
		"suno-v4":        {Unit: PerMinute, USD: 0.50},
		"musicgen-large": {Unit: PerMinute, USD: 0.40},
		"elevenlabs-v3":  {Unit: PerMinute, USD: 0.30},
		"openai-tts":     {Unit: PerMinute, USD: 0.25},

		// 3D, flat per generation
		"meshy-4":  {Unit: PerGeneration, USD: 0.40},
		"tripo-v2": {Unit: PerGeneration, USD: 0.30},
	}
}

// approvalThresholdCredits is the price above which the user must
// explicitly approve before execution.
const approvalThresholdCredits = 200

// Tier buckets an estimate for UI framing.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Plan is the priced unit of work: one provider plus its generation
// parameters.
type Plan struct {
	Provider        string
	Duration        string // e.g. "10s", "1m", "10-15s"; video and audio
	ImageCount      int    // image generation
	GenerationCount int    // per-generation billing; defaults to 1
}

// Estimate is a priced plan.
type Estimate struct {
	Provider string  `json:"provider"`
	USD      float64 `json:"usd"`
	Credits  int     `json:"credits"`
	Tier     Tier    `json:"tier"`
}

// Estimator prices plans against a mutable pricing table. The table can
// be swapped at runtime by the catalog watcher.
type Estimator struct {
	mu    sync.RWMutex
	table Table
}

// NewEstimator creates an estimator over the given table, or the default
// table when nil.
func NewEstimator(table Table) *Estimator {
	if table == nil {
		table = DefaultTable()
	}
	return &Estimator{table: table}
}

// Estimate prices a plan. Unknown providers and unparseable durations are
// errors: a plan that cannot be priced must not silently become free.
func (e *Estimator) Estimate(plan Plan) (*Estimate, error) {
	e.mu.RLock()
	price, ok := e.table[plan.Provider]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no pricing entry for provider %q", plan.Provider)
	}

	var usd float64
	switch price.Unit {
	case PerSecond:
		seconds, err := ParseDurationSeconds(plan.Duration)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", plan.Provider, err)
		}
		usd = seconds * price.USD
	case PerImage:
		count := plan.ImageCount
		if count <= 0 {
			count = 1
		}
		usd = float64(count) * price.USD
	case PerMinute:
		seconds, err := ParseDurationSeconds(plan.Duration)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", plan.Provider, err)
		}
		usd = seconds / 60 * price.USD
	case PerGeneration:
		count := plan.GenerationCount
		if count <= 0 {
			count = 1
		}
		usd = float64(count) * price.USD
	default:
		return nil, fmt.Errorf("unknown billing unit %q for provider %q", price.Unit, plan.Provider)
	}

	credits := Credits(usd)
	est := &Estimate{
		Provider: plan.Provider,
		USD:      usd,
		Credits:  credits,
		Tier:     BudgetTier(credits),
	}
	logging.Get(logging.CategoryPricing).Debugf("estimate: %s -> $%.2f (%d credits, %s)",
		plan.Provider, est.USD, est.Credits, est.Tier)
	return est, nil
}

// SetTable atomically replaces the pricing table.
func (e *Estimator) SetTable(table Table) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table = table
}

// Credits converts a USD amount into credits: 100 credits = 1 unit of
// real currency, rounded to the nearest credit.
func Credits(usd float64) int {
	return int(math.Round(usd * 100))
}

// NeedsExplicitApproval reports whether the estimate is expensive enough
// to require explicit user confirmation.
func NeedsExplicitApproval(credits int) bool {
	return credits > approvalThresholdCredits
}

// BudgetTier buckets a credit amount for UI framing.
func BudgetTier(credits int) Tier {
	switch {
	case credits <= 100:
		return TierLow
	case credits <= 500:
		return TierMedium
	default:
		return TierHigh
	}
}
