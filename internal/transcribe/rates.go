package transcribe

import "math"

// RoundingUnit is the billing increment a provider rounds billed duration up
// to before applying its per-minute rate.
type RoundingUnit string

const (
	Round30s RoundingUnit = "30s"
	Round60s RoundingUnit = "60s"
	RoundRaw RoundingUnit = "raw"
)

func (u RoundingUnit) seconds() float64 {
	switch u {
	case Round30s:
		return 30
	case Round60s:
		return 60
	default:
		return 0
	}
}

// BillingRate is one (provider, model, plan) entry in the rate table. Rates
// are deterministic constants, not inputs to a cost formula with branches:
// every provider/model/plan combination this pipeline supports gets its own
// row here instead of a switch statement.
type BillingRate struct {
	PerMinuteUSD float64
	Rounding     RoundingUnit
}

// rateTable is keyed provider -> model -> billing plan. "standard" is the
// plan used when no plan override is configured.
var rateTable = map[string]map[string]map[string]BillingRate{
	"openai": {
		"whisper-1": {
			"standard": {PerMinuteUSD: 0.006, Rounding: Round60s},
		},
		"gpt-4o-mini-transcribe": {
			"standard": {PerMinuteUSD: 0.003, Rounding: Round30s},
		},
		"gpt-4o-transcribe-diarize": {
			"standard": {PerMinuteUSD: 0.006, Rounding: Round30s},
		},
	},
}

// EstimateCost returns the rounded USD cost of transcribing billableSeconds
// of audio with provider/model under billingPlan. Unknown combinations cost
// 0 rather than erroring: cost is an estimate attached to derived.asr, not a
// correctness-bearing field.
func EstimateCost(provider, model, billingPlan string, billableSeconds float64) float64 {
	if billingPlan == "" {
		billingPlan = "standard"
	}
	models, ok := rateTable[provider]
	if !ok {
		return 0
	}
	plans, ok := models[model]
	if !ok {
		return 0
	}
	rate, ok := plans[billingPlan]
	if !ok {
		return 0
	}

	billed := billableSeconds
	if unit := rate.Rounding.seconds(); unit > 0 && billed > 0 {
		billed = math.Ceil(billed/unit) * unit
	}
	cost := (billed / 60) * rate.PerMinuteUSD
	return math.Round(cost*1e6) / 1e6
}
