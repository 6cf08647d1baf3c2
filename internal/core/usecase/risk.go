package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

// Risk scoring is derived, not observed: one 0-100 score per state per
// ingestion batch, normalized against the global maxima across all
// states in the same batch. It is recomputed fully on every ingestion.

const (
	riskHighThreshold     = 65.0
	riskModerateThreshold = 35.0
)

// RiskLabel maps a score to its band. Ties at exactly 65/35 favor the
// higher band.
func RiskLabel(score float64) string {
	switch {
	case score >= riskHighThreshold:
		return "High"
	case score >= riskModerateThreshold:
		return "Moderate"
	default:
		return "Low"
	}
}

type stateExtremes struct {
	maxRain         *float64
	maxRainStation  string
	maxWater        *float64
	maxWaterStation string
	latestAt        string
}

// BuildRiskDocuments derives one flood_risk document per state from the
// rainfall and water level batches of a single ingestion pass.
// Non-numeric or absent values are excluded from max computation, never
// treated as zero.
func BuildRiskDocuments(rain, water []domain.Reading) []domain.Document {
	byState := make(map[string]*stateExtremes)
	extremes := func(state string) *stateExtremes {
		e, ok := byState[state]
		if !ok {
			e = &stateExtremes{}
			byState[state] = e
		}
		return e
	}

	var maxRainGlobal, maxWaterGlobal float64
	for _, item := range rain {
		if item.Value != nil && *item.Value > maxRainGlobal {
			maxRainGlobal = *item.Value
		}
		state := domain.NormalizeState(item.State)
		if state == "" {
			continue
		}
		e := extremes(state)
		if item.Value != nil && (e.maxRain == nil || *item.Value > *e.maxRain) {
			v := *item.Value
			e.maxRain = &v
			e.maxRainStation = orUnknown(item.StationName)
		}
		if item.RecordedAt > e.latestAt {
			e.latestAt = item.RecordedAt
		}
	}
	for _, item := range water {
		if item.Value != nil && *item.Value > maxWaterGlobal {
			maxWaterGlobal = *item.Value
		}
		state := domain.NormalizeState(item.State)
		if state == "" {
			continue
		}
		e := extremes(state)
		if item.Value != nil && (e.maxWater == nil || *item.Value > *e.maxWater) {
			v := *item.Value
			e.maxWater = &v
			e.maxWaterStation = orUnknown(item.StationName)
		}
		if item.RecordedAt > e.latestAt {
			e.latestAt = item.RecordedAt
		}
	}

	states := make([]string, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Strings(states)

	docs := make([]domain.Document, 0, len(states))
	for _, state := range states {
		docs = append(docs, buildRiskDocument(state, byState[state], maxRainGlobal, maxWaterGlobal))
	}
	return docs
}

func buildRiskDocument(state string, e *stateExtremes, maxRainGlobal, maxWaterGlobal float64) domain.Document {
	score := riskScore(e, maxRainGlobal, maxWaterGlobal)
	label := RiskLabel(score)
	date := domain.RecordedDateOf(e.latestAt)

	var basis []string
	if e.maxRain != nil {
		basis = append(basis, fmt.Sprintf("max rainfall %s mm at %s", formatValue(e.maxRain), e.maxRainStation))
	} else {
		basis = append(basis, "no rainfall readings")
	}
	if e.maxWater != nil {
		basis = append(basis, fmt.Sprintf("max water level %s m at %s", formatValue(e.maxWater), e.maxWaterStation))
	} else {
		basis = append(basis, "no water level readings")
	}

	text := fmt.Sprintf(
		"Heuristic flood risk for %s is %s with score %.1f out of 100, based on readings up to %s: %s. "+
			"This score is a heuristic derived from relative readings, not an official flood classification.",
		domain.FormatState(state),
		label,
		score,
		orUnknown(e.latestAt),
		strings.Join(basis, "; "),
	)

	return domain.Document{
		ID:           fmt.Sprintf("risk-%s-%s", state, orDefault(date, "na")),
		Title:        fmt.Sprintf("Flood risk assessment %s", domain.FormatState(state)),
		Source:       "derived",
		Type:         domain.TypeFloodRisk,
		State:        state,
		RecordedAt:   e.latestAt,
		RecordedDate: date,
		Value:        &score,
		Text:         text,
	}
}

func riskScore(e *stateExtremes, maxRainGlobal, maxWaterGlobal float64) float64 {
	var rainNorm, waterNorm float64
	if e.maxRain != nil && maxRainGlobal > 0 {
		rainNorm = *e.maxRain / maxRainGlobal
	}
	if e.maxWater != nil && maxWaterGlobal > 0 {
		waterNorm = *e.maxWater / maxWaterGlobal
	}
	return math.Round(100*(0.5*rainNorm+0.5*waterNorm)*10) / 10
}
