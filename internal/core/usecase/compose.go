package usecase

import (
	"fmt"
	"strings"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

const (
	noSourcesAnswer  = "No matching sources found in the local knowledge base."
	maxSummaryLines  = 3
	citationSnippet  = 200
	contextSnippet   = 300
	riskSummaryTitle = "Heuristic flood risk summary (not an official classification):"
)

// BuildSummary renders the extractive answer from ranked hits. An empty
// hit list yields the fixed no-sources answer; a flood_risk top hit
// yields the per-state risk rendering; anything else lists the top
// relevant readings with their units.
func BuildSummary(hits []domain.Hit) string {
	if len(hits) == 0 {
		return noSourcesAnswer
	}
	if hits[0].Document.Type == domain.TypeFloodRisk {
		return buildRiskSummary(hits)
	}
	return buildReadingsSummary(hits)
}

func buildRiskSummary(hits []domain.Hit) string {
	lines := []string{riskSummaryTitle}
	seen := make(map[string]struct{})
	for _, hit := range hits {
		doc := hit.Document
		if doc.Type != domain.TypeFloodRisk {
			continue
		}
		if _, ok := seen[doc.State]; ok {
			continue
		}
		seen[doc.State] = struct{}{}

		score := 0.0
		if doc.Value != nil {
			score = *doc.Value
		}
		lines = append(lines, fmt.Sprintf(
			"- %s: %s risk, score %.1f/100, based on readings up to %s.",
			domain.FormatState(doc.State),
			RiskLabel(score),
			score,
			orUnknown(doc.RecordedAt),
		))
	}
	return strings.Join(lines, "\n")
}

func buildReadingsSummary(hits []domain.Hit) string {
	lines := []string{"Top relevant readings:"}
	for i, hit := range hits {
		if i >= maxSummaryLines {
			break
		}
		doc := hit.Document
		lines = append(lines, fmt.Sprintf(
			"- %s | %s | %s | %s%s",
			orUnknown(doc.Title),
			domain.FormatState(doc.State),
			orUnknown(doc.RecordedAt),
			formatValue(doc.Value),
			unitSuffix(doc.Type),
		))
	}
	return strings.Join(lines, "\n")
}

func unitSuffix(docType domain.DocType) string {
	switch docType {
	case domain.TypeRainfall:
		return " mm"
	case domain.TypeWaterLevel:
		return " m"
	default:
		return ""
	}
}

// BuildCitations returns the source tag plus the first 200 characters
// of each hit's text, independent of which summary path was used.
func BuildCitations(hits []domain.Hit) []domain.Citation {
	citations := make([]domain.Citation, 0, len(hits))
	for _, hit := range hits {
		citations = append(citations, domain.Citation{
			Source:  orDefault(hit.Document.Source, "local"),
			Snippet: truncate(hit.Document.Text, citationSnippet),
		})
	}
	return citations
}

// BuildContext renders the numbered context block handed to the
// language model.
func BuildContext(hits []domain.Hit) string {
	lines := make([]string, 0, len(hits))
	for i, hit := range hits {
		doc := hit.Document
		snippet := strings.ReplaceAll(strings.TrimSpace(doc.Text), "\n", " ")
		if len(snippet) > contextSnippet {
			snippet = snippet[:contextSnippet] + "..."
		}
		lines = append(lines, fmt.Sprintf(
			"[%d] %s (%s) | State: %s: %s",
			i+1,
			doc.Title,
			orDefault(doc.Source, "local"),
			domain.FormatState(doc.State),
			snippet,
		))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
