package usecase

import (
	"fmt"
	"strconv"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

// The builder is total over arbitrary partial input: missing fields
// degrade to literal placeholders instead of failing, and the rendered
// text always restates station/state/time/value.

const defaultSource = "express"

// BuildRainfallDocuments converts raw rainfall readings into documents.
// Colliding ids from repeated ingestion overwrite on upsert rather than
// duplicate.
func BuildRainfallDocuments(items []domain.Reading) []domain.Document {
	docs := make([]domain.Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, buildReadingDocument(item, domain.TypeRainfall, "rain", "Rainfall reading", "mm"))
	}
	return docs
}

// BuildWaterLevelDocuments converts raw river level readings into documents.
func BuildWaterLevelDocuments(items []domain.Reading) []domain.Document {
	docs := make([]domain.Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, buildReadingDocument(item, domain.TypeWaterLevel, "water", "Water level reading", "m"))
	}
	return docs
}

func buildReadingDocument(item domain.Reading, docType domain.DocType, idPrefix, label, unit string) domain.Document {
	recordedAt := item.RecordedAt

	text := fmt.Sprintf(
		"%s at %s in %s, %s recorded at %s with %s %s.",
		label,
		orUnknown(item.StationName),
		orUnknown(item.District),
		orUnknown(item.State),
		orUnknown(recordedAt),
		formatValue(item.Value),
		unit,
	)

	return domain.Document{
		ID:           fmt.Sprintf("%s-%s-%s", idPrefix, orDefault(item.StationID, "unknown"), orDefault(recordedAt, "na")),
		Title:        fmt.Sprintf("%s %s", label, orUnknown(item.StationName)),
		Source:       orDefault(item.Source, defaultSource),
		Type:         docType,
		State:        domain.NormalizeState(item.State),
		RecordedAt:   recordedAt,
		RecordedDate: domain.RecordedDateOf(recordedAt),
		Value:        item.Value,
		Text:         text,
	}
}

// NormalizeDocument fills the derived and defaulted fields of a
// manually ingested document.
func NormalizeDocument(doc domain.Document) domain.Document {
	doc.State = domain.NormalizeState(doc.State)
	doc.RecordedDate = domain.RecordedDateOf(doc.RecordedAt)
	if doc.Source == "" {
		doc.Source = "manual"
	}
	return doc
}

func formatValue(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orUnknown(s string) string {
	return orDefault(s, "Unknown")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
