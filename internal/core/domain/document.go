package domain

// DocType tags the three document variants the corpus holds.
type DocType string

const (
	TypeRainfall   DocType = "rainfall"
	TypeWaterLevel DocType = "water_level"
	TypeFloodRisk  DocType = "flood_risk"
)

// Document is the unit of retrieval: one sensor reading or one derived
// risk computation rendered as a self-contained sentence plus metadata.
// Text must restate station/state/time/value; the other fields never
// diverge from what Text implies.
type Document struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Source       string   `json:"source"`
	Type         DocType  `json:"type"`
	State        string   `json:"state"`
	RecordedAt   string   `json:"recorded_at"`
	RecordedDate string   `json:"recorded_date"`
	Value        *float64 `json:"value,omitempty"`
	Text         string   `json:"text"`
}

// RecordedDateOf derives the date key from an ISO-8601 timestamp string.
func RecordedDateOf(recordedAt string) string {
	if len(recordedAt) > 10 {
		return recordedAt[:10]
	}
	return recordedAt
}

// Reading is one loose record from the upstream monitoring API. Every
// field is optional; Value is nil when the upstream payload carried no
// numeric reading.
type Reading struct {
	StationID   string
	StationName string
	District    string
	State       string
	RecordedAt  string
	Source      string
	Value       *float64
}

// SearchFilter narrows retrieval by metadata. Zero values mean "no
// constraint". State is expanded to its synonym set before matching, so
// a filter on a canonical code also matches documents stored under a
// legacy alias.
type SearchFilter struct {
	State        string
	Type         DocType
	RecordedDate string
	DateFrom     string
	DateTo       string
}

// HasDateRange reports whether the filter carries an inclusive
// [DateFrom, DateTo] constraint that must be applied after ranking.
func (f SearchFilter) HasDateRange() bool {
	return f.DateFrom != "" || f.DateTo != ""
}

// Hit is one ranked retrieval result.
type Hit struct {
	Document Document
	Score    float64
}

type Citation struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// Confidence tiers are contractual: callers key behavior off the exact
// values, so they are constants rather than configuration.
const (
	ConfidenceNone       = 0.10
	ConfidenceExtractive = 0.35
	ConfidenceLLM        = 0.55
)

type Answer struct {
	Text       string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
	RequestID  string     `json:"request_id"`
	Timestamp  string     `json:"timestamp"`

	// RetrievalMode records which ranking path produced the citations;
	// observability only, not part of the response contract.
	RetrievalMode string `json:"-"`
}

// IngestResult reports one completed ingestion pass.
type IngestResult struct {
	Ingested int    `json:"ingested"`
	Total    int    `json:"total"`
	Source   string `json:"source"`
}

// CorpusStats is the observability view of the document store.
type CorpusStats struct {
	TotalDocuments int            `json:"total_documents"`
	Collection     string         `json:"collection"`
	States         map[string]int `json:"states"`
	IndexStale     bool           `json:"index_stale"`
}
