package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/ports"
)

const maxQuestionLength = 1000

// AskUseCase answers free-text questions: infer state and date
// constraints, retrieve, compose citations, and optionally hand the
// retrieved context to the language model for phrasing.
type AskUseCase struct {
	engine    *RetrievalEngine
	store     *CorpusStore
	generator ports.AnswerGenerator
	useLLM    bool
	clock     clockwork.Clock
	logger    *slog.Logger
}

func NewAskUseCase(engine *RetrievalEngine, store *CorpusStore, generator ports.AnswerGenerator, useLLM bool, clock clockwork.Clock, logger *slog.Logger) *AskUseCase {
	return &AskUseCase{
		engine:    engine,
		store:     store,
		generator: generator,
		useLLM:    useLLM,
		clock:     clock,
		logger:    logger,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errQuestionEmpty)
	}
	if len(question) > maxQuestionLength {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errQuestionTooLong)
	}

	docs, err := uc.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	filter := domain.SearchFilter{State: InferState(question, docs)}
	filter.DateFrom, filter.DateTo = InferDateRange(question, uc.clock.Now())

	hits, mode, err := uc.engine.Retrieve(ctx, question, filter)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		Citations:     BuildCitations(hits),
		RequestID:     uuid.NewString(),
		Timestamp:     uc.clock.Now().UTC().Format(time.RFC3339),
		RetrievalMode: mode,
	}

	if len(hits) == 0 {
		answer.Text = BuildSummary(nil)
		answer.Confidence = domain.ConfidenceNone
		return answer, nil
	}

	answer.Text = BuildSummary(hits)
	answer.Confidence = domain.ConfidenceExtractive

	if uc.useLLM && uc.generator != nil {
		phrased, err := uc.generator.Phrase(ctx, question, BuildContext(hits))
		if err != nil {
			// Recoverable per contract: keep the extractive summary.
			uc.logger.Warn("llm phrasing failed, using extractive summary", "error", err)
		} else if phrased != "" {
			answer.Text = phrased
			answer.Confidence = domain.ConfidenceLLM
		}
	}
	return answer, nil
}

var (
	errQuestionEmpty   = &askValidationError{"question must not be empty"}
	errQuestionTooLong = &askValidationError{"question must be at most 1000 characters"}
)

type askValidationError struct{ msg string }

func (e *askValidationError) Error() string { return e.msg }
