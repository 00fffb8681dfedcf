package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/submitech/submitech-api/internal/models"
	"github.com/submitech/submitech-api/internal/observability"
	"github.com/submitech/submitech-api/internal/repository"
	"github.com/submitech/submitech-api/pkg/extract"
)

// ErrQueueFull indicates the evaluation queue has no capacity left.
var ErrQueueFull = errors.New("evaluation queue is full")

// Normalizer canonicalizes extracted text for comparison.
type Normalizer interface {
	Normalize(text string) string
}

// TextScorer measures semantic similarity between two texts on a 0-100 scale.
type TextScorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// GrammarScorer rates text quality on a 0-10 scale.
type GrammarScorer interface {
	Score(text string) int
}

// DiagramReader recognizes diagram images and returns their OCR text.
type DiagramReader interface {
	ExtractDiagramText(ctx context.Context, images []image.Image) string
}

// PlagiarismScorer computes per-document plagiarism scores for a cohort.
type PlagiarismScorer interface {
	Score(docs []string) ([]float64, error)
}

// EvaluationService runs the scoring pipeline for submissions.
type EvaluationService interface {
	EvaluationEnqueuer
	Evaluate(ctx context.Context, submissionID uint) error
	RecomputeCohort(ctx context.Context, assignmentID uint) (int, error)
	Start(ctx context.Context)
}

type evaluationService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	store       FileStore
	normalizer  Normalizer
	textScorer  TextScorer
	grammar     GrammarScorer
	diagrams    DiagramReader
	cohort      PlagiarismScorer
	notifier    NotificationService
	grading     GradingConfig

	plagiarismThreshold float64

	logger zerolog.Logger
	tracer trace.Tracer

	jobs    chan uint
	workers int

	// inflight tracks the sequence number of the newest recompute per
	// assignment. The supersession check and the batch write run under
	// the assignment's write lock; an older run whose sequence number no
	// longer matches skips its write phase.
	mu       sync.Mutex
	seq      uint64
	inflight map[uint]uint64
	writes   map[uint]*sync.Mutex
}

// EvaluationConfig bundles the orchestrator dependencies.
type EvaluationConfig struct {
	Submissions repository.SubmissionRepository
	Assignments repository.AssignmentRepository
	Store       FileStore
	Normalizer  Normalizer
	TextScorer  TextScorer
	Grammar     GrammarScorer
	Diagrams    DiagramReader
	Cohort      PlagiarismScorer
	Notifier    NotificationService
	Grading     GradingConfig

	PlagiarismThreshold float64
	Workers             int
	QueueSize           int
	Logger              zerolog.Logger
}

// NewEvaluationService constructs the evaluation orchestrator.
func NewEvaluationService(cfg EvaluationConfig) EvaluationService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	threshold := cfg.PlagiarismThreshold
	if threshold <= 0 {
		threshold = 50
	}

	return &evaluationService{
		submissions:         cfg.Submissions,
		assignments:         cfg.Assignments,
		store:               cfg.Store,
		normalizer:          cfg.Normalizer,
		textScorer:          cfg.TextScorer,
		grammar:             cfg.Grammar,
		diagrams:            cfg.Diagrams,
		cohort:              cfg.Cohort,
		notifier:            cfg.Notifier,
		grading:             cfg.Grading,
		plagiarismThreshold: threshold,
		logger:              cfg.Logger.With().Str("component", "evaluation_service").Logger(),
		tracer:              otel.Tracer("github.com/submitech/submitech-api/internal/service/evaluation"),
		jobs:                make(chan uint, queueSize),
		workers:             workers,
		inflight:            make(map[uint]uint64),
		writes:              make(map[uint]*sync.Mutex),
	}
}

// Start launches the background worker pool. Workers exit when ctx is done.
func (s *evaluationService) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		go s.worker(ctx, i)
	}
}

func (s *evaluationService) worker(ctx context.Context, id int) {
	logger := s.logger.With().Int("worker", id).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case submissionID := <-s.jobs:
			observability.EvaluationQueueDepth().Dec()
			if err := s.Evaluate(ctx, submissionID); err != nil {
				logger.Error().Err(err).Uint("submission_id", submissionID).Msg("evaluation failed")
			}
		}
	}
}

// Enqueue queues a submission for asynchronous evaluation.
func (s *evaluationService) Enqueue(submissionID uint) error {
	select {
	case s.jobs <- submissionID:
		observability.EvaluationQueueDepth().Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Evaluate runs the full pipeline for one submission: extraction,
// normalization, similarity and grammar scoring, then a cohort plagiarism
// recompute that grades every affected submission. Stage failures degrade
// the affected component score to zero instead of aborting.
func (s *evaluationService) Evaluate(ctx context.Context, submissionID uint) error {
	spanCtx, span := s.tracer.Start(ctx, "evaluation.evaluate",
		trace.WithAttributes(attribute.Int64("submission.id", int64(submissionID))))
	defer span.End()

	submission, err := s.submissions.GetByID(spanCtx, submissionID)
	if err != nil {
		observability.EvaluationsTotal().WithLabelValues("failed").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	assignment, err := s.assignments.GetByID(spanCtx, submission.AssignmentID)
	if err != nil {
		observability.EvaluationsTotal().WithLabelValues("failed").Inc()
		return fmt.Errorf("load assignment: %w", err)
	}

	// Lateness is fixed at first evaluation and never reconsidered.
	isLate := submission.IsLate
	if submission.Status == models.SubmissionStatusUploaded {
		isLate = submission.SubmittedAt.After(assignment.DueDate)
	}

	text, images := s.extractStage(spanCtx, submission)
	normalized := s.timedStage("normalize", func() string {
		return s.normalizer.Normalize(text)
	})

	modelNormalized, modelDiagram, err := s.modelAnswerArtifacts(spanCtx, &assignment)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("model answer unavailable, similarity scores degrade to zero")
	}

	textScore := s.similarityStage(spanCtx, "text_similarity", normalized, modelNormalized)

	diagramText := ""
	if len(images) > 0 {
		start := time.Now()
		diagramText = s.diagrams.ExtractDiagramText(spanCtx, images)
		observability.EvaluationStageDuration().WithLabelValues("diagram_ocr").Observe(time.Since(start).Seconds())
	}
	diagramScore := s.similarityStage(spanCtx, "diagram_similarity", diagramText, modelDiagram)

	// Grammar is rated on the normalized token stream, not the raw extraction.
	grammarScore := 0
	if normalized != "" {
		start := time.Now()
		grammarScore = s.grammar.Score(normalized)
		observability.EvaluationStageDuration().WithLabelValues("grammar").Observe(time.Since(start).Seconds())
	}

	update := repository.ScoreUpdate{
		SubmissionID:           submission.ID,
		ExtractedText:          text,
		NormalizedText:         normalized,
		DiagramText:            diagramText,
		TextSimilarityScore:    textScore,
		DiagramSimilarityScore: diagramScore,
		GrammarScore:           grammarScore,
		PlagiarismScore:        submission.PlagiarismScore,
		IsLate:                 isLate,
		FinalMark:              submission.FinalMark,
		Grade:                  submission.Grade,
		Feedback:               submission.Feedback,
		Status:                 models.SubmissionStatusPlagiarismPending,
	}
	if err := s.submissions.UpdateScores(spanCtx, update); err != nil {
		observability.EvaluationsTotal().WithLabelValues("failed").Inc()
		return fmt.Errorf("persist component scores: %w", err)
	}

	if _, err := s.RecomputeCohort(spanCtx, submission.AssignmentID); err != nil {
		observability.EvaluationsTotal().WithLabelValues("failed").Inc()
		return fmt.Errorf("cohort recompute: %w", err)
	}

	graded, err := s.submissions.GetByID(spanCtx, submission.ID)
	if err == nil && graded.Status == models.SubmissionStatusGraded && s.notifier != nil {
		if err := s.notifier.NotifyGraded(spanCtx, graded); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", graded.ID).Msg("graded notification failed")
		}
	}

	observability.EvaluationsTotal().WithLabelValues("graded").Inc()
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Float64("text_score", textScore).
		Float64("diagram_score", diagramScore).
		Int("grammar_score", grammarScore).
		Bool("is_late", isLate).
		Msg("submission evaluated")

	return nil
}

func (s *evaluationService) extractStage(ctx context.Context, submission models.Submission) (string, []image.Image) {
	start := time.Now()
	defer func() {
		observability.EvaluationStageDuration().WithLabelValues("extract").Observe(time.Since(start).Seconds())
	}()

	data, err := s.store.Fetch(ctx, submission.FileURL)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("file fetch failed, scores degrade to zero")
		return "", nil
	}

	result, err := extract.Extract(submission.FileName, data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			s.logger.Warn().Uint("submission_id", submission.ID).Str("file", submission.FileName).Msg("unsupported format, scores degrade to zero")
		} else {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("extraction failed, scores degrade to zero")
		}
		return "", nil
	}

	return result.Text, result.Images
}

func (s *evaluationService) timedStage(stage string, fn func() string) string {
	start := time.Now()
	defer func() {
		observability.EvaluationStageDuration().WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}()
	return fn()
}

func (s *evaluationService) similarityStage(ctx context.Context, stage, a, b string) float64 {
	start := time.Now()
	defer func() {
		observability.EvaluationStageDuration().WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}()

	score, err := s.textScorer.Score(ctx, a, b)
	if err != nil {
		s.logger.Warn().Err(err).Str("stage", stage).Msg("similarity scoring failed, score degrades to zero")
		return 0
	}
	return score
}

// modelAnswerArtifacts returns the normalized text and diagram text of the
// assignment's model answer, extracting and caching them on first use.
func (s *evaluationService) modelAnswerArtifacts(ctx context.Context, assignment *models.Assignment) (string, string, error) {
	if assignment.HasCachedArtifacts() {
		return assignment.ModelAnswerNormalized, assignment.ModelAnswerDiagram, nil
	}

	if assignment.ModelAnswerURL == "" {
		return "", "", errors.New("assignment has no model answer")
	}

	data, err := s.store.Fetch(ctx, assignment.ModelAnswerURL)
	if err != nil {
		return "", "", fmt.Errorf("fetch model answer: %w", err)
	}

	result, err := extract.Extract(assignment.ModelAnswerName, data)
	if err != nil {
		return "", "", fmt.Errorf("extract model answer: %w", err)
	}

	assignment.ModelAnswerText = result.Text
	assignment.ModelAnswerNormalized = s.normalizer.Normalize(result.Text)
	if len(result.Images) > 0 {
		assignment.ModelAnswerDiagram = s.diagrams.ExtractDiagramText(ctx, result.Images)
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to cache model answer artifacts")
	}

	return assignment.ModelAnswerNormalized, assignment.ModelAnswerDiagram, nil
}

func (s *evaluationService) writeLock(assignmentID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.writes[assignmentID]
	if !ok {
		lock = &sync.Mutex{}
		s.writes[assignmentID] = lock
	}
	return lock
}

// RecomputeCohort recalculates plagiarism scores for every evaluated
// submission of the assignment and re-grades them atomically. Concurrent
// recomputes for the same assignment serialize their write phases; an older
// run either skips its write or has its batch overwritten by the newer run.
func (s *evaluationService) RecomputeCohort(ctx context.Context, assignmentID uint) (int, error) {
	spanCtx, span := s.tracer.Start(ctx, "evaluation.recompute_cohort",
		trace.WithAttributes(attribute.Int64("assignment.id", int64(assignmentID))))
	defer span.End()

	s.mu.Lock()
	s.seq++
	started := s.seq
	s.inflight[assignmentID] = started
	s.mu.Unlock()

	observability.PlagiarismRecomputes().Inc()

	submissions, err := s.submissions.ListByAssignment(spanCtx, assignmentID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	// Only submissions that have been through component scoring take part.
	cohort := make([]models.Submission, 0, len(submissions))
	for _, submission := range submissions {
		switch submission.Status {
		case models.SubmissionStatusPlagiarismPending, models.SubmissionStatusScored, models.SubmissionStatusGraded:
			cohort = append(cohort, submission)
		}
	}

	if len(cohort) == 0 {
		return 0, nil
	}

	docs := make([]string, len(cohort))
	for i, submission := range cohort {
		docs[i] = submission.NormalizedText
	}

	start := time.Now()
	scores, err := s.cohort.Score(docs)
	observability.EvaluationStageDuration().WithLabelValues("plagiarism").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("cohort scoring: %w", err)
	}

	updates := make([]repository.ScoreUpdate, 0, len(cohort))
	flagged := make([]int, 0)
	for i, submission := range cohort {
		result := s.grading.Grade(
			submission.TextSimilarityScore,
			submission.DiagramSimilarityScore,
			submission.GrammarScore,
			scores[i],
			submission.IsLate,
		)
		mark := result.Mark

		updates = append(updates, repository.ScoreUpdate{
			SubmissionID:           submission.ID,
			ExtractedText:          submission.ExtractedText,
			NormalizedText:         submission.NormalizedText,
			DiagramText:            submission.DiagramText,
			TextSimilarityScore:    submission.TextSimilarityScore,
			DiagramSimilarityScore: submission.DiagramSimilarityScore,
			GrammarScore:           submission.GrammarScore,
			PlagiarismScore:        scores[i],
			IsLate:                 submission.IsLate,
			FinalMark:              &mark,
			Grade:                  result.Grade,
			Feedback:               result.Feedback,
			Status:                 models.SubmissionStatusGraded,
		})

		if scores[i] >= s.plagiarismThreshold {
			flagged = append(flagged, i)
		}
	}

	// The supersession check and the batch write must be one atomic step:
	// without the write lock an older run could pass the check and then
	// land its batch after a newer run has already written.
	writeLock := s.writeLock(assignmentID)
	writeLock.Lock()
	defer writeLock.Unlock()

	s.mu.Lock()
	superseded := s.inflight[assignmentID] != started
	s.mu.Unlock()
	if superseded {
		s.logger.Info().Uint("assignment_id", assignmentID).Msg("recompute superseded, skipping write")
		return len(cohort), nil
	}

	if err := s.submissions.UpdateScoresBatch(spanCtx, updates); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("persist cohort scores: %w", err)
	}

	if s.notifier != nil {
		for _, i := range flagged {
			if err := s.notifier.NotifyPlagiarism(spanCtx, cohort[i], scores[i]); err != nil {
				s.logger.Warn().Err(err).Uint("submission_id", cohort[i].ID).Msg("plagiarism notification failed")
			}
		}
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Int("cohort_size", len(cohort)).
		Int("flagged", len(flagged)).
		Msg("cohort plagiarism recomputed")

	return len(cohort), nil
}
