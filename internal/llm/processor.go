package llm

import (
	"context"
	"fmt"
	"log/slog"

	"redditminer/internal/models"
)

// maxAnalyzeRetries bounds the model-call retries per post
const maxAnalyzeRetries = 3

// Invoker is the model-call surface the processor drives
type Invoker interface {
	AnalyzeWithRetry(ctx context.Context, userPrompt string, maxRetries int, temperature float64) (string, error)
}

// ProcessorStore is the storage surface the analysis job needs
type ProcessorStore interface {
	PendingPosts(ctx context.Context, limit int) ([]models.Post, error)
	SetPostStatus(ctx context.Context, postID string, status models.ProcessStatus) error
	InsertPainPoint(ctx context.Context, painPoint *models.PainPoint) (string, error)
	GetOrCreateTag(ctx context.Context, name string) (string, error)
	LinkPainPointTag(ctx context.Context, painPointID, tagID string) error
}

// Outcome is the terminal classification of one processed post
type Outcome string

const (
	OutcomePainPoint   Outcome = "pain_point"
	OutcomeNoPainPoint Outcome = "no_pain_point"
	OutcomeFailed      Outcome = "failed"
)

// Processor drives the per-post analysis state machine:
// pending → processing → {completed, no_pain_point, failed}
type Processor struct {
	invoker Invoker
	store   ProcessorStore
	logger  *slog.Logger
}

// NewProcessor creates a processor over the given invoker and store
func NewProcessor(invoker Invoker, store ProcessorStore, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{invoker: invoker, store: store, logger: logger}
}

// RunBatch pulls up to batchSize pending posts (highest engagement
// first) and processes each independently. One post's failure is
// counted and never aborts the batch
func (p *Processor) RunBatch(ctx context.Context, batchSize int) (models.BatchStats, error) {
	p.logger.Info("starting analysis batch", "batch_size", batchSize)

	var stats models.BatchStats

	posts, err := p.store.PendingPosts(ctx, batchSize)
	if err != nil {
		return stats, fmt.Errorf("list pending posts: %w", err)
	}
	stats.Total = len(posts)

	if len(posts) == 0 {
		p.logger.Info("no pending posts")
		return stats, nil
	}

	for _, post := range posts {
		outcome, err := p.ProcessSingle(ctx, post)
		if err != nil {
			p.logger.Error("post processing failed", "post_id", post.ID, "error", err)
		}
		switch outcome {
		case OutcomePainPoint:
			stats.PainPoints++
		case OutcomeNoPainPoint:
			stats.NoPainPoints++
		default:
			stats.Failed++
		}
	}

	p.logger.Info("analysis batch complete",
		"total", stats.Total, "pain_points", stats.PainPoints,
		"no_pain_points", stats.NoPainPoints, "failed", stats.Failed)
	return stats, nil
}

// ProcessSingle runs one post through the pipeline. The post is marked
// processing first; any later error marks it failed
func (p *Processor) ProcessSingle(ctx context.Context, post models.Post) (Outcome, error) {
	p.logger.Info("processing post", "post_id", post.ID, "title", preview(post.Title, 50))

	if err := p.store.SetPostStatus(ctx, post.ID, models.StatusProcessing); err != nil {
		return OutcomeFailed, fmt.Errorf("mark processing: %w", err)
	}

	outcome, err := p.analyze(ctx, post)
	if err != nil {
		if statusErr := p.store.SetPostStatus(ctx, post.ID, models.StatusFailed); statusErr != nil {
			p.logger.Warn("failed to mark post failed", "post_id", post.ID, "error", statusErr)
		}
		return OutcomeFailed, err
	}
	return outcome, nil
}

func (p *Processor) analyze(ctx context.Context, post models.Post) (Outcome, error) {
	prompt := BuildUserPrompt(post.SubredditName, post.Title, post.Content,
		post.Score, post.NumComments, post.TopComments)

	response, err := p.invoker.AnalyzeWithRetry(ctx, prompt, maxAnalyzeRetries, DefaultTemperature)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("model invocation: %w", err)
	}

	data, err := ExtractJSON(response)
	if err != nil {
		return OutcomeFailed, err
	}
	result, err := ParseAnalysisResult(data)
	if err != nil {
		return OutcomeFailed, err
	}

	if result.IsPainPoint && result.PainPoint != nil {
		if err := p.savePainPoint(ctx, post.ID, result); err != nil {
			return OutcomeFailed, err
		}
		if err := p.store.SetPostStatus(ctx, post.ID, models.StatusCompleted); err != nil {
			return OutcomeFailed, fmt.Errorf("mark completed: %w", err)
		}
		p.logger.Info("pain point identified", "post_id", post.ID, "confidence", result.Confidence)
		return OutcomePainPoint, nil
	}

	if err := p.store.SetPostStatus(ctx, post.ID, models.StatusNoPainPoint); err != nil {
		return OutcomeFailed, fmt.Errorf("mark no_pain_point: %w", err)
	}
	p.logger.Info("no pain point", "post_id", post.ID, "reason", result.Reason)
	return OutcomeNoPainPoint, nil
}

// savePainPoint persists the extraction and links its tags. Tag
// failures are logged and swallowed; they never roll back the record
func (p *Processor) savePainPoint(ctx context.Context, postID string, result *models.AnalysisResult) error {
	extraction := result.PainPoint

	painPoint := &models.PainPoint{
		PostID:          postID,
		Title:           extraction.Title,
		Description:     extraction.Description,
		UserNeed:        extraction.UserNeed,
		CurrentSolution: extraction.CurrentSolution,
		IdealSolution:   extraction.IdealSolution,
		Competitors:     extraction.Competitors,
		Quotes:          extraction.Quotes,
		TargetPersonas:  extraction.TargetPersonas,
		Insights:        extraction.Insights,
		IndustryCode:    extraction.IndustryCode,
		TypeCode:        extraction.TypeCode,
		Confidence:      result.Confidence,
		TotalScore:      models.TotalScore(extraction.Scores),
		Scores:          extraction.Scores,
	}

	painPointID, err := p.store.InsertPainPoint(ctx, painPoint)
	if err != nil {
		return fmt.Errorf("insert pain point: %w", err)
	}

	for _, tag := range extraction.Tags {
		tagID, err := p.store.GetOrCreateTag(ctx, tag)
		if err != nil {
			p.logger.Warn("tag creation failed", "tag", tag, "error", err)
			continue
		}
		if err := p.store.LinkPainPointTag(ctx, painPointID, tagID); err != nil {
			p.logger.Warn("tag link failed", "tag", tag, "error", err)
		}
	}

	p.logger.Info("pain point saved", "pain_point_id", painPointID, "total_score", painPoint.TotalScore)
	return nil
}
