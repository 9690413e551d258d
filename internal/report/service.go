package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/repo"
	"github.com/shubhamragade/workflow/internal/telemetry"
)

const (
	NoActivityText = "No significant activity recorded."
	LabelGenerated = "Generated Summary"
	LabelCached    = "Generated Summary (Cached)"
)

// Report is what callers receive from GetOrGenerate. ArtifactID is empty when
// the subject had no activity and nothing was stored.
type Report struct {
	ArtifactID  string              `json:"artifact_id,omitempty"`
	Kind        domain.ReportKind   `json:"kind"`
	SubjectKind domain.SubjectKind  `json:"subject_kind"`
	SubjectID   string              `json:"subject_id"`
	Text        string              `json:"text"`
	Label       string              `json:"type"`
	Cached      bool                `json:"cached"`
	Empty       bool                `json:"empty"`
	Status      domain.ReportStatus `json:"status"`
	Model       string              `json:"model,omitempty"`
	ContextHash string              `json:"context_hash,omitempty"`
	ErrorDetail string              `json:"error_detail,omitempty"`
	GeneratedAt string              `json:"generated_at"`
}

// Service assembles report context, deduplicates by content hash and calls the
// generator only on a miss. The generator runs outside any transaction.
type Service struct {
	DB        *sqlx.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Generator Generator
	Logger    *log.Logger
	Now       func() time.Time
}

func NewService(db *sqlx.DB, cfg *config.Config, gen Generator) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if gen == nil {
		gen = Stub{}
	}
	return &Service{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Config:    cfg,
		Generator: gen,
		Logger:    log.Default(),
		Now:       time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// GetOrGenerate returns the canonical report for the subject's current
// activity, generating and storing one if none matches.
func (s *Service) GetOrGenerate(ctx context.Context, kind domain.ReportKind, subjectID, actorID string) (Report, error) {
	if _, err := domain.ParseReportKind(string(kind)); err != nil {
		return Report{}, err
	}
	ctx, span := telemetry.StartSpan(ctx, "report.get_or_generate",
		attribute.String("report.kind", string(kind)),
		attribute.String("report.subject_id", subjectID),
	)
	defer span.End()

	out := Report{Kind: kind, SubjectKind: kind.Subject(), SubjectID: subjectID}
	a, err := s.assemble(ctx, kind, subjectID)
	if err != nil {
		span.RecordError(err)
		return Report{}, err
	}
	if a.Empty {
		out.Text = NoActivityText
		out.Label = LabelGenerated
		out.Empty = true
		out.Status = domain.ReportSuccess
		out.GeneratedAt = s.now().Format(time.RFC3339)
		span.SetAttributes(attribute.Bool("report.empty", true))
		return out, nil
	}
	hash := HashContext(a.Text)
	out.ContextHash = hash
	span.SetAttributes(attribute.String("report.context_hash", hash))

	existing, err := s.Repo.FindSuccessfulArtifact(ctx, nil, out.SubjectKind, subjectID, kind, hash)
	if err == nil {
		span.SetAttributes(attribute.Bool("report.cached", true))
		return fromArtifact(existing, true), nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return Report{}, err
	}

	text, model, genErr := s.generate(ctx, kind, a.Text)
	status := domain.ReportSuccess
	var detail *string
	if genErr != nil {
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "generation failed")
		s.logf("report: generate %s for %s %s (hash %s): %v", kind, out.SubjectKind, subjectID, hash[:12], genErr)
		status = domain.ReportFailed
		msg := genErr.Error()
		detail = &msg
		text = fmt.Sprintf("Summary generation failed. Context: %d logs found.", a.Logs)
	}
	art := domain.ReportArtifact{
		ID:          uuid.New().String(),
		SubjectKind: out.SubjectKind,
		SubjectID:   subjectID,
		Kind:        kind,
		Content:     text,
		Status:      status,
		Model:       model,
		ContextHash: hash,
		ErrorDetail: detail,
		GeneratedAt: s.now().Format(time.RFC3339),
	}
	stored, err := s.persist(ctx, art, actorID)
	if err != nil {
		return Report{}, err
	}
	return stored, nil
}

func (s *Service) generate(ctx context.Context, kind domain.ReportKind, contextText string) (string, string, error) {
	gen := s.Generator
	if gen == nil {
		gen = Stub{}
	}
	timeout := s.Config.Reports.Generator.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	genCtx, span := telemetry.StartSpan(genCtx, "report.generator",
		attribute.String("generator.model", gen.Model()),
	)
	defer span.End()

	text, err := gen.Generate(genCtx, Request{Kind: kind, System: SystemPrompt(kind), Context: contextText})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("generator returned empty text")
	}
	return text, gen.Model(), err
}

// persist stores the attempt and its audit event in one transaction. A SUCCESS
// artifact written concurrently for the same hash wins; ours is discarded.
func (s *Service) persist(ctx context.Context, art domain.ReportArtifact, actorID string) (Report, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return Report{}, err
	}
	defer tx.Rollback()

	if art.Status == domain.ReportSuccess {
		winner, err := s.Repo.FindSuccessfulArtifact(ctx, tx, art.SubjectKind, art.SubjectID, art.Kind, art.ContextHash)
		if err == nil {
			return fromArtifact(winner, true), nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return Report{}, err
		}
	}
	if err := s.Repo.InsertArtifact(ctx, tx, art); err != nil {
		return Report{}, fmt.Errorf("insert report artifact: %w", err)
	}
	projectID := ""
	if art.SubjectKind == domain.SubjectProject {
		projectID = art.SubjectID
	}
	w := s.Events
	if w.Now == nil {
		w.Now = s.now
	}
	if err := w.Append(ctx, tx, events.Event{
		Type:        events.AIGeneration,
		Description: fmt.Sprintf("%s: Status: %s", art.Kind, art.Status),
		ProjectID:   projectID,
		EntityKind:  "report",
		EntityID:    art.ID,
		ActorID:     actorID,
		Payload: events.EventPayload{
			"hash":         art.ContextHash,
			"status":       art.Status,
			"subject_kind": art.SubjectKind,
			"subject_id":   art.SubjectID,
			"model":        art.Model,
		},
	}); err != nil {
		return Report{}, err
	}
	if err := tx.Commit(); err != nil {
		return Report{}, err
	}
	return fromArtifact(art, false), nil
}

// History lists stored attempts for a subject, newest first.
func (s *Service) History(ctx context.Context, subjectKind domain.SubjectKind, subjectID string, kind domain.ReportKind, limit int) ([]domain.ReportArtifact, error) {
	return s.Repo.ListArtifacts(ctx, subjectKind, subjectID, kind, limit)
}

func fromArtifact(a domain.ReportArtifact, cached bool) Report {
	r := Report{
		ArtifactID:  a.ID,
		Kind:        a.Kind,
		SubjectKind: a.SubjectKind,
		SubjectID:   a.SubjectID,
		Text:        a.Content,
		Label:       LabelGenerated,
		Cached:      cached,
		Status:      a.Status,
		Model:       a.Model,
		ContextHash: a.ContextHash,
		GeneratedAt: a.GeneratedAt,
	}
	if cached {
		r.Label = LabelCached
	}
	if a.ErrorDetail != nil {
		r.ErrorDetail = *a.ErrorDetail
	}
	return r
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}
