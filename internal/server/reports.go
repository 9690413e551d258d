package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/report"
)

type reportOutput struct {
	Status int
	Body   report.Report
}

// reportStatus maps a report outcome to its HTTP status: a fresh artifact is
// 201, a failed attempt 203 and anything served without generating 200.
func reportStatus(r report.Report) int {
	switch {
	case r.Empty || r.Cached:
		return http.StatusOK
	case r.Status == domain.ReportFailed:
		return http.StatusNonAuthoritativeInfo
	default:
		return http.StatusCreated
	}
}

func parseKindFor(raw string, subject domain.SubjectKind) (domain.ReportKind, error) {
	kind, err := domain.ParseReportKind(raw)
	if err != nil {
		return "", err
	}
	if kind.Subject() != subject {
		return "", domain.InvalidInput(fmt.Sprintf("report kind %s is not available for a %s", kind, subject))
	}
	return kind, nil
}

func (h *handlers) registerReports(api huma.API) {
	svc := h.app.Reports
	reportErrors := []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound}

	generate := func(ctx context.Context, subject domain.SubjectKind, subjectID, rawKind string) (*reportOutput, error) {
		actorID, err := h.actor(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		kind, err := parseKindFor(rawKind, subject)
		if err != nil {
			return nil, handleError(err)
		}
		r, err := svc.GetOrGenerate(ctx, kind, subjectID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &reportOutput{Status: reportStatus(r), Body: r}, nil
	}

	history := func(ctx context.Context, subject domain.SubjectKind, subjectID, rawKind string, limit int) (*bodyOutput[[]domain.ReportArtifact], error) {
		var kind domain.ReportKind
		if rawKind != "" {
			k, err := parseKindFor(rawKind, subject)
			if err != nil {
				return nil, handleError(err)
			}
			kind = k
		}
		items, err := svc.History(ctx, subject, subjectID, kind, normalizeLimit(limit))
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "project-report",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/reports/{kind}",
		Summary:     "Daily, weekly or contributor impact summary",
		Description: "200 when served from cache or there is no activity, 201 when freshly generated, 203 when generation failed and the failure was recorded.",
		Errors:      reportErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Kind      string `path:"kind" doc:"daily, weekly or contributor_impact"`
	}) (*reportOutput, error) {
		if _, err := h.app.Engine.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return generate(ctx, domain.SubjectProject, input.ProjectID, input.Kind)
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-report",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/reports/{kind}",
		Summary:     "Handover or contributor summary",
		Errors:      reportErrors,
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Kind   string `path:"kind" doc:"handover or contributor"`
	}) (*reportOutput, error) {
		return generate(ctx, domain.SubjectUser, input.UserID, input.Kind)
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-report-history",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/reports",
		Summary:     "Stored report attempts, newest first",
		Errors:      reportErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Kind      string `query:"kind"`
		Limit     int    `query:"limit"`
	}) (*bodyOutput[[]domain.ReportArtifact], error) {
		return history(ctx, domain.SubjectProject, input.ProjectID, input.Kind, input.Limit)
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-report-history",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/reports",
		Summary:     "Stored report attempts for a user, newest first",
		Errors:      reportErrors,
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Kind   string `query:"kind"`
		Limit  int    `query:"limit"`
	}) (*bodyOutput[[]domain.ReportArtifact], error) {
		return history(ctx, domain.SubjectUser, input.UserID, input.Kind, input.Limit)
	})
}
