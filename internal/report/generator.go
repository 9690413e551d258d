package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/shubhamragade/workflow/internal/domain"
)

// Request is one generation call.
type Request struct {
	Kind    domain.ReportKind
	System  string
	Context string
}

// Generator turns an assembled context into report prose. Implementations
// must honour ctx cancellation.
type Generator interface {
	Model() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Stub returns canned text per report kind. It never fails and never calls
// out of process.
type Stub struct{}

const StubModel = "stub"

func (Stub) Model() string { return StubModel }

func (Stub) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject := strings.SplitN(req.Context, "\n", 2)[0]
	var body string
	switch req.Kind {
	case domain.ReportDaily:
		body = "Daily standup digest. Review the recent logs, blockers and decisions listed in the context."
	case domain.ReportWeekly:
		body = "Weekly velocity digest. Completion trend, contributors and risk signals follow the context."
	case domain.ReportHandover:
		body = "Handover digest. Open tasks and recent decisions need an owner before exit."
	case domain.ReportContributor:
		body = "Contributor digest. Areas of work and decisions authored are listed in the context."
	case domain.ReportContributorImpact:
		body = "Contributor impact digest. Deliverables and strategic decisions per member."
	default:
		return "", fmt.Errorf("stub: unsupported report kind %s", req.Kind)
	}
	return fmt.Sprintf("### Generated Summary (%s)\n\n%s\n%s", req.Kind, subject, body), nil
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Model() string { return "func" }

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
