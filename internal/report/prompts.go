package report

import (
	"github.com/shubhamragade/workflow/internal/domain"
)

const baseRules = `You are an expert system.
1. Be grounded in provided logs/context.
2. Mark all outputs as "Generated Summary" clearly.
3. Do not hallucinate details not present in the context.
4. Your analysis is READ-ONLY. You cannot change system state.
`

var kindDirectives = map[domain.ReportKind]string{
	domain.ReportHandover: `Generate a high-density handover report.
Summarize open tasks, recent decisions, and suggest next focus areas.
Focus on context, legacy, and risks.`,
	domain.ReportDaily: `Daily project summary. Summarize tasks, blockers, and decisions.`,
	domain.ReportWeekly: `Weekly progress summary. Analyze % completion change, top contributors, and risk trends.`,
	domain.ReportContributor: `Generate a contributor summary. Summarize areas worked on, type of contributions, and knowledge areas.`,
	domain.ReportContributorImpact: `Generate a detailed Contributor Impact Report.
For each member, analyze:
1. Key Deliverables (Tasks completed)
2. Strategic Decisions (Decisions authored)
3. Value Added (Complexity of work logs)
4. Knowledge Islands (Unique areas they own)
Focus on OUTCOMES, not just output.`,
}

var userPrompts = map[domain.ReportKind]string{
	domain.ReportHandover:          "Generate a handover report for this project member exit:",
	domain.ReportContributor:       "Analyze contributor impact:",
	domain.ReportContributorImpact: "Analyze the impact of each contributor in this project:",
	domain.ReportWeekly:            "Summarize this week of project activity:",
	domain.ReportDaily:             "Summarize today's project activity:",
}

// SystemPrompt returns the fixed instruction set for a report kind.
func SystemPrompt(kind domain.ReportKind) string {
	return baseRules + "\n" + kindDirectives[kind] + "\n"
}

// UserPrompt wraps the assembled context into the message sent to a generator.
func UserPrompt(kind domain.ReportKind, context string) string {
	return userPrompts[kind] + "\n\n" + context
}
