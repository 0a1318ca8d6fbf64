package vision

import (
	"strings"

	"visionfix/internal/config"
)

const responseShape = `Respond with ONLY valid JSON (no markdown):
{
  "status": "pass" | "fail",
  "bugs": [
    {
      "id": "BUG-001",
      "severity": "critical" | "high" | "medium" | "low",
      "category": "layout" | "state" | "visual" | "data",
      "component": "component name",
      "description": "what's wrong",
      "expected": "what should be",
      "actual": "what is shown",
      "suggested_fix": "high-level fix approach"
    }
  ],
  "observations": ["general observations"]
}`

// BuildPrompt renders the analysis prompt for the configured application.
func BuildPrompt(p config.PromptConfig) string {
	var sb strings.Builder
	sb.WriteString("You are a UI quality analyst. Analyze this screenshot from ")
	if p.Framework != "" {
		sb.WriteString("an " + p.Framework + " web application.\n\n")
	} else {
		sb.WriteString("a web application.\n\n")
	}

	sb.WriteString("Look for:\n")
	sb.WriteString("1. Layout issues (misaligned elements, overlapping, cut-off text)\n")
	sb.WriteString("2. State mismatches (filter chips not matching URL, wrong counts)\n")
	sb.WriteString("3. Visual bugs (missing icons, broken layouts, invisible elements)\n")
	sb.WriteString("4. Data issues (empty tables when data expected)\n\n")

	if p.AppSummary != "" || len(p.Regions) > 0 {
		sb.WriteString("The application shows")
		if p.AppSummary != "" {
			sb.WriteString(" " + p.AppSummary)
		}
		sb.WriteString(" with:\n")
		for _, r := range p.Regions {
			sb.WriteString("- " + r + "\n")
		}
		sb.WriteString("\n")
	}
	if p.ScreenshotNote != "" {
		sb.WriteString(p.ScreenshotNote + "\n\n")
	}

	sb.WriteString(responseShape)
	return sb.String()
}
