package coder

import (
	"fmt"
	"strings"

	"visionfix/internal/config"
	"visionfix/internal/ledger"
)

// BuildPrompt renders the repair prompt for one bug.
func BuildPrompt(p config.PromptConfig, bug ledger.Bug) string {
	fence := p.CodeFence
	role := p.CoderRole
	if role == "" {
		role = "senior software engineer"
	}
	target := p.CoderTarget
	if target == "" {
		target = "this application"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a %s. Fix this bug in %s.\n\n", role, target)
	if len(p.ProjectDetails) > 0 {
		sb.WriteString("Project details:\n")
		for _, d := range p.ProjectDetails {
			sb.WriteString("- " + d + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Bug to fix:\n")
	fmt.Fprintf(&sb, "- Component: %s\n", bug.Component)
	fmt.Fprintf(&sb, "- Description: %s\n", bug.Description)
	fmt.Fprintf(&sb, "- Expected: %s\n", bug.Expected)
	fmt.Fprintf(&sb, "- Actual: %s\n", bug.Actual)
	fmt.Fprintf(&sb, "- Suggested approach: %s\n\n", bug.SuggestedFix)

	sb.WriteString("Respond with the fix in this exact format:\n\n")
	sb.WriteString("FILE: relative/path/to/file" + extensionFor(fence) + "\n")
	fmt.Fprintf(&sb, "```%s\n// Show only the changed section with enough context to locate it\n```\n\n", fence)
	fmt.Fprintf(&sb, "OLD_CODE:\n```%s\n// exact code to replace\n```\n\n", fence)
	fmt.Fprintf(&sb, "NEW_CODE:\n```%s\n// replacement code\n```\n\n", fence)
	sb.WriteString("EXPLANATION:\nBrief explanation of the fix.\n\n")
	sb.WriteString(`If you need to see file contents first, say "NEED_FILE: path/to/file" and I will provide it.`)
	return sb.String()
}

// AppendFileContext adds requested file content to a prompt.
func AppendFileContext(prompt, content, fence string) string {
	return prompt + "\n\nHere is the file content:\n```" + fence + "\n" + content + "\n```"
}

func extensionFor(fence string) string {
	switch fence {
	case "typescript", "ts":
		return ".ts"
	case "javascript", "js":
		return ".js"
	case "go":
		return ".go"
	case "python", "py":
		return ".py"
	default:
		return ""
	}
}
