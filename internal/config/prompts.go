package config

// PromptConfig carries the application-specific parts of the vision and
// repair prompts. The response-shape instructions are fixed in code.
type PromptConfig struct {
	Framework      string   `yaml:"framework"`       // e.g. "Angular/PrimeNG"
	AppSummary     string   `yaml:"app_summary"`     // what the application shows
	Regions        []string `yaml:"regions"`         // expected UI regions
	ScreenshotNote string   `yaml:"screenshot_note"` // extra hint about the capture
	CoderRole      string   `yaml:"coder_role"`
	CoderTarget    string   `yaml:"coder_target"`
	ProjectDetails []string `yaml:"project_details"`
	CodeFence      string   `yaml:"code_fence"` // language tag for fenced blocks
}

// DefaultPromptConfig returns prompts for the reference Angular frontend.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		Framework:  "Angular/PrimeNG",
		AppSummary: "automobile data",
		Regions: []string{
			"Query Control Panel (filter dropdown, filter chips)",
			`Results Table (data-testid="basic-results-table")`,
			"Statistics Panel (charts)",
			"Picker Panel (manufacturer/model selection)",
		},
		ScreenshotNote: "URL is shown in the overlay bar at top of screenshot.",
		CoderRole:      "senior Angular developer",
		CoderTarget:    "a PrimeNG 20 application",
		ProjectDetails: []string{
			"Angular 20.3.15 with standalone components",
			"PrimeNG 20.4.0 (Dropdown is now p-select, not p-dropdown)",
			"TypeScript 5.8.3",
			"URL-first state management via UrlStateService",
		},
		CodeFence: "typescript",
	}
}
