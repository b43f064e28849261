package agent

import (
	"os"
	"path/filepath"
)

// defaultPlannerPrompt is the built-in generation request for plan synthesis.
// The single %s placeholder receives the user goal.
const defaultPlannerPrompt = `You are an autonomous planner. Input: a user goal.
Return ONLY valid JSON (no commentary, no markdown). The JSON MUST match this shape:

{
  "goal": "<original goal>",
  "steps": [
    { "id": 1, "action": "ShortActionName", "tool": "search|calendar|email", "args": {} }
  ]
}

Rules:
1) Use only tools from this set: "search", "calendar", "email".
2) Each step must have id (int), action (short string), tool (one of allowed), args (object).
3) Dates should use ISO-8601 where applicable.
4) Keep the JSON compact and machine-parseable - NO extra text.
Now create a plan for this goal: """%s"""
`

// defaultEnrichmentPrompt rewrites an email template using prior step results.
// Placeholders, in order: original body, goal, search context, calendar
// context, source links, attachment file names.
const defaultEnrichmentPrompt = `You are an AI assistant helping to write a professional email summary based on research findings.

ORIGINAL EMAIL TEMPLATE:
"""
%s
"""

USER'S GOAL: %s

SEARCH RESULTS WITH FULL CONTENT:
%s

CALENDAR EVENTS CREATED:
%s

ALL SOURCE LINKS (MUST BE INCLUDED):
%s

ATTACHED FILES (reference them by name in the email):
%s

TASK:
Write a complete professional email that replaces ALL placeholders in the template with actual content.

CRITICAL REQUIREMENTS:
1. Replace ALL placeholders like [Please describe...], [Manager's Name], [Your Name], etc. with real content
2. For [Manager's Name] - use "Manager" or the actual name if you know it
3. For [Your Name] - remove or use appropriate closing
4. Summarize the search results content into clear, concise paragraphs (3-5 sentences per topic)
5. MUST include ALL source links from the research - add them at the end of relevant sections
6. If multiple searches were done, organize findings by topic
7. Keep it professional, business-appropriate tone
8. Total length: 250-400 words
9. Format: Plain text paragraphs (NO markdown headers, NO bullet points)
10. Include specific tool names, technologies, or key findings mentioned in the content

Return ONLY the complete email body. No preamble, no explanation, just the email.
`

// PromptManager resolves prompt templates, preferring .md files in its
// directory over the built-in defaults so prompts can be tuned without a
// rebuild.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

func (pm *PromptManager) GetPlannerPrompt() string {
	return pm.load("planner.md", defaultPlannerPrompt)
}

func (pm *PromptManager) GetEnrichmentPrompt() string {
	return pm.load("enrichment.md", defaultEnrichmentPrompt)
}

func (pm *PromptManager) load(name string, fallback string) string {
	if pm == nil || pm.Directory == "" {
		return fallback
	}
	data, err := os.ReadFile(filepath.Join(pm.Directory, name))
	if err != nil || len(data) == 0 {
		return fallback
	}
	return string(data)
}
