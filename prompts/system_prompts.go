package prompts

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// SystemPrompts holds the chat templates used for sitemap analysis.
type SystemPrompts struct {
	Recommendations prompt.ChatTemplate
}

func NewSystemPrompts() *SystemPrompts {
	return &SystemPrompts{Recommendations: createRecommendationTemplate()}
}

// Template variables: {site}, {stats}, {outline}, {categories}, {limit}.
func createRecommendationTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(`# Your Role
You are an information architect reviewing the structure of a website.

# Your Task
Suggest concrete improvements to the site's page hierarchy, navigation and naming, based only on the sitemap outline you are given.

# Input Format
Each outline line is a route followed by the page title in quotes. Indentation is nesting. A bracketed number is an HTTP status, [failed] means the page could not be loaded, and "(+N more)" stands for N further sibling pages that were left out.

# Critical Requirements
1. **Output Format**: Return ONLY a JSON array. No prose, no markdown fences
2. **Fields**: every element has the string fields "category", "before", "after" and "explanation"
3. **Categories**: "category" is one of: {categories}
4. **Grounding**: "before" quotes routes or titles that exist in the outline. NEVER invent pages
5. **Limit**: return at most {limit} recommendations, most impactful first

**IMPORTANT**: If the structure needs no changes, return an empty JSON array.`),

		schema.UserMessage(`**Site**: {site}

**Summary**: {stats}

**Sitemap Outline**:
{outline}

Return the recommendations as a JSON array only.`),
	)
}
