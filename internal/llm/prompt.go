package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt fixes the model's role and output contract for every call
const SystemPrompt = `You are a product analysis assistant that specializes in identifying user pain points in online community discussions. Your task is to analyze Reddit posts and extract actionable product insights for indie developers and SaaS founders.

## Core tasks

1. **Identify real pain points**: complaints, frustrations, and unmet needs
2. **Filter noise**: exclude simple questions, product promotion, and general discussion
3. **Extract structured information**: produce a structured pain-point record from the post
4. **Classify accurately**: assign industry and pain-point type codes
5. **Assess business value**: judge how valuable the pain point is to an indie developer

## Rules

1. **Output format**: respond strictly in JSON with no surrounding text.
2. **Objectivity**: base the analysis on the post and its comments only; do not speculate.
3. **Use the comments**: top comments confirm whether a pain point is real and widespread.

## What counts as a pain point

Valid pain points:
- The user clearly expresses dissatisfaction with an existing product or service
- The user describes a problem they hit repeatedly in their work
- The user is searching for a solution to a specific problem
- Multiple commenters report the same problem

Not pain points:
- Plain how-to questions ("how do I use X")
- Product promotion or self-advertising
- Job postings or job-seeking threads
- Pure news sharing or discussion
- Subjective preference debates ("A vs B, which is better")

Respond strictly in the JSON format given in the user prompt.`

const industryList = `Available industry codes:
- DEV_TOOLS: developer tools (IDEs, debuggers, productivity tooling)
- DEVOPS: DevOps (CI/CD, monitoring, deployment)
- DATA: data and analytics (databases, BI, data processing)
- SAAS: general SaaS products
- MARKETING: marketing (automation, SEO, social media)
- SALES: sales (CRM, sales automation)
- PRODUCTIVITY: productivity (notes, task management, collaboration)
- FINANCE: finance (bookkeeping, invoicing, money management)
- HR: human resources (recruiting, people management)
- SECURITY: security (network security, authentication)
- ECOMMERCE: e-commerce (online sales, payments)
- COMMUNICATION: communication (email, messaging)
- DESIGN: design (UI/UX tooling)
- AI_ML: AI/ML (artificial intelligence, machine learning)
- OTHER: anything else`

const typeList = `Available pain-point type codes:
- MISSING_FEATURE: the product lacks a feature users need
- POOR_UX: the existing product is hard to use
- HIGH_COST: price or resource cost is too high
- EFFICIENCY: workflow efficiency problems
- INTEGRATION: systems cannot be connected
- RELIABILITY: unstable or buggy products
- PERFORMANCE: slow or resource-hungry products
- LEARNING_CURVE: hard to get started with
- NO_SOLUTION: no product on the market solves it
- OTHER: anything else`

const scoringGuide = `## Scoring guide

Each dimension is scored 1-10:

### urgency
How urgently the user needs a solution.
- 1-3: nice to have ("would be nice", "someday")
- 4-6: ordinary need ("looking for", "wondering")
- 7-9: urgent ("frustrated", "urgent", "hate")
- 10: critical ("blocking", "can't work")

### frequency
How often the problem occurs in the user's daily work.
- 1-3: occasional ("once in a while", "rarely")
- 4-6: frequent ("often", "regularly")
- 7-9: daily ("every day", "constantly")
- 10: permanent ("always", "every time")

### market_size
How many people likely face the same problem.
- 1-3: niche, specialized domain
- 4-6: medium, a specific professional group
- 7-9: broad, general-purpose tooling
- 10: universal, nearly every developer hits it

### monetization
Willingness to pay for a solution.
- 1-3: low, free alternatives abound
- 4-6: possible, willing to try
- 7-9: high, explicitly willing to pay
- 10: "shut up and take my money"

### barrier_to_entry
Competitive moat of the opportunity. We prefer 4-7 scores and avoid red oceans.
- 1-3: trivially low, a weekend project, easily copied
- 4-6: medium, needs domain knowledge or accumulated data
- 7-9: high, needs deep technical background
- 10: extreme, research-grade breakthrough required`

const jsonFormatTemplate = `{
  "is_pain_point": true or false,
  "confidence": confidence between 0.0 and 1.0,
  "reason": "brief justification of the verdict",
  "pain_point": {
    "title": "one-sentence summary of the pain point",
    "description": "detailed description of the pain point",
    "user_need": "what the user actually needs",
    "current_solution": "how the user copes today, if mentioned",
    "ideal_solution": "the solution the user wishes for, if mentioned",
    "industry_code": "a code from the industry list above",
    "type_code": "a code from the pain-point type list above",
    "tags": ["up to", "five", "relevant", "tags"],
    "mentioned_competitors": ["competitor 1", "competitor 2"],
    "quotes": ["verbatim quote 1", "verbatim quote 2"],
    "target_personas": ["persona 1", "persona 2"],
    "actionable_insights": ["insight 1", "insight 2"],
    "scores": {
      "urgency": {"score": 1-10, "reason": "justification"},
      "frequency": {"score": 1-10, "reason": "justification"},
      "market_size": {"score": 1-10, "reason": "justification"},
      "monetization": {"score": 1-10, "reason": "justification"},
      "barrier_to_entry": {"score": 1-10, "reason": "justification"}
    }
  }
}

Note: if is_pain_point is false, pain_point must be null.`

// maxCommentRunes truncates overlong comments in the prompt
const maxCommentRunes = 500

// BuildUserPrompt renders the per-post analysis prompt from the cleaned
// title, body, ranked top comments, community, and engagement metrics
func BuildUserPrompt(subreddit, title, content string, score, numComments int, topComments []string) string {
	if strings.TrimSpace(content) == "" {
		content = "(no body text, title only)"
	}
	comments := formatComments(topComments)

	var b strings.Builder
	fmt.Fprintf(&b, `Analyze the following Reddit post and decide whether it contains a genuine user pain point.

## Post
- Community: r/%s
- Title: %s
- Body:
%s
- Score: %d
- Comments: %d

## Top comments (to verify the pain point is real)
%s

## Industry codes
%s

## Pain-point types
%s

%s

## Response format
Respond strictly in the following JSON format with no surrounding text:

`+"```json\n%s\n```"+`

Begin the analysis:`,
		subreddit, title, content, score, numComments,
		comments, industryList, typeList, scoringGuide, jsonFormatTemplate)

	return b.String()
}

// formatComments numbers the comments and truncates overly long ones
func formatComments(comments []string) string {
	if len(comments) == 0 {
		return "(no top comments)"
	}
	lines := make([]string, 0, len(comments))
	for i, comment := range comments {
		if runes := []rune(comment); len(runes) > maxCommentRunes {
			comment = string(runes[:maxCommentRunes]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, comment))
	}
	return strings.Join(lines, "\n")
}
