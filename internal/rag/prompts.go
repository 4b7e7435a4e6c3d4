package rag

import (
	"fmt"

	"comet-support/internal/llm"
)

const systemPromptTechnical = `You are a precise manufacturing support assistant analyzing historical failure data.

CRITICAL RULES:
1. ONLY use the data provided - never make up part numbers, codes, or materials
2. ALWAYS cite the TOTAL database records first, then mention the analyzed subset
3. Be direct and conversational - no formal headers like "Analysis Report"
4. Always cite exact counts from the database statistics
5. Give practical, actionable advice

Respond in a helpful, direct tone. Start with the database totals, then provide recommendations.`

const systemPromptCasual = `You are a helpful manufacturing support assistant having a natural conversation.

Respond naturally without quotation marks. Be friendly and conversational.
Let users know you can help with manufacturing failures, defects, failure codes, and part issues.
Keep it brief and welcoming.`

const systemPromptNoData = `You are a helpful manufacturing support assistant.

No matching historical data was found for the user's question. Politely explain
that you couldn't find relevant failure records for this specific query, and ask
for more details such as specific failure codes, station numbers, part numbers,
or error descriptions. Keep it conversational and helpful, no quotation marks.`

// TechnicalPrompt builds the generation payload for a technical query with
// retrieved context.
func TechnicalPrompt(query, context string) []llm.Message {
	user := fmt.Sprintf(`%s

Based on the data above, answer this question directly: %s

Give specific advice including:
- What the failure typically indicates
- What action to take (cite the action code)
- What part to replace (cite the material code and description)
- Any recurring patterns (serials, stations)`, context, query)

	return []llm.Message{
		{Role: "system", Content: systemPromptTechnical},
		{Role: "user", Content: user},
	}
}

// NoDataPrompt builds the generation payload for a technical query that
// retrieved nothing.
func NoDataPrompt(query string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPromptNoData},
		{Role: "user", Content: query},
	}
}

// CasualPrompt builds the generation payload for a casual query.
func CasualPrompt(query string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPromptCasual},
		{Role: "user", Content: query},
	}
}
