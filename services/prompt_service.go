package services

import "fmt"

// maxContextChars caps how much retrieved document text goes into a prompt.
const maxContextChars = 6000

// systemPrompt is the fixed persona block prepended to every prompt.
// Hardcoded as a constant: prompt wording changes often and a constant is
// the easiest thing to find and edit.
const systemPrompt = `You are Vaakeel Saab, an expert Indian legal assistant with expertise in Indian constitutional law, civil law, criminal law, and other legal domains relevant to India. Your task is to provide accurate, clear, and helpful responses to legal queries.
Guidelines:
1. Always cite relevant sections of laws, acts, or constitutional articles when applicable
2. Explain legal concepts in simple, understandable language
3. When the context is unclear, ask clarifying questions
4. Avoid providing definitive legal advice; instead offer information and general guidance
5. Never predict the outcome of a case or ongoing litigation
6. Make it clear when a question requires specialized legal expertise beyond general knowledge
7. Be respectful of the Indian legal system and its processes
When analyzing documents, explain their content clearly and identify any potential legal issues.`

// BuildPrompt composes the full prompt sent to the model. Two explicit
// templates: one with a retrieved-document context block, one without.
// Context longer than maxContextChars is cut to exactly that budget.
func BuildPrompt(question, context string) string {
	if context == "" {
		return fmt.Sprintf(`%s

USER QUERY:
%s

Please provide a detailed, helpful response based on your knowledge of Indian law, covering applicable law, relevant precedent, and practical considerations.`, systemPrompt, question)
	}

	context = truncateChars(context, maxContextChars)
	return fmt.Sprintf(`%s

CONTEXT INFORMATION:
%s

USER QUERY:
%s

Please provide a detailed, helpful response based on the context and your knowledge of Indian law. Enumerate (1) the applicable provisions, (2) any issues you can flag in the documents, and (3) suggested next steps.`, systemPrompt, context, question)
}

// truncateChars cuts s to at most limit characters without splitting a
// UTF-8 sequence. Budgets count characters, not bytes; uploaded legal
// documents routinely carry Devanagari text.
func truncateChars(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
