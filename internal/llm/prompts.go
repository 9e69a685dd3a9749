package llm

import (
	"fmt"
	"strings"
)

const chatSystemPrompt = `You are SafetyAgent, an assistant that answers workplace safety questions using only the provided document excerpts.
Rules:
- Answer strictly from the excerpts. If they do not contain the answer, say the information is not available in the knowledge base.
- Cite the source file name when you use an excerpt.
- Be concise and practical. Do not invent procedures, limits, or regulations.`

// ContextChunk is one retrieved excerpt handed to the model.
type ContextChunk struct {
	FileName string
	Content  string
}

// BuildChatMessages assembles the grounded prompt for a user question
// against the retrieved excerpts.
func BuildChatMessages(question string, contexts []ContextChunk) []ChatMessage {
	var b strings.Builder
	b.WriteString("Document excerpts:\n\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "[%d] %s:\n%s\n\n", i+1, c.FileName, c.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(question)

	return []ChatMessage{
		{Role: "system", Content: chatSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}
