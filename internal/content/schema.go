package content

import "github.com/abhisek/brainbrew/internal/llm"

// AnalysisSchema defines the JSON schema for document analysis.
var AnalysisSchema = &llm.Schema{
	Name:        "document-analysis",
	Description: "Main topics and key concepts of a study document",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-8 main topics in the order the document covers them (1-5 words each)",
			},
			"concepts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Key terms and concepts a learner should understand",
			},
		},
		"required":             []any{"topics", "concepts"},
		"additionalProperties": false,
	},
}

// messageSchema builds the schema shared by every single-message reply.
func messageSchema(name, description, field, fieldDescription string) *llm.Schema {
	return &llm.Schema{
		Name:        name,
		Description: description,
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				field: map[string]any{
					"type":        "string",
					"description": fieldDescription,
				},
			},
			"required":             []any{field},
			"additionalProperties": false,
		},
	}
}

var (
	// IntroSchema defines the opening explanation.
	IntroSchema = messageSchema("intro-explanation",
		"Short introduction to the study material",
		"introduction", "Friendly overview of the material and its first topic (3-6 sentences)")

	// QuestionSchema defines one Socratic question.
	QuestionSchema = messageSchema("socratic-question",
		"A single open-ended question that leads the learner to reason",
		"question", "One open-ended question answerable from the material")

	// ExplanationSchema defines the explanation after a strong answer.
	ExplanationSchema = messageSchema("answer-explanation",
		"Explanation that consolidates a correct answer",
		"explanation", "What the learner got right and the deeper idea behind it (2-5 sentences)")

	// HintSchema defines one hint.
	HintSchema = messageSchema("hint",
		"A nudge toward the answer that does not reveal it",
		"hint", "One or two sentences pointing at what to consider next")
)
