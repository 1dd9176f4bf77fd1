package content

import (
	"fmt"
	"strings"

	"github.com/abhisek/brainbrew/internal/llm"
	"github.com/abhisek/brainbrew/internal/tutor"
)

const analysisSystemPrompt = `You are preparing a study session. Read the material a learner uploaded and identify what it teaches.`

const tutorSystemPrompt = `You are a Socratic tutor. You help a learner understand their own study material by asking questions that make them reason, not by lecturing. Stay strictly within the material provided. Write in plain text without markdown headings.`

func buildAnalysisUserMessage(text string) string {
	var b strings.Builder

	b.WriteString("Material:\n")
	b.WriteString(text)

	b.WriteString(`

Instructions:
1. List the main topics in the order the material covers them. Use short noun phrases.
2. List the key concepts a learner must understand. Do not repeat topics as concepts.
3. Use only what appears in the material.`)

	return b.String()
}

func writeMaterial(b *strings.Builder, text string, difficulty tutor.Difficulty) {
	b.WriteString("Material:\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	fmt.Fprintf(b, "Difficulty: %s (%s)\n", difficulty, difficulty.Guidance())
}

func buildIntroUserMessage(text string, difficulty tutor.Difficulty, firstTopic string) string {
	var b strings.Builder
	writeMaterial(&b, text, difficulty)
	if firstTopic != "" {
		fmt.Fprintf(&b, "First topic: %s\n", firstTopic)
	}

	b.WriteString(`
Instructions:
Introduce the material to the learner before the first question.
1. Summarize what the material is about in 2-3 sentences.
2. Briefly set up the first topic so the learner knows where the session starts.
3. Tell the learner you will ask questions and that hints are available.
Do not ask a question yet.`)

	return b.String()
}

// buildQuestionMessages replays the transcript as the conversation so the
// model sees everything already asked and answered.
func buildQuestionMessages(text string, difficulty tutor.Difficulty, transcript []tutor.Entry, topicHint string) []llm.Message {
	var b strings.Builder
	writeMaterial(&b, text, difficulty)
	b.WriteString("\nThe conversation so far follows.")

	msgs := []llm.Message{{Role: llm.RoleUser, Content: b.String()}}
	for _, e := range transcript {
		role := llm.RoleUser
		if e.Role == tutor.RoleTutor {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: e.Text})
	}

	var ins strings.Builder
	if topicHint != "" {
		fmt.Fprintf(&ins, "Focus topic: %s\n\n", topicHint)
	}
	ins.WriteString(`Instructions:
Ask the next question.
1. Ask exactly one open-ended question about the focus topic.
2. Match the difficulty described above.
3. Do not repeat a question already asked in this conversation.
4. Do not include the answer or any hint.`)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: ins.String()})

	return mergeConsecutive(msgs)
}

// mergeConsecutive joins adjacent messages with the same role. Providers
// that require strict user/assistant alternation reject repeated roles.
func mergeConsecutive(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}

func buildExplanationUserMessage(question, answer, text string, difficulty tutor.Difficulty) string {
	var b strings.Builder
	writeMaterial(&b, text, difficulty)
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	fmt.Fprintf(&b, "Learner's answer: %s\n", answer)

	b.WriteString(`
Instructions:
The learner answered well. Consolidate their understanding.
1. Say briefly what they got right.
2. Add the one idea from the material that deepens the answer.
3. Do not ask a new question.`)

	return b.String()
}

func buildHintUserMessage(question, draft string, ordinal int, text string, difficulty tutor.Difficulty) string {
	var b strings.Builder
	writeMaterial(&b, text, difficulty)
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	if strings.TrimSpace(draft) == "" {
		b.WriteString("Learner's draft: (nothing yet)\n")
	} else {
		fmt.Fprintf(&b, "Learner's draft: %s\n", draft)
	}
	fmt.Fprintf(&b, "Hint number: %d of %d\n", ordinal, tutor.MaxHints)

	b.WriteString(`
Instructions:
Give one hint.
1. Build on the learner's draft if there is one.
2. Later hints may be more specific than earlier ones, but never state the answer.
3. Keep it to one or two sentences.`)

	return b.String()
}
