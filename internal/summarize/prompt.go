package summarize

import (
	"fmt"
	"strings"

	"github.com/recmeet/recmeet/internal/language"
)

// headerSet holds the localized section headers and the language
// instruction passed to the summarization engine.
type headerSet struct {
	Summary     string
	KeyTopics   string
	Decisions   string
	ActionItems string
	NextSteps   string
	Instruction string
}

var localizedHeaders = map[string]headerSet{
	"en": {
		Summary:     "Summary",
		KeyTopics:   "Key Topics",
		Decisions:   "Decisions Made",
		ActionItems: "Action Items",
		NextSteps:   "Next Steps",
		Instruction: "Please write the transcript and summary in English.",
	},
	"pt": {
		Summary:     "Resumo",
		KeyTopics:   "Tópicos Principais",
		Decisions:   "Decisões Tomadas",
		ActionItems: "Tarefas",
		NextSteps:   "Próximos Passos",
		Instruction: "Escreva tudo, incluindo o resumo, em português do Brasil. Não use inglês em nenhuma parte da resposta.",
	},
	"es": {
		Summary:     "Resumen",
		KeyTopics:   "Temas Clave",
		Decisions:   "Decisiones Tomadas",
		ActionItems: "Tareas",
		NextSteps:   "Próximos Pasos",
		Instruction: "Escriba todo, incluido el resumen, en español. No use inglés en ninguna parte de la respuesta.",
	},
	"fr": {
		Summary:     "Résumé",
		KeyTopics:   "Sujets clés",
		Decisions:   "Décisions prises",
		ActionItems: "Tâches à effectuer",
		NextSteps:   "Prochaines étapes",
		Instruction: "Veuillez tout écrire en français, y compris le résumé. N'utilisez pas l'anglais.",
	},
	"de": {
		Summary:     "Zusammenfassung",
		KeyTopics:   "Wichtige Themen",
		Decisions:   "Getroffene Entscheidungen",
		ActionItems: "Aufgaben",
		NextSteps:   "Nächste Schritte",
		Instruction: "Bitte schreiben Sie alles, einschließlich der Zusammenfassung, auf Deutsch. Verwenden Sie kein Englisch.",
	},
}

// headersFor returns the header set for a language tag, falling back to
// English for unknown tags.
func headersFor(tag string) headerSet {
	if h, ok := localizedHeaders[tag]; ok {
		return h
	}
	return localizedHeaders["en"]
}

// targetLanguage picks the response language: meetings spanning several
// languages are translated to English, single-language meetings stay in
// that language. The tag list is comma-separated.
func targetLanguage(languages string) string {
	tags := strings.Split(languages, ",")
	for i, tag := range tags {
		tags[i] = strings.TrimSpace(tag)
	}
	if len(tags) > 1 || tags[0] == "" {
		return "en"
	}
	return tags[0]
}

// buildUserPrompt renders the single summarization request: clean the
// transcript, then produce the structured sections under localized headers.
func buildUserPrompt(transcript string, headers headerSet) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are a meeting assistant. I will provide you with the full transcript of a meeting.

If the meeting is conducted in more than one language, translate the full transcript and the summary into English.
If the meeting is entirely in a single language, keep the transcript and the summary in that language.

%s

Clean the transcript (correct punctuation and grammar), but do not remove hesitations or false starts—preserve the speaker's tone and structure.

Then, write a structured summary with the following format:

**Transcript**

(The cleaned transcript goes here.)

**%s**
(A brief paragraph summarizing the general topic and focus of the meeting.)

**%s**
Topic 1: (short explanation)
Topic 2: (short explanation)

**%s**
(if any were made)

**%s**
Task description – Owner (if known)

**%s**
(What's expected next, if applicable)

Here's the transcript:
%s`,
		headers.Instruction,
		headers.Summary,
		headers.KeyTopics,
		headers.Decisions,
		headers.ActionItems,
		headers.NextSteps,
		transcript,
	))
}

// buildSystemPrompt pins the response language. Known codes are spelled
// out; anything else is passed through as the backend reported it.
func buildSystemPrompt(targetLang string) string {
	if lang, ok := language.FromCode(targetLang); ok && lang.Code != "" {
		targetLang = lang.Name
	}
	return fmt.Sprintf("You are a helpful assistant. Respond entirely in %s.", targetLang)
}
