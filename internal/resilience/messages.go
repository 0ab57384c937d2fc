package resilience

// UserMessage is the localized, user-facing rendering of a failure
// category. Raw provider error text must never reach the end user; the
// orchestrator surfaces these instead.
type UserMessage struct {
	Message string // Apology / explanation shown to the user
	Hint    string // Recovery hint shown alongside
}

// messages is keyed by language, then category. Only English ships today;
// the table shape keeps additional languages a data change.
var messages = map[string]map[Category]UserMessage{
	"en": {
		CategoryUserInput: {
			Message: "I couldn't work with part of your request.",
			Hint:    "Could you rephrase or add a bit more detail?",
		},
		CategoryAuthentication: {
			Message: "I'm not authorized to reach one of my services right now.",
			Hint:    "This needs attention on our side. Please try again later.",
		},
		CategoryRateLimit: {
			Message: "I'm being rate-limited by a service I depend on.",
			Hint:    "Give it a few seconds and send your message again.",
		},
		CategoryServiceUnavailable: {
			Message: "One of the services I rely on is temporarily unavailable.",
			Hint:    "Please try again in a moment.",
		},
		CategoryTimeout: {
			Message: "That took longer than expected and I had to stop waiting.",
			Hint:    "Please try again. Shorter requests usually help.",
		},
		CategoryBusinessLogic: {
			Message: "I'm missing some information I need to continue.",
			Hint:    "Answer the last question and we can pick up where we left off.",
		},
		CategoryTechnical: {
			Message: "Something unexpected went wrong on my side.",
			Hint:    "Please try again. If it keeps happening, start a new session.",
		},
	},
}

// MessageFor returns the user-facing message for a category in the given
// language, falling back to English, then to the TECHNICAL message.
func MessageFor(category Category, lang string) UserMessage {
	table, ok := messages[lang]
	if !ok {
		table = messages["en"]
	}
	if m, ok := table[category]; ok {
		return m
	}
	return table[CategoryTechnical]
}
