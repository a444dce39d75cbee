package chat

// ToneStyle is the conversational register the assistant answers in.
type ToneStyle string

const (
	ToneFriendly     ToneStyle = "friendly"
	ToneProfessional ToneStyle = "professional"
	ToneCasual       ToneStyle = "casual"
)

// AnswerLength is the preferred verbosity of replies.
type AnswerLength string

const (
	LengthShort  AnswerLength = "short"
	LengthMedium AnswerLength = "medium"
	LengthLong   AnswerLength = "long"
)

// UserSettings is the record collected by onboarding and edited in the settings editor.
// Field names are serialized in camelCase to stay compatible with existing browser data.
type UserSettings struct {
	UserName               string       `json:"userName"`
	AssistantName          string       `json:"assistantName"`
	ToneStyle              ToneStyle    `json:"toneStyle"`
	AnswerLength           AnswerLength `json:"answerLength"`
	AllowWebSearch         bool         `json:"allowWebSearch"`
	AllowFollowUpQuestions bool         `json:"allowFollowUpQuestions"`
}

// DefaultUserSettings is used when onboarding finishes without a value for a field.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		UserName:               "",
		AssistantName:          "AI 비서",
		ToneStyle:              ToneFriendly,
		AnswerLength:           LengthMedium,
		AllowWebSearch:         true,
		AllowFollowUpQuestions: true,
	}
}

// ParseToneStyle reports whether s names a known tone.
func ParseToneStyle(s string) (ToneStyle, bool) {
	switch t := ToneStyle(s); t {
	case ToneFriendly, ToneProfessional, ToneCasual:
		return t, true
	}
	return "", false
}

// ParseAnswerLength reports whether s names a known answer length.
func ParseAnswerLength(s string) (AnswerLength, bool) {
	switch l := AnswerLength(s); l {
	case LengthShort, LengthMedium, LengthLong:
		return l, true
	}
	return "", false
}

// Visibility scopes who can see a chatbot.
type Visibility string

const (
	VisibilityPersonal Visibility = "personal"
	VisibilityTeam     Visibility = "team"
	VisibilityPublic   Visibility = "public"
)

// Chatbot is one entry managed by the chatbot settings modal.
type Chatbot struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Icon        string     `json:"icon" yaml:"icon"`
	IsFavorite  bool       `json:"isFavorite" yaml:"isFavorite"`
	Visibility  Visibility `json:"visibility" yaml:"visibility"`
	IsOwner     bool       `json:"isOwner" yaml:"isOwner"`
}

// BriefingPreferences configures the daily briefing.
type BriefingPreferences struct {
	Enabled         bool     `json:"enabled"`
	DeliveryTime    string   `json:"deliveryTime"`
	Topics          []string `json:"topics"`
	IncludeSchedule bool     `json:"includeSchedule"`
	IncludeNews     bool     `json:"includeNews"`
}

// DefaultBriefingPreferences mirrors what a new user sees in the briefing modal.
func DefaultBriefingPreferences() BriefingPreferences {
	return BriefingPreferences{
		Enabled:         true,
		DeliveryTime:    "08:30",
		Topics:          []string{"회사 소식", "업계 동향"},
		IncludeSchedule: true,
		IncludeNews:     true,
	}
}
