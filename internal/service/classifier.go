package service

import (
	"strings"

	"leadbot/internal/model"
)

// topicKeywords is matched by plain lower-case substring, no stemming
var topicKeywords = []string{
	"losing customers",
	"churn",
	"defects",
	"quality",
	"support tickets",
	"fraud",
	"maintenance",
	"inventory",
	// real estate
	"looking for",
	"buy",
	"sell",
	"property",
	"home",
	"budget",
	"prequalified",
	"market",
}

// ClassifyStage buckets a conversation by the number of user-authored turns
func ClassifyStage(messages []model.ChatMessage) model.Stage {
	switch n := model.UserTurnCount(messages); {
	case n <= 2:
		return model.StageDiscovery
	case n <= 4:
		return model.StageQualifying
	case n <= 6:
		return model.StageSolutioning
	default:
		return model.StageClosing
	}
}

// TopicsDiscussed returns the keywords seen anywhere in the history, in first-seen order
func TopicsDiscussed(messages []model.ChatMessage) []string {
	topics := []string{}
	seen := make(map[string]bool)
	for _, m := range messages {
		content := strings.ToLower(m.Content)
		for _, keyword := range topicKeywords {
			if !seen[keyword] && strings.Contains(content, keyword) {
				seen[keyword] = true
				topics = append(topics, keyword)
			}
		}
	}
	return topics
}

// BuildConversationContext assembles the per-turn state summary
func BuildConversationContext(messages []model.ChatMessage, prefs model.PreferenceState, extracted []string) model.ConversationContext {
	if extracted == nil {
		extracted = []string{}
	}
	return model.ConversationContext{
		Stage:              ClassifyStage(messages),
		MessageCount:       len(messages),
		TopicsDiscussed:    TopicsDiscussed(messages),
		CurrentPreferences: prefs,
		ExtractedThisTurn:  extracted,
		CanSearch:          prefs.CanSearch(),
	}
}
