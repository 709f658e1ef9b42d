package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadbot/internal/model"
)

func userTurns(n int) []model.ChatMessage {
	var messages []model.ChatMessage
	for i := 0; i < n; i++ {
		messages = append(messages,
			model.ChatMessage{Role: model.RoleUser, Content: "hi"},
			model.ChatMessage{Role: model.RoleAssistant, Content: "hello"},
		)
	}
	return messages
}

func TestClassifyStage(t *testing.T) {
	tests := []struct {
		turns int
		want  model.Stage
	}{
		{1, model.StageDiscovery},
		{2, model.StageDiscovery},
		{3, model.StageQualifying},
		{4, model.StageQualifying},
		{5, model.StageSolutioning},
		{6, model.StageSolutioning},
		{7, model.StageClosing},
		{12, model.StageClosing},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStage(userTurns(tt.turns)), "turns=%d", tt.turns)
	}
}

func TestTopicsDiscussed(t *testing.T) {
	messages := []model.ChatMessage{
		{Role: model.RoleUser, Content: "I'm looking for a HOME in Austin"},
		{Role: model.RoleAssistant, Content: "What's your budget?"},
		{Role: model.RoleUser, Content: "About 400k, and I'm prequalified. Home prices are crazy."},
	}

	assert.Equal(t, []string{"looking for", "home", "budget", "prequalified"}, TopicsDiscussed(messages))
	assert.Empty(t, TopicsDiscussed(nil))
}

func TestBuildConversationContext(t *testing.T) {
	prefs := model.PreferenceState{Location: model.StringPtr("Austin"), MaxPrice: model.Float64Ptr(400000)}
	messages := userTurns(3)

	ctx := BuildConversationContext(messages, prefs, nil)

	assert.Equal(t, model.StageQualifying, ctx.Stage)
	assert.Equal(t, 6, ctx.MessageCount)
	assert.True(t, ctx.CanSearch)
	assert.NotNil(t, ctx.ExtractedThisTurn)
}
