package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questfuel/api/llm"
	"github.com/questfuel/api/models"
)

type fakeCompleter struct {
	reply string
	err   error
	seen  [][]llm.Message
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	f.seen = append(f.seen, msgs)
	return f.reply, f.err
}

func newChatFixture(t *testing.T, completer *fakeCompleter) (*ChatService, *models.User) {
	db := newTestDB(t)
	nutrition := NewNutritionService(db, NewXPLedger(db, nil), nil, NutritionOptions{MealLogXP: 5})
	u := createUser(t, db, "chat@example.com")
	return NewChatService(db, completer, nil, nutrition, 10, nil), u
}

func TestChatSendStoresBothTurns(t *testing.T) {
	completer := &fakeCompleter{reply: `Try this.
<FOOD_SUGGESTION>{"name":"Banana","calories":105,"protein":1.3,"carbs":27,"fat":0.4,"fiber":3.1,"servingSize":"1 medium"}</FOOD_SUGGESTION>`}
	svc, u := newChatFixture(t, completer)

	reply, err := svc.Send(context.Background(), u.ID, "<script>x</script>What should I snack on?")
	require.NoError(t, err)
	assert.Equal(t, "Try this.", reply.Message)
	require.Len(t, reply.Suggestions, 1)
	f, ok := reply.Suggestions[0].Food()
	require.True(t, ok)
	assert.Equal(t, "Banana", f.Name)

	require.Len(t, completer.seen, 1)
	sent := completer.seen[0]
	assert.Equal(t, "system", sent[0].Role)
	assert.Contains(t, sent[1].Content, "kcal of 2000")
	last := sent[len(sent)-1]
	assert.Equal(t, models.ChatRoleUser, last.Role)
	assert.Equal(t, "What should I snack on?", last.Content)

	history, err := svc.History(context.Background(), u.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ChatRoleUser, history[0].Role)
	assert.Equal(t, models.ChatRoleAssistant, history[1].Role)
	assert.Equal(t, reply.ID, history[1].ID)

	var stored []Suggestion
	require.NoError(t, json.Unmarshal(history[1].Suggestions, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, SuggestionFood, stored[0].Type)
}

func TestChatSendReplaysHistory(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	svc, u := newChatFixture(t, completer)
	ctx := context.Background()

	_, err := svc.Send(ctx, u.ID, "first")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Send(ctx, u.ID, "second")
	require.NoError(t, err)

	require.Len(t, completer.seen, 2)
	var contents []string
	for _, m := range completer.seen[1] {
		if m.Role != "system" {
			contents = append(contents, m.Content)
		}
	}
	assert.Equal(t, []string{"first", "ok", "second"}, contents)
}

func TestChatSendFailureStoresNothing(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream down")}
	svc, u := newChatFixture(t, completer)

	_, err := svc.Send(context.Background(), u.ID, "hello")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)

	history, err := svc.History(context.Background(), u.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChatSendRejectsEmptyMessage(t *testing.T) {
	completer := &fakeCompleter{reply: "unused"}
	svc, u := newChatFixture(t, completer)

	_, err := svc.Send(context.Background(), u.ID, "<b></b>  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, completer.seen)
}
