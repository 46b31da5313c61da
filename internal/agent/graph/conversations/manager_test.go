package conversations

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmc-uruguay/panelin-server/internal/agent/model"
)

// memoryRepo is an in-memory ConversationRepository for tests.
type memoryRepo struct {
	messages map[string][]*schema.Message
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{messages: map[string][]*schema.Message{}}
}

func (m *memoryRepo) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	m.messages[conversationID] = append(m.messages[conversationID], message)
	return nil
}

func (m *memoryRepo) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{
		ConversationID: conversationID,
		Messages:       m.messages[conversationID],
	}, nil
}

func (m *memoryRepo) ClearHistory(ctx context.Context, conversationID string) error {
	delete(m.messages, conversationID)
	return nil
}

func (m *memoryRepo) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	return len(m.messages[conversationID]), nil
}

var _ model.ConversationRepository = (*memoryRepo)(nil)

func newTestManager(repo model.ConversationRepository, maxTurns int) *MessagesManager {
	var cfg model.ConversationConfig
	cfg.NLU.MaxTurns = maxTurns
	return NewMessagesManager(repo, cfg)
}

func TestProcessNLUMessage(t *testing.T) {
	repo := newMemoryRepo()
	cm := newTestManager(repo, 5)

	out, err := cm.ProcessNLUMessage(context.Background(), "conv-1", "hola, necesito cotizar un techo")
	require.NoError(t, err)

	assert.Contains(t, out, "<conversation_context>")
	assert.Contains(t, out, "UserMessage(hola, necesito cotizar un techo)")
	assert.Contains(t, out, "<current_message_to_analyze>")

	// message persisted
	n, err := repo.GetMessageCount(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessNLUMessageWindowsHistory(t *testing.T) {
	repo := newMemoryRepo()
	cm := newTestManager(repo, 2)

	ctx := context.Background()
	require.NoError(t, repo.AddMessage(ctx, "conv-1", schema.UserMessage("primer mensaje")))
	require.NoError(t, repo.AddMessage(ctx, "conv-1", schema.AssistantMessage("primera respuesta", nil)))

	out, err := cm.ProcessNLUMessage(ctx, "conv-1", "cuanto sale el panel de 100mm?")
	require.NoError(t, err)

	// only the 2 most recent messages make the NLU window
	assert.NotContains(t, out, "primer mensaje")
	assert.Contains(t, out, "AssistantMessage(primera respuesta)")
	assert.Contains(t, out, "UserMessage(cuanto sale el panel de 100mm?)")
}

func TestBuildResponseContext(t *testing.T) {
	repo := newMemoryRepo()
	cm := newTestManager(repo, 5)

	ctx := context.Background()
	require.NoError(t, repo.AddMessage(ctx, "conv-1", schema.UserMessage("hola")))
	require.NoError(t, repo.AddMessage(ctx, "conv-1", schema.AssistantMessage("buenas!", nil)))

	msgs, err := cm.BuildResponseContext(ctx, "conv-1", "sos Panelin")
	require.NoError(t, err)

	require.Len(t, msgs, 3)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "sos Panelin", msgs[0].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
}

func TestSaveResponse(t *testing.T) {
	repo := newMemoryRepo()
	cm := newTestManager(repo, 5)

	ctx := context.Background()
	require.NoError(t, cm.SaveResponse(ctx, "conv-1", "aca va tu cotizacion"))

	h, err := repo.LoadHistory(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, schema.Assistant, h.Messages[0].Role)
	assert.Equal(t, "aca va tu cotizacion", h.Messages[0].Content)
}

func TestTrimTail(t *testing.T) {
	msgs := []*schema.Message{
		schema.UserMessage("a"),
		schema.UserMessage("b"),
		schema.UserMessage("c"),
	}

	got := trimTail(msgs, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Content)
	assert.Equal(t, "c", got[1].Content)

	got = trimTail(msgs, 0)
	assert.Len(t, got, 3)

	got = trimTail(msgs, 10)
	assert.Len(t, got, 3)
}
