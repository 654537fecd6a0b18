package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway scripts gateway responses for service tests. The do/upload
// hooks marshal their result through JSON so out-decoding matches the real
// client's behavior.
type stubGateway struct {
	mu     sync.Mutex
	calls  []string
	do     func(method, path string, body interface{}) (interface{}, error)
	upload func(path string, file apiclient.UploadFile, fields map[string]string) (interface{}, error)
}

func (g *stubGateway) record(method, path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, method+" "+path)
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func decodeInto(result interface{}, out interface{}) error {
	if out == nil || result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (g *stubGateway) Do(ctx context.Context, method, path string, body, out interface{}) error {
	g.record(method, path)
	if g.do == nil {
		return nil
	}
	result, err := g.do(method, path, body)
	if err != nil {
		return err
	}
	return decodeInto(result, out)
}

func (g *stubGateway) Upload(ctx context.Context, path string, file apiclient.UploadFile, fields map[string]string, out interface{}) error {
	g.record(http.MethodPost, path)
	if g.upload == nil {
		return nil
	}
	result, err := g.upload(path, file, fields)
	if err != nil {
		return err
	}
	return decodeInto(result, out)
}

var _ apiclient.IGateway = &stubGateway{}

func newTestChatStore(gw *stubGateway) IChatStore {
	return NewChatStore(gw, logger.NopLogger{})
}

func selectSession(t *testing.T, store IChatStore, gw *stubGateway, sessionID string) {
	t.Helper()
	prev := gw.do
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return []entity.ChatMessage{}, nil
	}
	_, err := store.Select(context.Background(), sessionID)
	require.NoError(t, err)
	gw.do = prev
}

func TestChatSendAppendsCompletedRound(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)
	selectSession(t, store, gw, "sess-1")

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, apiclient.BasePath+"/chat/sessions/sess-1/messages", path)
		req, ok := body.(dto.SendMessageRequest)
		require.True(t, ok)
		assert.Equal(t, "what is a vector index?", req.Content)
		return dto.SendMessageResponse{
			Response:  "An index over embeddings.",
			Citations: []entity.Citation{{Text: "chunk", Source: "guide.pdf", Score: 0.91}},
			MessageId: "m-42",
		}, nil
	}

	round, err := store.Send(context.Background(), "sess-1", "  what is a vector index?  ")
	require.NoError(t, err)
	require.Len(t, round, 2)

	assert.Equal(t, entity.RoleUser, round[0].Role)
	assert.Equal(t, "what is a vector index?", round[0].Content)
	assert.True(t, round[0].Local)

	assert.Equal(t, entity.RoleAssistant, round[1].Role)
	assert.Equal(t, "An index over embeddings.", round[1].Content)
	require.Len(t, round[1].Citations, 1)
	assert.Equal(t, "guide.pdf", round[1].Citations[0].Source)

	messages := store.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, entity.RoleUser, messages[0].Role)
	assert.Equal(t, entity.RoleAssistant, messages[1].Role)
}

func TestChatSendFailureLandsInlineError(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)
	selectSession(t, store, gw, "sess-1")

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return nil, errors.New("deployment is paused")
	}

	round, err := store.Send(context.Background(), "sess-1", "hello")
	require.NoError(t, err, "a backend failure is reported inline, not as an error")
	require.Len(t, round, 2)

	assert.Equal(t, "hello", round[0].Content)
	assert.True(t, strings.HasPrefix(round[1].Content, "Error: "), "assistant turn = %q", round[1].Content)
	assert.NotNil(t, round[1].Citations)
	assert.Empty(t, round[1].Citations)

	// The failed round is still part of the log.
	assert.Len(t, store.Messages(), 2)
}

func TestChatSendRejectsEmptyContent(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)
	selectSession(t, store, gw, "sess-1")
	before := gw.callCount()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := store.Send(context.Background(), "sess-1", content)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Equal(t, before, gw.callCount(), "no request should be issued")
}

func TestChatSendRejectsOverlappingSend(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)
	selectSession(t, store, gw, "sess-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		close(entered)
		<-release
		return dto.SendMessageResponse{Response: "ok"}, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.Send(context.Background(), "sess-1", "first")
	}()
	<-entered

	_, err := store.Send(context.Background(), "sess-1", "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	<-done

	// After the first send resolves the guard is released.
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return dto.SendMessageResponse{Response: "ok"}, nil
	}
	_, err = store.Send(context.Background(), "sess-1", "third")
	assert.NoError(t, err)
}

func TestChatSendToInactiveSessionDoesNotTouchLog(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)
	selectSession(t, store, gw, "sess-active")

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return dto.SendMessageResponse{Response: "ok"}, nil
	}
	round, err := store.Send(context.Background(), "sess-other", "hello")
	require.NoError(t, err)
	assert.Len(t, round, 2)
	assert.Empty(t, store.Messages(), "the active session's log must stay untouched")
}

func TestChatSelectAlwaysRefetches(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)

	history := []entity.ChatMessage{
		{Id: "m-1", Role: entity.RoleUser, Content: "hi"},
		{Id: "m-2", Role: entity.RoleAssistant, Content: "hello"},
	}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		assert.Equal(t, apiclient.BasePath+"/chat/sessions/sess-1/messages", path)
		return history, nil
	}

	first, err := store.Select(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// Re-selecting the same session still hits the backend.
	_, err = store.Select(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, gw.callCount())
	assert.Equal(t, "sess-1", store.ActiveSessionID())
}

func TestChatSelectFailureLeavesEmptyLog(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}
	_, err := store.Select(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Empty(t, store.Messages())
	assert.Equal(t, "sess-1", store.ActiveSessionID())
}

func TestChatCreateSessionBecomesActive(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return dto.SessionCreateResponse{Id: "sess-new", DeploymentId: "dep-1", Title: "New Chat"}, nil
	}
	session, err := store.CreateSession(context.Background(), "dep-1", "")
	require.NoError(t, err)
	assert.Equal(t, "sess-new", session.Id)
	assert.Equal(t, "sess-new", store.ActiveSessionID())

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "New Chat", sessions[0].Title)
}

func TestChatRenameReturnsDetachedCopy(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return []entity.ChatSession{{Id: "sess-1", Title: "old title"}}, nil
	}
	_, err := store.LoadSessions(context.Background())
	require.NoError(t, err)

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return dto.SessionCreateResponse{Id: "sess-1", Title: "new title"}, nil
	}
	renamed, err := store.RenameSession(context.Background(), "sess-1", "new title")
	require.NoError(t, err)
	assert.Equal(t, "new title", renamed.Title)

	// A later list reload must not reach through the returned value.
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return []entity.ChatSession{{Id: "sess-1", Title: "server title"}}, nil
	}
	_, err = store.LoadSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new title", renamed.Title)
}

func TestChatDeleteActiveSessionClearsSelection(t *testing.T) {
	gw := &stubGateway{}
	store := newTestChatStore(gw)

	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return dto.SessionCreateResponse{Id: "sess-1", DeploymentId: "dep-1", Title: "t"}, nil
	}
	_, err := store.CreateSession(context.Background(), "dep-1", "t")
	require.NoError(t, err)

	gw.do = nil
	require.NoError(t, store.DeleteSession(context.Background(), "sess-1"))
	assert.Empty(t, store.ActiveSessionID())
	assert.Empty(t, store.Sessions())
	assert.Empty(t, store.Messages())
}
