package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage = errors.New("message content is empty")
	ErrSendInFlight = errors.New("a send is already in flight for this session")
)

type IChatStore interface {
	LoadSessions(ctx context.Context) ([]entity.ChatSession, error)
	Sessions() []entity.ChatSession
	CreateSession(ctx context.Context, deploymentID, title string) (*entity.ChatSession, error)
	Select(ctx context.Context, sessionID string) ([]entity.ChatMessage, error)
	ActiveSessionID() string
	Messages() []entity.ChatMessage
	Send(ctx context.Context, sessionID, content string) ([]entity.ChatMessage, error)
	RenameSession(ctx context.Context, sessionID, title string) (*entity.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// chatStore keeps the session list and the active session's message log.
//
// A chat round is all-or-nothing: nothing is appended until the backend
// answers, then the user turn and the grounded assistant turn land
// together. The backend needs the exact user content to produce the answer
// and its citations, so there is no point showing a half round as if it
// were confirmed. A failed round still appends both turns, with the error
// text inline in the assistant slot, so the user's input is never silently
// dropped.
type chatStore struct {
	gateway apiclient.IGateway
	log     logger.ILogger

	mu       sync.Mutex
	sessions []entity.ChatSession
	activeID string
	messages []entity.ChatMessage
	inFlight map[string]bool
}

func NewChatStore(gateway apiclient.IGateway, log logger.ILogger) IChatStore {
	return &chatStore{
		gateway:  gateway,
		log:      log,
		inFlight: make(map[string]bool),
	}
}

func (s *chatStore) LoadSessions(ctx context.Context) ([]entity.ChatSession, error) {
	var sessions []entity.ChatSession
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/chat/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
	return sessions, nil
}

func (s *chatStore) Sessions() []entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.ChatSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

func (s *chatStore) CreateSession(ctx context.Context, deploymentID, title string) (*entity.ChatSession, error) {
	req := dto.SessionCreateRequest{DeploymentId: deploymentID, Title: title}
	var created dto.SessionCreateResponse
	if err := s.gateway.Do(ctx, http.MethodPost, apiclient.BasePath+"/chat/sessions", req, &created); err != nil {
		return nil, err
	}

	session := entity.ChatSession{
		Id:           created.Id,
		DeploymentId: created.DeploymentId,
		Title:        created.Title,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	s.mu.Lock()
	s.sessions = append([]entity.ChatSession{session}, s.sessions...)
	s.activeID = session.Id
	s.messages = nil
	s.mu.Unlock()
	return &session, nil
}

// Select makes a session active and fetches its full history. History is
// always refetched, never served from a cache, so the log reflects server
// truth after any out-of-band change. On failure the log is left empty and
// the error is surfaced.
func (s *chatStore) Select(ctx context.Context, sessionID string) ([]entity.ChatMessage, error) {
	s.mu.Lock()
	s.activeID = sessionID
	s.messages = nil
	s.mu.Unlock()

	var messages []entity.ChatMessage
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/chat/sessions/"+sessionID+"/messages", nil, &messages); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.activeID == sessionID {
		s.messages = messages
	}
	s.mu.Unlock()
	return messages, nil
}

func (s *chatStore) ActiveSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *chatStore) Messages() []entity.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send posts one user turn and appends the completed round. It returns the
// two appended messages; a backend failure is reported inline in the
// assistant turn rather than as an error. Only precondition violations
// (empty content, overlapping send) return an error.
func (s *chatStore) Send(ctx context.Context, sessionID, content string) ([]entity.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	// One in-flight send per session: a second send before the first
	// resolves could interleave message order.
	s.mu.Lock()
	if s.inFlight[sessionID] {
		s.mu.Unlock()
		return nil, ErrSendInFlight
	}
	s.inFlight[sessionID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, sessionID)
		s.mu.Unlock()
	}()

	var resp dto.SendMessageResponse
	err := s.gateway.Do(ctx, http.MethodPost, apiclient.BasePath+"/chat/sessions/"+sessionID+"/messages", dto.SendMessageRequest{Content: content}, &resp)

	now := time.Now().UTC().Format(time.RFC3339)
	userTurn := entity.ChatMessage{
		Id:        uuid.NewString(),
		Role:      entity.RoleUser,
		Content:   content,
		CreatedAt: now,
		Local:     true,
	}
	assistantTurn := entity.ChatMessage{
		Id:        uuid.NewString(),
		Role:      entity.RoleAssistant,
		CreatedAt: now,
		Local:     true,
	}
	if err != nil {
		s.log.Warn("chat", "send failed", map[string]interface{}{"session": sessionID, "error": err.Error()})
		assistantTurn.Content = "Error: " + err.Error()
		assistantTurn.Citations = []entity.Citation{}
	} else {
		assistantTurn.Content = resp.Response
		assistantTurn.Citations = resp.Citations
		if assistantTurn.Citations == nil {
			assistantTurn.Citations = []entity.Citation{}
		}
	}

	round := []entity.ChatMessage{userTurn, assistantTurn}
	s.mu.Lock()
	if s.activeID == sessionID {
		s.messages = append(s.messages, round...)
	}
	s.mu.Unlock()
	return round, nil
}

func (s *chatStore) RenameSession(ctx context.Context, sessionID, title string) (*entity.ChatSession, error) {
	var updated dto.SessionCreateResponse
	if err := s.gateway.Do(ctx, http.MethodPatch, apiclient.BasePath+"/chat/sessions/"+sessionID, dto.SessionUpdateRequest{Title: title}, &updated); err != nil {
		return nil, err
	}

	session := entity.ChatSession{Id: updated.Id, DeploymentId: updated.DeploymentId, Title: updated.Title}
	s.mu.Lock()
	for i := range s.sessions {
		if s.sessions[i].Id == sessionID {
			s.sessions[i].Title = updated.Title
			// Copy, not a pointer into the list: the backing array is
			// swapped wholesale by LoadSessions.
			session = s.sessions[i]
			break
		}
	}
	s.mu.Unlock()
	return &session, nil
}

// DeleteSession removes the session on the backend and reconciles the local
// list. Deleting the active session clears the selection.
func (s *chatStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.gateway.Do(ctx, http.MethodDelete, apiclient.BasePath+"/chat/sessions/"+sessionID, nil, nil); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.Id != sessionID {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	if s.activeID == sessionID {
		s.activeID = ""
		s.messages = nil
	}
	s.mu.Unlock()
	return nil
}
