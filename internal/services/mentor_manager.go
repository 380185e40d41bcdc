package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/yungbote/careerpath-backend/internal/pkg/errors"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
	"github.com/yungbote/careerpath-backend/internal/prompts"
)

type MentorSessionManager struct {
	log        *logger.Logger
	client     openai.Client
	ctxBuilder MentorContextBuilder
	prompts    *prompts.Catalog
	idleTTL    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*MentorSession
}

func NewMentorSessionManager(
	log *logger.Logger,
	client openai.Client,
	ctxBuilder MentorContextBuilder,
	catalog *prompts.Catalog,
	idleTTL time.Duration,
) *MentorSessionManager {
	return &MentorSessionManager{
		log:        log.With("service", "MentorSessionManager"),
		client:     client,
		ctxBuilder: ctxBuilder,
		prompts:    catalog,
		idleTTL:    idleTTL,
		now:        time.Now,
		sessions:   map[uuid.UUID]*MentorSession{},
	}
}

func (m *MentorSessionManager) Create(userID uuid.UUID, userName string) (*MentorSession, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	now := m.now()
	s := &MentorSession{
		ID:         uuid.New(),
		UserID:     userID,
		UserName:   strings.TrimSpace(userName),
		CreatedAt:  now.UTC(),
		log:        m.log.With("component", "MentorSession"),
		client:     m.client,
		ctxBuilder: m.ctxBuilder,
		prompts:    m.prompts,
		state:      StateIdle,
		messages:   []ChatMessage{},
		lastActive: now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.log.Info("mentor session created", "session_id", s.ID.String(), "user_id", userID.String())
	return s, nil
}

// Get returns the session only to its owner; any other caller sees ErrNotFound.
func (m *MentorSessionManager) Get(userID, id uuid.UUID) (*MentorSession, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	return s, nil
}

func (m *MentorSessionManager) Delete(userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return pkgerrors.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MentorSessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops idle sessions whose last activity is older than the idle TTL.
// Sessions with a turn in flight are kept.
func (m *MentorSessionManager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		last, idle := s.idleSince()
		if idle && last.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *MentorSessionManager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.idleTTL <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.log.Debug("mentor sessions swept", "removed", n, "remaining", m.Len())
			}
		}
	}
}
