package main

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

const (
	sessionCookieName = "transfer_session"
	sessionKeySize    = chacha20poly1305.KeySize
)

// ConsentAnswer is the state of the collection/use agreement.
type ConsentAnswer int

const (
	ConsentUnanswered ConsentAnswer = iota
	ConsentAgreed
	ConsentDeclined
)

// Session is the per-visitor context threaded through the stage handlers.
type Session struct {
	mu sync.Mutex

	ID       string
	Stage    Stage
	Region   string
	School   string
	Consent  ConsentAnswer
	Document *RenderedDocument
	Message  string // one-shot message for the next page view
	Form     FormInput

	lastSeen time.Time
}

// reset drops everything collected so far and returns to the first stage.
func (s *Session) reset() {
	s.Stage = StageSelectRegionSchool
	s.Region = ""
	s.School = ""
	s.Consent = ConsentUnanswered
	s.Document = nil
	s.Form = FormInput{}
}

// takeMessage returns the pending message and clears it.
func (s *Session) takeMessage() string {
	m := s.Message
	s.Message = ""
	return m
}

// sessionStore keeps sessions in memory; they expire after ttl of inactivity.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	aead     cipher.AEAD
	now      func() time.Time
}

func newSessionStore(hexKey string, ttl time.Duration, now func() time.Time) (*sessionStore, error) {
	key := make([]byte, sessionKeySize)
	if hexKey == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	} else {
		var err error
		if key, err = hex.DecodeString(hexKey); err != nil {
			return nil, fmt.Errorf("decode session key: %w", err)
		}
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("session cipher: %w", err)
	}
	return &sessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		aead:     aead,
		now:      now,
	}, nil
}

// generateSessionID returns 32 hex characters from 16 random bytes.
func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// encryptID seals a session id for the cookie value.
func (st *sessionStore) encryptID(id string) (string, error) {
	nonce := make([]byte, st.aead.NonceSize(), st.aead.NonceSize()+len(id)+st.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := st.aead.Seal(nonce, nonce, []byte(id), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// decryptID opens a cookie value produced by encryptID.
func (st *sessionStore) decryptID(value string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}
	if len(sealed) < st.aead.NonceSize() {
		return "", fmt.Errorf("session cookie too short")
	}
	nonce, ciphertext := sealed[:st.aead.NonceSize()], sealed[st.aead.NonceSize():]
	id, err := st.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(id), nil
}

// get returns the live session named by the request cookie, or a new session
// with a fresh cookie.
func (st *sessionStore) get(w http.ResponseWriter, r *http.Request) (*Session, error) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.expireLocked(now)

	if c, err := r.Cookie(sessionCookieName); err == nil {
		if id, err := st.decryptID(c.Value); err == nil {
			if s, ok := st.sessions[id]; ok {
				s.lastSeen = now
				return s, nil
			}
		}
	}

	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	value, err := st.encryptID(id)
	if err != nil {
		return nil, fmt.Errorf("encrypt session id: %w", err)
	}

	s := &Session{ID: id, Stage: StageSelectRegionSchool, lastSeen: now}
	st.sessions[id] = s

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// expireLocked drops sessions idle for longer than ttl.
func (st *sessionStore) expireLocked(now time.Time) {
	for id, s := range st.sessions {
		if now.Sub(s.lastSeen) > st.ttl {
			delete(st.sessions, id)
		}
	}
}

// len returns the number of live sessions.
func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
