package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// CreateSession starts a session and sets its signed cookie on w.
func (s *Service) CreateSession(ctx context.Context, w http.ResponseWriter) (*Session, error) {
	session, err := s.Start(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.setCookie(w, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// EnsureSession returns the request's session, starting a new one when the
// cookie is missing or stale.
func (s *Service) EnsureSession(w http.ResponseWriter, r *http.Request) (*Session, bool, error) {
	session, err := s.ValidateSession(r)
	if err == nil {
		return session, false, nil
	}
	if !IsNotFound(err) {
		return nil, false, err
	}

	session, err = s.CreateSession(r.Context(), w)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// ValidateSession resolves the session named by the request cookie. It
// returns ErrNotFound when the cookie is missing, invalid or points at a
// session that no longer exists.
func (s *Service) ValidateSession(r *http.Request) (*Session, error) {
	sessionID, err := s.sessionID(r)
	if err != nil {
		return nil, err
	}
	return s.Resume(r.Context(), sessionID)
}

// ClearSession removes the session from storage and expires its cookie.
func (s *Service) ClearSession(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := s.sessionID(r); err == nil {
		if err := s.Delete(r.Context(), sessionID); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to delete session")
		}
	}

	http.SetCookie(w, s.cookie("", time.Now().Add(-1*time.Hour)))
}

func (s *Service) setCookie(w http.ResponseWriter, sessionID string) error {
	now := time.Now()
	expires := now.Add(s.cfg.TTL)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return fmt.Errorf("failed to sign session cookie: %w", err)
	}

	http.SetCookie(w, s.cookie(signedToken, expires))
	return nil
}

func (s *Service) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
}

func (s *Service) sessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return "", ErrNotFound
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		s.log.Debug().Err(err).Msg("Rejected session cookie")
		return "", ErrNotFound
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrNotFound
	}
	return claims.SessionID, nil
}

// IsNotFound reports whether err means the caller has no usable session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
