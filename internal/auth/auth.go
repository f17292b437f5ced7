// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package auth issues and verifies identity tokens and manages user
// accounts.
//
// Tokens are HS256 JWTs carrying email, email_verified, and admin claims.
// Verification returns an opaque Principal; admin status comes from the
// token claim or from the configured admin user-ID allowlist. Logout
// revokes the token's jti server-side until its natural expiry.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
	"github.com/myr0nl/EvacuationHub-sub000/internal/store"
)

// Auth errors.
var (
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrExpiredToken       = errors.New("auth: token expired")
	ErrRevokedToken       = errors.New("auth: token revoked")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrNotConfigured      = errors.New("auth: no signing secret configured")
)

// Service handles registration, login, and token verification.
type Service struct {
	store    *store.Store
	secret   []byte
	tokenTTL time.Duration
	adminIDs map[string]bool
	clock    clockwork.Clock
	validate *validator.Validate
}

// New creates the auth service. An empty secret disables authentication;
// every verify then fails with ErrNotConfigured.
func New(st *store.Store, secret string, tokenTTL time.Duration, adminUserIDs []string, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	admins := make(map[string]bool, len(adminUserIDs))
	for _, id := range adminUserIDs {
		admins[id] = true
	}
	return &Service{
		store:    st,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		adminIDs: admins,
		clock:    clock,
		validate: validator.New(),
	}
}

// claims is the JWT payload.
type claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Admin         bool   `json:"admin,omitempty"`
}

// Verify parses and validates a bearer token and returns the Principal.
func (s *Service) Verify(ctx context.Context, tokenString string) (*models.Principal, error) {
	if len(s.secret) == 0 {
		return nil, ErrNotConfigured
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}

	if c.ID != "" {
		var revoked struct {
			RevokedAt time.Time `json:"revoked_at"`
		}
		err := s.store.Get(ctx, store.RevokedTokenPath(c.ID), &revoked)
		if err == nil {
			return nil, ErrRevokedToken
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
	}

	return &models.Principal{
		UserID:        c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		IsAdmin:       c.Admin || s.adminIDs[c.Subject],
	}, nil
}

// IssueToken signs a token for the principal.
func (s *Service) IssueToken(p *models.Principal) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := s.clock.Now().UTC()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		Admin:         p.IsAdmin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// credentialRecord is the stored password hash, keyed by hashed email.
type credentialRecord struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest creates one account.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// Register creates an account, its profile, and an initial token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.UserProfile, string, error) {
	if err := s.validate.Var(req.Email, "required,email"); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email address", models.ErrInvalid)
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, "", err
	}
	displayName := SanitizeDisplayName(req.DisplayName)

	credPath := store.CredentialPath(emailKey(req.Email))
	var existing credentialRecord
	err := s.store.Get(ctx, credPath, &existing)
	if err == nil {
		return nil, "", ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("credential lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	userID := uuid.NewString()
	profile := models.UserProfile{
		UserID:           userID,
		Email:            req.Email,
		DisplayName:      displayName,
		CreatedAt:        now,
		LastActive:       now,
		CredibilityScore: models.DefaultCredibility,
		CredibilityLevel: models.CredibilityLevelForScore(models.DefaultCredibility),
	}
	cred := credentialRecord{
		UserID:       userID,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	err = s.store.Batch(ctx, []store.Op{
		{Path: credPath, Value: cred},
		{Path: store.UserPath(userID), Value: profile},
	})
	if err != nil {
		return nil, "", fmt.Errorf("persist account: %w", err)
	}

	token, err := s.IssueToken(&models.Principal{UserID: userID, Email: req.Email})
	if err != nil {
		return nil, "", err
	}
	logging.Info().Str("user_id", userID).Msg("user registered")
	return &profile, token, nil
}

// LoginRequest authenticates one session. Either IDToken or
// Email+Password must be set.
type LoginRequest struct {
	// IDToken is an already-issued identity token to verify.
	IDToken  string
	Email    string
	Password string
}

// Login verifies the credentials and returns the profile plus a fresh
// token. Verifying an id_token for a user without a profile creates one,
// seeded at the verified-identity credibility when the email is verified.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*models.UserProfile, string, error) {
	var principal *models.Principal
	switch {
	case req.IDToken != "":
		p, err := s.Verify(ctx, req.IDToken)
		if err != nil {
			return nil, "", err
		}
		principal = p
	case req.Email != "" && req.Password != "":
		var cred credentialRecord
		err := s.store.Get(ctx, store.CredentialPath(emailKey(req.Email)), &cred)
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		if err != nil {
			return nil, "", fmt.Errorf("credential lookup: %w", err)
		}
		if bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(req.Password)) != nil {
			return nil, "", ErrInvalidCredentials
		}
		principal = &models.Principal{UserID: cred.UserID, Email: cred.Email}
	default:
		return nil, "", ErrInvalidCredentials
	}

	profile, err := s.ensureProfile(ctx, principal)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(principal)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// ensureProfile loads the profile, creating it on first verification.
func (s *Service) ensureProfile(ctx context.Context, p *models.Principal) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.store.Get(ctx, store.UserPath(p.UserID), &profile)
	if err == nil {
		profile.LastActive = s.clock.Now().UTC()
		if serr := s.store.Set(ctx, store.UserPath(p.UserID), profile); serr != nil {
			logging.Warn().Err(serr).Str("user_id", p.UserID).Msg("last-active update failed")
		}
		return &profile, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}

	credibility := models.DefaultCredibility
	if p.EmailVerified {
		credibility = models.OAuthIdentityCredibility
	}
	now := s.clock.Now().UTC()
	profile = models.UserProfile{
		UserID:           p.UserID,
		Email:            p.Email,
		CreatedAt:        now,
		LastActive:       now,
		CredibilityScore: credibility,
		CredibilityLevel: models.CredibilityLevelForScore(credibility),
	}
	if err := s.store.Set(ctx, store.UserPath(p.UserID), profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	logging.Info().Str("user_id", p.UserID).Msg("profile created on first verification")
	return &profile, nil
}

// Logout revokes the token server-side. An empty or unparseable token is a
// no-op: the client may already have discarded it.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" || len(s.secret) == 0 {
		return nil
	}
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || c.ID == "" {
		return nil
	}

	ttl := s.tokenTTL
	if c.ExpiresAt != nil {
		ttl = c.ExpiresAt.Time.Sub(s.clock.Now())
	}
	if ttl <= 0 {
		return nil
	}
	record := struct {
		RevokedAt time.Time `json:"revoked_at"`
	}{RevokedAt: s.clock.Now().UTC()}
	return s.store.SetWithTTL(ctx, store.RevokedTokenPath(c.ID), record, ttl)
}

// Profile returns the user's profile.
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.store.Get(ctx, store.UserPath(userID), &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateDisplayName updates the only profile field users may edit.
func (s *Service) UpdateDisplayName(ctx context.Context, userID, displayName string) (*models.UserProfile, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.DisplayName = SanitizeDisplayName(displayName)
	profile.LastActive = s.clock.Now().UTC()
	if err := s.store.Set(ctx, store.UserPath(userID), *profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// emailKey normalizes an email address into a stable credential-record
// key. Hashing keeps raw addresses out of key space listings.
func emailKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
