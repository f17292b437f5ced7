// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package api

import (
	"net/http"

	"github.com/myr0nl/EvacuationHub-sub000/internal/auth"
	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

type registerBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginBody struct {
	IDToken  string `json:"id_token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token   string              `json:"token"`
	Profile *models.UserProfile `json:"profile"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	profile, token, err := s.deps.Auth.Register(r.Context(), auth.RegisterRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, Profile: profile})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	if body.IDToken == "" && (body.Email == "" || body.Password == "") {
		writeError(w, http.StatusBadRequest, "bad request", "id_token or email and password required")
		return
	}
	profile, token, err := s.deps.Auth.Login(r.Context(), auth.LoginRequest{
		IDToken:  body.IDToken,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Profile: profile})
}

// handleLogout revokes the presented token. Logging out without a token is
// a no-op success so clients can always clear local state.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Auth.Logout(r.Context(), auth.BearerToken(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	profile, err := s.deps.Auth.Profile(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid JSON body")
		return
	}
	p := auth.PrincipalFrom(r.Context())
	profile, err := s.deps.Auth.UpdateDisplayName(r.Context(), p.UserID, body.DisplayName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
