package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/go-link/api/internal/platform/auth"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/services"
)

const maxProfileBodySize = 64 * 1024

var errNoEditableFields = errors.New("no editable fields provided")

// MeHandlers exposes the authenticated owner's profile endpoints.
type MeHandlers struct {
	authn    *auth.Authenticator
	profiles services.ProfileService

	blocks  RouteRegistrar
	assets  RouteRegistrar
	limiter rateLimiter
}

// MeHandlersDeps bundles collaborators for the /me surface. Blocks and Assets
// are sub-registrars mounted beneath the authenticated group.
type MeHandlersDeps struct {
	Authenticator *auth.Authenticator
	Profiles      services.ProfileService
	Blocks        RouteRegistrar
	Assets        RouteRegistrar

	// RatePerMinute caps requests per authenticated caller. Zero disables
	// throttling.
	RatePerMinute int
	Clock         func() time.Time
}

// NewMeHandlers constructs handlers enforcing Firebase authentication before
// invoking the profile service.
func NewMeHandlers(deps MeHandlersDeps) *MeHandlers {
	return &MeHandlers{
		authn:    deps.Authenticator,
		profiles: deps.Profiles,
		blocks:   deps.Blocks,
		assets:   deps.Assets,
		limiter:  newSimpleRateLimiter(deps.RatePerMinute, time.Minute, deps.Clock),
	}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	if h.limiter != nil {
		r.Use(identityRateLimit(h.limiter))
	}
	r.Get("/", h.getProfile)
	r.Patch("/", h.updateProfile)
	r.Post("/provision", h.provision)
	if h.blocks != nil {
		r.Route("/blocks", h.blocks)
	}
	if h.assets != nil {
		r.Route("/assets", h.assets)
	}
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.profiles == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(ctx, identity.UID)
	if err != nil {
		writeProfileError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, meResponse{Profile: profilePayloadFrom(profile)})
}

func (h *MeHandlers) provision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.profiles == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxProfileBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req provisionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	profile, err := h.profiles.Provision(ctx, services.ProvisionCommand{
		UID:     identity.UID,
		Email:   identity.Email,
		OrgName: req.OrgName,
	})
	if err != nil {
		// A repeated provision returns the existing profile alongside the
		// conflict so first-login retries stay idempotent for the client.
		if errors.Is(err, services.ErrProfileAlreadyExists) && profile.UID != "" {
			writeJSONResponse(w, http.StatusOK, meResponse{Profile: profilePayloadFrom(profile)})
			return
		}
		writeProfileError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, meResponse{Profile: profilePayloadFrom(profile)})
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.profiles == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxProfileBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	req, err := parseUpdateProfileRequest(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var profile services.Profile
	if req.hasProfileFields() {
		profile, err = h.profiles.UpdateProfile(ctx, services.UpdateProfileCommand{
			UID:        identity.UID,
			OrgName:    req.orgName,
			OrgAddress: req.orgAddress,
			LogoURL:    req.logoURL,
			CoverURL:   req.coverURL,
		})
		if err != nil {
			writeProfileError(ctx, w, err)
			return
		}
	}
	if req.showProfile != nil {
		profile, err = h.profiles.SetVisibility(ctx, identity.UID, *req.showProfile)
		if err != nil {
			writeProfileError(ctx, w, err)
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, meResponse{Profile: profilePayloadFrom(profile)})
}

type provisionRequest struct {
	OrgName string `json:"org_name"`
}

type updateProfileFields struct {
	orgName     *string
	orgAddress  *string
	logoURL     *string
	coverURL    *string
	showProfile *bool
}

func (f updateProfileFields) hasProfileFields() bool {
	return f.orgName != nil || f.orgAddress != nil || f.logoURL != nil || f.coverURL != nil
}

// parseUpdateProfileRequest accepts only the editable profile fields; unknown
// keys are rejected so typos do not silently no-op. The slug is immutable.
func parseUpdateProfileRequest(data []byte) (updateProfileFields, error) {
	var fields updateProfileFields

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fields, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if len(raw) == 0 {
		return fields, errNoEditableFields
	}

	stringField := func(key string, value json.RawMessage) (*string, error) {
		if isJSONNull(value) {
			empty := ""
			return &empty, nil
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("%s must be a string", key)
		}
		return &s, nil
	}

	for key, value := range raw {
		switch key {
		case "org_name":
			if isJSONNull(value) {
				return fields, errors.New("org_name must not be null")
			}
			v, err := stringField(key, value)
			if err != nil {
				return fields, err
			}
			fields.orgName = v
		case "org_address":
			v, err := stringField(key, value)
			if err != nil {
				return fields, err
			}
			fields.orgAddress = v
		case "logo_url":
			v, err := stringField(key, value)
			if err != nil {
				return fields, err
			}
			fields.logoURL = v
		case "cover_url":
			v, err := stringField(key, value)
			if err != nil {
				return fields, err
			}
			fields.coverURL = v
		case "show_profile":
			if isJSONNull(value) {
				return fields, errors.New("show_profile must be a boolean")
			}
			var visible bool
			if err := json.Unmarshal(value, &visible); err != nil {
				return fields, errors.New("show_profile must be a boolean")
			}
			fields.showProfile = &visible
		default:
			return fields, fmt.Errorf("field %q is not editable", key)
		}
	}
	return fields, nil
}

type meResponse struct {
	Profile profilePayload `json:"profile"`
}

type profilePayload struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	OrgName     string `json:"org_name"`
	OrgAddress  string `json:"org_address,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	Slug        string `json:"slug"`
	ShowProfile bool   `json:"show_profile"`
	Role        string `json:"role,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func profilePayloadFrom(profile services.Profile) profilePayload {
	return profilePayload{
		UID:         strings.TrimSpace(profile.UID),
		Email:       profile.Email,
		OrgName:     profile.OrgName,
		OrgAddress:  profile.OrgAddress,
		LogoURL:     profile.LogoURL,
		CoverURL:    profile.CoverURL,
		Slug:        profile.Slug,
		ShowProfile: profile.ShowProfile,
		Role:        profile.Role,
		CreatedAt:   formatTime(profile.CreatedAt),
		UpdatedAt:   formatTime(profile.UpdatedAt),
	}
}

func writeProfileError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrProfileInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_profile_field", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProfileNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("profile_not_found", "profile not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProfileAlreadyExists):
		httpx.WriteError(ctx, w, httpx.NewError("profile_exists", "profile already provisioned", http.StatusConflict))
	case errors.Is(err, services.ErrProfileSlugExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("slug_exhausted", "no free page address for this name", http.StatusConflict))
	case errors.Is(err, services.ErrProfileUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("profile_error", err.Error(), http.StatusInternalServerError))
	}
}
