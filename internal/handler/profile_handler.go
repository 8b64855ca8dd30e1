package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/talentbase/internal/metrics"
	"github.com/hitoshi/talentbase/internal/middleware"
	"github.com/hitoshi/talentbase/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Create(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	Update(ctx context.Context, userID string, patch *model.ProfilePatch) (*model.Profile, error)
}

// ProfileHandler はプロフィール関連のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
	metrics metrics.MetricsCollector
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface, collector metrics.MetricsCollector) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		metrics: collector,
	}
}

type profileCreateRequest struct {
	FullName       string `json:"full_name"`
	Company        string `json:"company"`
	Phone          string `json:"phone"`
	CompanyContact string `json:"company_contact"`
	AvatarURL      string `json:"avatar_url"`
}

// GetProfile はログインユーザーのプロフィールを返す。
// プロフィール未作成の場合は404を返す（クライアント側のリコンサイラが
// これをnilとして解釈し、作成フローに進む）。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	profile, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profile == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewProfileNotFoundError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// CreateProfile はログインユーザーのプロフィールを作成する。
// 作成済みの場合は既存行を維持したまま既存行を返す（冪等）。
// POST /api/profile
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	var req profileCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	profile, err := h.service.Create(r.Context(), &model.Profile{
		UserID:         userID,
		FullName:       req.FullName,
		Company:        req.Company,
		Phone:          req.Phone,
		CompanyContact: req.CompanyContact,
		AvatarURL:      req.AvatarURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordProfileCreated()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profile)
}

// UpdateProfile はプロフィールを部分更新する。
// リクエストに含まれないフィールドは保存済みの値を維持する。
// PATCH /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	var patch model.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	profile, err := h.service.Update(r.Context(), userID, &patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}
