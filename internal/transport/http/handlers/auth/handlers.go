package authhandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardhr/internal/domain/auth"
	"guardhr/internal/transport/http/api"
	"guardhr/internal/transport/http/middleware"
	"guardhr/internal/transport/http/shared"
)

const minPasswordLength = 8

type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type Handler struct {
	Service *auth.Service
	Audit   AuditRecorder
}

func NewHandler(service *auth.Service, audit AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: audit}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type operatorRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

// RegisterRoutes mounts the authenticated routes. HandleLogin is mounted by the router
// outside the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/auth/me", h.handleMe)
	r.Route("/operators", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOperatorsManage, h.Service)).Get("/", h.handleListOperators)
		r.With(middleware.RequirePermission(auth.PermOperatorsManage, h.Service)).Post("/", h.handleCreateOperator)
	})
}

func (h *Handler) record(r *http.Request, actorID, action, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, "operator", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("username", payload.Username, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		shared.WriteError(w, err, "login_failed", reqID)
		return
	}
	h.record(r, result.Operator.ID, "auth.login", result.Operator.ID, nil)
	api.Success(w, result, reqID)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	op, err := h.Service.Get(r.Context(), user.OperatorID)
	if err != nil || !op.Active {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	permissions := make([]string, 0, len(auth.DefaultPermissions))
	for _, perm := range auth.DefaultPermissions {
		if auth.RoleHasPermission(op.Role, perm) {
			permissions = append(permissions, perm)
		}
	}
	api.Success(w, map[string]any{
		"operator":    op,
		"permissions": permissions,
	}, reqID)
}

func (h *Handler) handleListOperators(w http.ResponseWriter, r *http.Request) {
	ops, err := h.Service.List(r.Context())
	if err != nil {
		shared.WriteError(w, err, "operator_list_failed", middleware.GetRequestID(r.Context()))
		return
	}
	if ops == nil {
		ops = []auth.Operator{}
	}
	api.Success(w, ops, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateOperator(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload operatorRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("username", payload.Username, "is required")
	if len(payload.Password) < minPasswordLength {
		v.Add("password", "must be at least 8 characters")
	}
	if !auth.ValidRole(payload.Role) {
		v.Add("role", "must be one of admin, hr, accountant, viewer")
	}
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Service.CreateOperator(r.Context(), payload.Username, payload.DisplayName, payload.Password, payload.Role)
	if err != nil {
		shared.WriteError(w, err, "operator_create_failed", reqID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	h.record(r, user.OperatorID, "auth.operator.create", id, map[string]string{"username": payload.Username, "role": payload.Role})
	api.Created(w, map[string]string{"id": id}, reqID)
}
