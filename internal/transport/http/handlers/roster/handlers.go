package rosterhandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"guardhr/internal/domain/auth"
	"guardhr/internal/domain/roster"
	"guardhr/internal/transport/http/api"
	"guardhr/internal/transport/http/middleware"
	"guardhr/internal/transport/http/shared"
)

type Handler struct {
	Service *roster.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *roster.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

type assignmentPayload struct {
	EmployeeID string   `json:"employeeId"`
	Site       string   `json:"site"`
	Weekdays   []string `json:"weekdays"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Note       string   `json:"note"`
}

type endPayload struct {
	EndDate string `json:"endDate"`
}

// assignmentView renders the weekday mask as names.
type assignmentView struct {
	ID         string   `json:"id"`
	EmployeeID string   `json:"employeeId"`
	Site       string   `json:"site"`
	Weekdays   []string `json:"weekdays"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate,omitempty"`
	Status     string   `json:"status"`
	Note       string   `json:"note"`
	CreatedBy  string   `json:"createdBy"`
}

func toView(a roster.WeeklyAssignment) assignmentView {
	view := assignmentView{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Site:       a.Site,
		Weekdays:   a.Weekdays.Names(),
		StartDate:  a.StartDate.Format("2006-01-02"),
		Status:     a.Status,
		Note:       a.Note,
		CreatedBy:  a.CreatedBy,
	}
	if a.EndDate != nil {
		view.EndDate = a.EndDate.Format("2006-01-02")
	}
	return view
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/roster", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRosterRead, h.Perms)).Get("/assignments", h.handleList)
		r.With(middleware.RequirePermission(auth.PermRosterWrite, h.Perms)).Post("/assignments", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermRosterRead, h.Perms)).Get("/assignments/{assignmentID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermRosterWrite, h.Perms)).Post("/assignments/{assignmentID}/end", h.handleEnd)
		r.With(middleware.RequirePermission(auth.PermRosterRead, h.Perms)).Get("/employees/{employeeID}/week", h.handleWeek)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	query := r.URL.Query()
	filter := roster.Filter{
		EmployeeID: query.Get("employeeId"),
		Site:       query.Get("site"),
		Status:     query.Get("status"),
	}
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err, "assignment_list_failed", reqID)
		return
	}
	assignments, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, err, "assignment_list_failed", reqID)
		return
	}
	views := make([]assignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, toView(a))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, api.Page{Items: views, Total: total, Limit: page.Limit, Offset: page.Offset}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.Get(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		shared.WriteError(w, err, "assignment_get_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, toView(a), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload assignmentPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	start, _ := v.Date("startDate", payload.StartDate)
	var end *time.Time
	if payload.EndDate != "" {
		if parsed, ok := v.Date("endDate", payload.EndDate); ok {
			end = &parsed
			v.DateOrder("startDate", start, "endDate", parsed)
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	user, _ := middleware.GetUser(r.Context())
	a, err := h.Service.Create(r.Context(), roster.NewAssignment{
		EmployeeID: payload.EmployeeID,
		Site:       payload.Site,
		Weekdays:   payload.Weekdays,
		StartDate:  start,
		EndDate:    end,
		Note:       payload.Note,
	}, user.OperatorID)
	if err != nil {
		shared.WriteError(w, err, "assignment_create_failed", reqID)
		return
	}
	api.Created(w, toView(a), reqID)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload endPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	end, _ := v.Date("endDate", payload.EndDate)
	if v.Reject(w, reqID) {
		return
	}

	user, _ := middleware.GetUser(r.Context())
	a, err := h.Service.End(r.Context(), chi.URLParam(r, "assignmentID"), end, user.OperatorID)
	if err != nil {
		shared.WriteError(w, err, "assignment_end_failed", reqID)
		return
	}
	api.Success(w, toView(a), reqID)
}

func (h *Handler) handleWeek(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		v := shared.NewValidator()
		parsed, _ := v.Date("date", raw)
		if v.Reject(w, reqID) {
			return
		}
		date = parsed
	}
	week, err := h.Service.Week(r.Context(), chi.URLParam(r, "employeeID"), date)
	if err != nil {
		shared.WriteError(w, err, "roster_week_failed", reqID)
		return
	}
	api.Success(w, week, reqID)
}
