package corehandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"guardhr/internal/domain/auth"
	"guardhr/internal/domain/core"
	"guardhr/internal/transport/http/api"
	"guardhr/internal/transport/http/middleware"
	"guardhr/internal/transport/http/shared"
)

// maxImportBytes bounds an uploaded attendance workbook.
const maxImportBytes = 10 << 20

type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type Handler struct {
	Service *core.Service
	Audit   AuditRecorder
	Perms   middleware.PermissionStore
}

func NewHandler(service *core.Service, audit AuditRecorder, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Audit: audit, Perms: perms}
}

type employeePayload struct {
	Matricule  string          `json:"matricule"`
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	Category   string          `json:"category"`
	PayMode    string          `json:"payMode"`
	BaseSalary decimal.Decimal `json:"baseSalary"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
	Status     string          `json:"status"`
	HireDate   string          `json:"hireDate"`
	Phone      string          `json:"phone"`
	NationalID string          `json:"nationalId"`
}

type attendancePayload struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	DaysWorked decimal.Decimal `json:"daysWorked"`
}

type contactPayload struct {
	FullName     string `json:"fullName"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	IsPrimary    bool   `json:"isPrimary"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGetEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/", h.handleUpdateEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/attendance", h.handleGetAttendance)
			r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Put("/attendance", h.handleSetAttendance)
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/emergency-contacts", h.handleListContacts)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/emergency-contacts", h.handleReplaceContacts)
		})
	})
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListAttendance)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/import", h.handleImportAttendance)
	})
}

func (h *Handler) record(r *http.Request, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	if err := h.Audit.Record(r.Context(), user.OperatorID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	query := r.URL.Query()
	filter := core.EmployeeFilter{
		Status:   query.Get("status"),
		Category: query.Get("category"),
		Search:   query.Get("q"),
	}

	total, err := h.Service.CountEmployees(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err, "employee_list_failed", reqID)
		return
	}
	employees, err := h.Service.ListEmployees(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, err, "employee_list_failed", reqID)
		return
	}
	filtered := make([]core.Employee, 0, len(employees))
	for _, emp := range employees {
		core.FilterEmployeeFields(&emp, user.Role)
		filtered = append(filtered, emp)
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, api.Page{Items: filtered, Total: total, Limit: page.Limit, Offset: page.Offset}, reqID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, err, "employee_get_failed", middleware.GetRequestID(r.Context()))
		return
	}
	core.FilterEmployeeFields(emp, user.Role)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

var (
	employeeCategories = []string{core.CategoryGuard, core.CategoryRoteur, core.CategorySupervisor, core.CategoryStaff}
	employeeStatuses   = []string{core.EmployeeStatusActive, core.EmployeeStatusSuspended, core.EmployeeStatusTerminated}
	payModes           = []string{core.PayModeMonthly, core.PayModeDaily}
)

func (p employeePayload) toEmployee(v *shared.Validator) core.Employee {
	v.Enum("category", p.Category, employeeCategories, "must be guard, roteur, supervisor or staff")
	v.Enum("payMode", p.PayMode, payModes, "must be MONTHLY or DAILY")
	v.Enum("status", p.Status, employeeStatuses, "must be active, suspended or terminated")
	emp := core.Employee{
		Matricule:  p.Matricule,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Category:   p.Category,
		PayMode:    p.PayMode,
		BaseSalary: p.BaseSalary,
		DailyRate:  p.DailyRate,
		Status:     p.Status,
		Phone:      p.Phone,
		NationalID: p.NationalID,
	}
	if p.HireDate != "" {
		if hired, ok := v.Date("hireDate", p.HireDate); ok {
			emp.HireDate = &hired
		}
	}
	return emp
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employeePayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	emp := payload.toEmployee(v)
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Service.CreateEmployee(r.Context(), emp)
	if err != nil {
		shared.WriteError(w, err, "employee_create_failed", reqID)
		return
	}
	emp.ID = id
	h.record(r, "core.employee.create", "employee", id, nil, emp)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	existing, err := h.Service.GetEmployee(r.Context(), employeeID)
	if err != nil {
		shared.WriteError(w, err, "employee_update_failed", reqID)
		return
	}

	var payload employeePayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	emp := payload.toEmployee(v)
	if v.Reject(w, reqID) {
		return
	}
	emp.ID = employeeID
	if emp.Status == "" {
		emp.Status = existing.Status
	}

	if err := h.Service.UpdateEmployee(r.Context(), emp); err != nil {
		shared.WriteError(w, err, "employee_update_failed", reqID)
		return
	}
	h.record(r, "core.employee.update", "employee", employeeID, existing, emp)
	api.Success(w, map[string]string{"id": employeeID}, reqID)
}

func (h *Handler) handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year, month, ok := parseMonth(w, r, reqID)
	if !ok {
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if _, err := h.Service.GetEmployee(r.Context(), employeeID); err != nil {
		shared.WriteError(w, err, "attendance_get_failed", reqID)
		return
	}
	rec, err := h.Service.GetAttendance(r.Context(), employeeID, year, month)
	if err != nil {
		shared.WriteError(w, err, "attendance_get_failed", reqID)
		return
	}
	if rec == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "no attendance recorded for this month", reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload attendancePayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	rec, err := h.Service.SetAttendance(r.Context(), employeeID, payload.Year, payload.Month, payload.DaysWorked, user.OperatorID)
	if err != nil {
		shared.WriteError(w, err, "attendance_update_failed", reqID)
		return
	}
	h.record(r, "core.attendance.set", "employee", employeeID, nil, rec)
	api.Success(w, rec, reqID)
}

func (h *Handler) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year, month, ok := parseMonth(w, r, reqID)
	if !ok {
		return
	}
	records, err := h.Service.ListAttendance(r.Context(), year, month)
	if err != nil {
		shared.WriteError(w, err, "attendance_list_failed", reqID)
		return
	}
	if records == nil {
		records = []core.Attendance{}
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleImportAttendance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "expected a multipart form with a file field", reqID)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "file field is required", reqID)
		return
	}
	defer file.Close()

	user, _ := middleware.GetUser(r.Context())
	result, err := h.Service.ImportAttendance(r.Context(), file, user.OperatorID)
	if err != nil {
		shared.WriteError(w, err, "attendance_import_failed", reqID)
		return
	}
	h.record(r, "core.attendance.import", "attendance", "", nil, map[string]int{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   len(result.Errors),
	})
	api.Success(w, result, reqID)
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if _, err := h.Service.GetEmployee(r.Context(), employeeID); err != nil {
		shared.WriteError(w, err, "contacts_list_failed", reqID)
		return
	}
	contacts, err := h.Service.ListEmergencyContacts(r.Context(), employeeID)
	if err != nil {
		shared.WriteError(w, err, "contacts_list_failed", reqID)
		return
	}
	if contacts == nil {
		contacts = []core.EmergencyContact{}
	}
	api.Success(w, contacts, reqID)
}

func (h *Handler) handleReplaceContacts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Contacts []contactPayload `json:"contacts"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	contacts := make([]core.EmergencyContact, 0, len(payload.Contacts))
	for i, c := range payload.Contacts {
		prefix := "contacts[" + strconv.Itoa(i) + "]"
		v.Required(prefix+".fullName", c.FullName, "is required")
		v.Required(prefix+".relationship", c.Relationship, "is required")
		contacts = append(contacts, core.EmergencyContact{
			FullName:     c.FullName,
			Relationship: c.Relationship,
			Phone:        c.Phone,
			Address:      c.Address,
			IsPrimary:    c.IsPrimary,
		})
	}
	if v.Reject(w, reqID) {
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if err := h.Service.ReplaceEmergencyContacts(r.Context(), employeeID, contacts); err != nil {
		shared.WriteError(w, err, "contacts_update_failed", reqID)
		return
	}
	h.record(r, "core.employee.contacts_replace", "employee", employeeID, nil, map[string]int{"contacts": len(contacts)})
	api.Success(w, map[string]any{"employeeId": employeeID, "count": len(contacts)}, reqID)
}

func parseMonth(w http.ResponseWriter, r *http.Request, reqID string) (int, int, bool) {
	v := shared.NewValidator()
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			v.Add("year", "must be a whole number")
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			v.Add("month", "must be between 1 and 12")
		}
		month = parsed
	}
	if v.Reject(w, reqID) {
		return 0, 0, false
	}
	return year, month, true
}
