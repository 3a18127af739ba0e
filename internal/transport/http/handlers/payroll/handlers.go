package payrollhandler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"guardhr/internal/domain/auth"
	"guardhr/internal/domain/payroll"
	"guardhr/internal/transport/http/api"
	"guardhr/internal/transport/http/middleware"
	"guardhr/internal/transport/http/shared"
)

type Handler struct {
	Service *payroll.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *payroll.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

type periodPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type inputPayload struct {
	Bonus   decimal.Decimal `json:"bonus"`
	Arrears decimal.Decimal `json:"arrears"`
	Note    string          `json:"note"`
}

type lockPayload struct {
	Confirm bool `json:"confirm"`
}

type ratesPayload struct {
	PensionRate      decimal.Decimal `json:"pensionRate"`
	UnemploymentRate decimal.Decimal `json:"unemploymentRate"`
	TrainingRate     decimal.Decimal `json:"trainingRate"`
}

type bracketsPayload struct {
	Brackets []struct {
		Min  decimal.Decimal     `json:"min"`
		Max  decimal.NullDecimal `json:"max"`
		Rate decimal.Decimal     `json:"rate"`
	} `json:"brackets"`
}

type deductionPayload struct {
	EmployeeID       string          `json:"employeeId"`
	Kind             string          `json:"kind"`
	Reason           string          `json:"reason"`
	ScheduleType     string          `json:"scheduleType"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	InstallmentCount int             `json:"installmentCount"`
	RecurringAmount  decimal.Decimal `json:"recurringAmount"`
	StartYear        int             `json:"startYear"`
	StartMonth       int             `json:"startMonth"`
}

var (
	deductionKinds = []string{
		string(payroll.DeductionKindDisciplinary),
		string(payroll.DeductionKindAdvance),
		string(payroll.DeductionKindDebt),
		string(payroll.DeductionKindOther),
	}
	scheduleTypes = []string{
		string(payroll.ScheduleOneTime),
		string(payroll.ScheduleInstallments),
		string(payroll.ScheduleRecurring),
	}
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Route("/config", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/rates", h.handleGetRates)
			r.With(middleware.RequirePermission(auth.PermPayrollConfig, h.Perms)).Put("/rates", h.handleSetRates)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/brackets", h.handleGetBrackets)
			r.With(middleware.RequirePermission(auth.PermPayrollConfig, h.Perms)).Put("/brackets", h.handleSetBrackets)
		})

		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods", h.handleListPeriods)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/periods", h.handleCreatePeriod)
		r.Route("/periods/{periodID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/", h.handleGetPeriod)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/summary", h.handleSummary)
			r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Put("/inputs/{employeeID}", h.handleUpsertInput)
			r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/calculate", h.handleCalculate)
			r.With(middleware.RequirePermission(auth.PermPayrollValidate, h.Perms)).Post("/validate", h.handleValidate)
			r.With(middleware.RequirePermission(auth.PermPayrollLock, h.Perms)).Post("/lock", h.handleLock)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips", h.handleListPayslips)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips/{employeeID}", h.handleGetPayslip)
			r.With(middleware.RequirePermission(auth.PermPayrollExport, h.Perms)).Get("/payslips/{employeeID}/pdf", h.handlePayslipPDF)
			r.With(middleware.RequirePermission(auth.PermPayrollExport, h.Perms)).Get("/export/register.xlsx", h.handleRegisterXLSX)
			r.With(middleware.RequirePermission(auth.PermPayrollExport, h.Perms)).Get("/export/register.csv", h.handleRegisterCSV)
			r.With(middleware.RequirePermission(auth.PermPayrollExport, h.Perms)).Get("/export/journal.csv", h.handleJournalCSV)
		})

		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/deductions", h.handleListDeductions)
		r.With(middleware.RequirePermission(auth.PermDeductionsWrite, h.Perms)).Post("/deductions", h.handleCreateDeduction)
		r.With(middleware.RequirePermission(auth.PermPayrollConfig, h.Perms)).Post("/deductions/repair", h.handleRepairLedger)
		r.Route("/deductions/{deductionID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/", h.handleGetDeduction)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/history", h.handleDeductionHistory)
			r.With(middleware.RequirePermission(auth.PermDeductionsWrite, h.Perms)).Post("/suspend", h.handleSuspendDeduction)
			r.With(middleware.RequirePermission(auth.PermDeductionsWrite, h.Perms)).Post("/resume", h.handleResumeDeduction)
			r.With(middleware.RequirePermission(auth.PermDeductionsWrite, h.Perms)).Post("/cancel", h.handleCancelDeduction)
		})
	})
}

func actorFrom(r *http.Request) payroll.Actor {
	user, _ := middleware.GetUser(r.Context())
	return payroll.Actor{
		OperatorID: user.OperatorID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
	}
}

func (h *Handler) handleGetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Service.GetStatutoryRates(r.Context())
	if err != nil {
		shared.WriteError(w, err, "rates_get_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rates, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetRates(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload ratesPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	rates, err := h.Service.SetStatutoryRates(r.Context(), payroll.StatutoryRates{
		PensionRate:      payload.PensionRate,
		UnemploymentRate: payload.UnemploymentRate,
		TrainingRate:     payload.TrainingRate,
	}, actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "rates_update_failed", reqID)
		return
	}
	api.Success(w, rates, reqID)
}

func (h *Handler) handleGetBrackets(w http.ResponseWriter, r *http.Request) {
	table, err := h.Service.GetTaxTable(r.Context())
	if err != nil {
		shared.WriteError(w, err, "brackets_get_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, table, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetBrackets(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload bracketsPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	brackets := make([]payroll.TaxBracket, 0, len(payload.Brackets))
	for i, b := range payload.Brackets {
		brackets = append(brackets, payroll.TaxBracket{Position: i, Min: b.Min, Max: b.Max, Rate: b.Rate})
	}
	table, err := h.Service.SetTaxBrackets(r.Context(), brackets, actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "brackets_update_failed", reqID)
		return
	}
	api.Success(w, table, reqID)
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 24, 120)
	total, err := h.Service.CountPeriods(r.Context())
	if err != nil {
		shared.WriteError(w, err, "period_list_failed", reqID)
		return
	}
	periods, err := h.Service.ListPeriods(r.Context(), page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, err, "period_list_failed", reqID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, api.Page{Items: periods, Total: total, Limit: page.Limit, Offset: page.Offset}, reqID)
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload periodPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	period, err := h.Service.CreatePeriod(r.Context(), payload.Year, payload.Month, actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "period_create_failed", reqID)
		return
	}
	api.Created(w, period, reqID)
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Service.GetPeriod(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		shared.WriteError(w, err, "period_get_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		shared.WriteError(w, err, "period_summary_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertInput(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload inputPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	input, err := h.Service.UpsertInput(r.Context(), chi.URLParam(r, "periodID"), chi.URLParam(r, "employeeID"), payload.Bonus, payload.Arrears, payload.Note, actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "input_update_failed", reqID)
		return
	}
	api.Success(w, input, reqID)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	period, err := h.Service.Calculate(r.Context(), chi.URLParam(r, "periodID"), actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "payroll_calculate_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	period, err := h.Service.Validate(r.Context(), chi.URLParam(r, "periodID"), actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "payroll_validate_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload lockPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	period, err := h.Service.Lock(r.Context(), chi.URLParam(r, "periodID"), payload.Confirm, actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "payroll_lock_failed", reqID)
		return
	}
	api.Success(w, period, reqID)
}

func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.Service.ListPayslips(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		shared.WriteError(w, err, "payslip_list_failed", middleware.GetRequestID(r.Context()))
		return
	}
	if slips == nil {
		slips = []payroll.Payslip{}
	}
	api.Success(w, slips, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPayslip(w http.ResponseWriter, r *http.Request) {
	slip, err := h.Service.GetPayslip(r.Context(), chi.URLParam(r, "periodID"), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, err, "payslip_get_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, slip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayslipPDF(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	employeeID := chi.URLParam(r, "employeeID")
	body, err := h.Service.PayslipPDF(r.Context(), periodID, employeeID)
	if err != nil {
		shared.WriteError(w, err, "payslip_pdf_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Attachment(w, "application/pdf", fmt.Sprintf("payslip-%s-%s.pdf", periodID, employeeID), body)
}

func (h *Handler) handleRegisterXLSX(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	body, err := h.Service.RegisterXLSX(r.Context(), periodID)
	if err != nil {
		shared.WriteError(w, err, "register_export_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "register-"+periodID+".xlsx", body)
}

func (h *Handler) handleRegisterCSV(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	var buf bytes.Buffer
	if err := h.Service.WriteRegisterCSV(r.Context(), &buf, periodID); err != nil {
		shared.WriteError(w, err, "register_export_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Attachment(w, "text/csv", "register-"+periodID+".csv", buf.Bytes())
}

func (h *Handler) handleJournalCSV(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	var buf bytes.Buffer
	if err := h.Service.WriteJournalCSV(r.Context(), &buf, periodID); err != nil {
		shared.WriteError(w, err, "journal_export_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Attachment(w, "text/csv", "journal-"+periodID+".csv", buf.Bytes())
}

func (h *Handler) handleListDeductions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	query := r.URL.Query()
	filter := payroll.DeductionFilter{
		EmployeeID: query.Get("employeeId"),
		Status:     payroll.DeductionStatus(query.Get("status")),
		Kind:       payroll.DeductionKind(query.Get("kind")),
	}
	total, err := h.Service.CountDeductions(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err, "deduction_list_failed", reqID)
		return
	}
	items, err := h.Service.ListDeductions(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, err, "deduction_list_failed", reqID)
		return
	}
	if items == nil {
		items = []payroll.Deduction{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, api.Page{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, reqID)
}

func (h *Handler) handleCreateDeduction(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload deductionPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "is required")
	v.Required("kind", payload.Kind, "is required")
	v.Required("scheduleType", payload.ScheduleType, "is required")
	v.Enum("kind", payload.Kind, deductionKinds, "must be DISCIPLINARY, ADVANCE, DEBT or OTHER")
	v.Enum("scheduleType", payload.ScheduleType, scheduleTypes, "must be ONE_TIME, INSTALLMENTS or RECURRING")
	if v.Reject(w, reqID) {
		return
	}
	d, err := h.Service.CreateDeduction(r.Context(), payroll.NewDeduction{
		EmployeeID:       payload.EmployeeID,
		Kind:             payroll.DeductionKind(strings.ToUpper(strings.TrimSpace(payload.Kind))),
		Reason:           payload.Reason,
		ScheduleType:     payroll.ScheduleType(strings.ToUpper(strings.TrimSpace(payload.ScheduleType))),
		TotalAmount:      payload.TotalAmount,
		InstallmentCount: payload.InstallmentCount,
		RecurringAmount:  payload.RecurringAmount,
		StartYear:        payload.StartYear,
		StartMonth:       payload.StartMonth,
	}, actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "deduction_create_failed", reqID)
		return
	}
	api.Created(w, d, reqID)
}

func (h *Handler) handleGetDeduction(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.GetDeduction(r.Context(), chi.URLParam(r, "deductionID"))
	if err != nil {
		shared.WriteError(w, err, "deduction_get_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, d, middleware.GetRequestID(r.Context()))
}

// handleRepairLedger rebuilds deduction balances from their applications, the same
// pass that runs at startup.
func (h *Handler) handleRepairLedger(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.RepairLedger(r.Context(), actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "deduction_repair_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeductionHistory(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Service.DeductionHistory(r.Context(), chi.URLParam(r, "deductionID"))
	if err != nil {
		shared.WriteError(w, err, "deduction_history_failed", middleware.GetRequestID(r.Context()))
		return
	}
	if apps == nil {
		apps = []payroll.DeductionApplication{}
	}
	api.Success(w, apps, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSuspendDeduction(w http.ResponseWriter, r *http.Request) {
	h.changeDeduction(w, r, h.Service.SuspendDeduction)
}

func (h *Handler) handleResumeDeduction(w http.ResponseWriter, r *http.Request) {
	h.changeDeduction(w, r, h.Service.ResumeDeduction)
}

func (h *Handler) handleCancelDeduction(w http.ResponseWriter, r *http.Request) {
	h.changeDeduction(w, r, h.Service.CancelDeduction)
}

func (h *Handler) changeDeduction(w http.ResponseWriter, r *http.Request, change func(context.Context, string, payroll.Actor) (payroll.Deduction, error)) {
	d, err := change(r.Context(), chi.URLParam(r, "deductionID"), actorFrom(r))
	if err != nil {
		shared.WriteError(w, err, "deduction_update_failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, d, middleware.GetRequestID(r.Context()))
}
