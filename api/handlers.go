/*
handlers.go - HTTP API handlers for the cash book

PURPOSE:
  Exposes stores, staff, salary ledger and daily sales over REST. Handles
  HTTP request/response and JSON, and delegates to records.Book.

STORE SCOPE:
  Store-scoped routes are served twice: under /api/stores/{storeID}/...
  for an explicit store, and directly under /api/... for the active
  store, which is read at the start of each such request.

ENDPOINTS:
  Stores:
    GET    /api/stores                  List stores
    POST   /api/stores                  Create store
    GET    /api/stores/active           Active store
    PUT    /api/stores/active           Select active store
    PUT    /api/stores/{storeID}        Update store
    DELETE /api/stores/{storeID}        Delete store

  Per store (prefix /api/stores/{storeID} or /api):
    GET/POST   /employees, GET/PUT/DELETE /employees/{id}
    GET        /employees/{id}/summary?month=
    GET/POST   /advances, DELETE /advances/{id}
    GET        /salaries, POST /salaries/close, DELETE /salaries/{id}
    GET/POST   /sales?from&to, GET/DELETE /sales/{date}
    GET        /export/{entity}, GET /export/sales.xlsx
    POST       /import/{entity}
    GET        /summary?from&to&format=json|md|html

  Stateless:
    POST   /api/derive                  Derive a sales day without saving
    GET    /api/templates/{entity}      Sample import file

  Admin:
    POST   /api/admin/snapshots         Export every partition now
    GET    /api/admin/snapshots         Recent snapshot runs

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, unknown entity
  - 404: Store, employee, day or statement not found
  - 409: No active store, employee still referenced
  - 422: Rejected by validation
  - 500: Storage failures

SECURITY NOTE:
  No authentication. The API is meant for a till on a trusted network.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/report"
	"github.com/warp/cashbook/till"
)

// maxUpload bounds CSV import bodies.
const maxUpload = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Book *records.Book
	Log  logrus.FieldLogger

	// Scheduler is optional; admin snapshot routes answer 409 without it.
	Scheduler *SnapshotScheduler
}

// NewHandler creates a handler over book.
func NewHandler(book *records.Book, log logrus.FieldLogger) *Handler {
	return &Handler{Book: book, Log: log}
}

// store resolves the request's store: the {storeID} URL parameter when
// present, the active store otherwise. It writes the error response and
// returns false when no store applies.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	id, err := h.Book.ResolveStore(ctx, chi.URLParam(r, "storeID"))
	if err != nil {
		h.writeDomainError(w, "No store selected", err)
		return "", false
	}
	if _, err := h.Book.Stores.Get(ctx, id); err != nil {
		h.writeDomainError(w, "Store not found", err)
		return "", false
	}
	return id, true
}

// =============================================================================
// STORE HANDLERS
// =============================================================================

// ListStores returns every store.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Book.Stores.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list stores", err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

// CreateStore registers a store.
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var s till.Store
	if !decodeBody(w, r, &s) {
		return
	}
	saved, err := h.Book.Stores.Upsert(r.Context(), s)
	if err != nil {
		h.writeDomainError(w, "Failed to create store", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// UpdateStore replaces a store.
func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "storeID")
	if _, err := h.Book.Stores.Get(r.Context(), id); err != nil {
		h.writeDomainError(w, "Store not found", err)
		return
	}
	var s till.Store
	if !decodeBody(w, r, &s) {
		return
	}
	s.ID = id
	saved, err := h.Book.Stores.Upsert(r.Context(), s)
	if err != nil {
		h.writeDomainError(w, "Failed to update store", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteStore removes a store from the registry.
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := h.Book.Stores.Delete(r.Context(), chi.URLParam(r, "storeID")); err != nil {
		h.writeDomainError(w, "Failed to delete store", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActiveStore returns the selected store.
func (h *Handler) GetActiveStore(w http.ResponseWriter, r *http.Request) {
	s, err := h.Book.Context.ActiveStore(r.Context())
	if err != nil {
		h.writeDomainError(w, "No active store", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SetActiveStore selects the store that unscoped routes operate on.
func (h *Handler) SetActiveStore(w http.ResponseWriter, r *http.Request) {
	var req SetActiveStoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Book.Context.SetActiveStore(r.Context(), req.ID); err != nil {
		h.writeDomainError(w, "Failed to select store", err)
		return
	}
	h.GetActiveStore(w, r)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the store's employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	employees, err := h.Book.Employees.List(r.Context(), storeID)
	if err != nil {
		h.writeDomainError(w, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

// GetEmployee returns one employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	e, err := h.Book.Employees.Get(r.Context(), storeID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// SaveEmployee creates an employee, or replaces the one named in the URL.
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	var e till.Employee
	if !decodeBody(w, r, &e) {
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		if _, err := h.Book.Employees.Get(r.Context(), storeID, id); err != nil {
			h.writeDomainError(w, "Employee not found", err)
			return
		}
		e.ID = id
		status = http.StatusOK
	}
	saved, err := h.Book.Employees.Upsert(r.Context(), storeID, e)
	if err != nil {
		h.writeDomainError(w, "Failed to save employee", err)
		return
	}
	writeJSON(w, status, saved)
}

// DeleteEmployee removes an employee who has no advances or statements.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := h.Book.Employees.Delete(r.Context(), storeID, chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEmployeeSummary totals an employee's statements, optionally for one month.
func (h *Handler) GetEmployeeSummary(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Book.Employees.Get(r.Context(), storeID, id); err != nil {
		h.writeDomainError(w, "Employee not found", err)
		return
	}
	sum, err := h.Book.Salaries.Summary(r.Context(), storeID, id, r.URL.Query().Get("month"))
	if err != nil {
		h.writeDomainError(w, "Failed to summarise employee", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// SALARY HANDLERS
// =============================================================================

// ListAdvances returns the store's advances.
func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	advances, err := h.Book.Salaries.ListAdvances(r.Context(), storeID)
	if err != nil {
		h.writeDomainError(w, "Failed to list advances", err)
		return
	}
	writeJSON(w, http.StatusOK, advances)
}

// SaveAdvance records an advance. The type defaults to bank.
func (h *Handler) SaveAdvance(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	var a till.SalaryAdvance
	if !decodeBody(w, r, &a) {
		return
	}
	if a.EmployeeID != "" {
		if _, err := h.Book.Employees.Get(r.Context(), storeID, a.EmployeeID); err != nil {
			h.writeDomainError(w, "Employee not found", err)
			return
		}
	}
	saved, err := h.Book.Salaries.UpsertAdvance(r.Context(), storeID, a)
	if err != nil {
		h.writeDomainError(w, "Failed to save advance", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteAdvance removes an advance.
func (h *Handler) DeleteAdvance(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := h.Book.Salaries.DeleteAdvance(r.Context(), storeID, chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete advance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSalaries returns the store's monthly statements.
func (h *Handler) ListSalaries(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	rows, err := h.Book.Salaries.ListSalaries(r.Context(), storeID)
	if err != nil {
		h.writeDomainError(w, "Failed to list salaries", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// CloseMonth writes the month's statements for the listed employees.
func (h *Handler) CloseMonth(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	var req CloseMonthRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Salaries) == 0 {
		writeError(w, http.StatusBadRequest, "No salaries given", nil)
		return
	}
	for id := range req.Salaries {
		if _, err := h.Book.Employees.Get(r.Context(), storeID, id); err != nil {
			h.writeDomainError(w, "Employee not found", err)
			return
		}
	}
	rows, err := h.Book.Salaries.CloseMonth(r.Context(), storeID, req.Month, req.Salaries)
	if err != nil {
		h.writeDomainError(w, "Failed to close month", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// DeleteSalary removes a statement.
func (h *Handler) DeleteSalary(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := h.Book.Salaries.DeleteSalary(r.Context(), storeID, chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete salary", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

// ListSales returns the store's days, optionally within ?from=&to=.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	days, err := h.Book.Sales.Range(r.Context(), storeID, q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, "Failed to list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesDTOs(h.Book.Engine(), days))
}

// GetSales returns one day.
func (h *Handler) GetSales(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	day, err := h.Book.Sales.Get(r.Context(), storeID, chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, "Sales record not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesDTO(h.Book.Engine(), day))
}

// SaveSales stores a day, replacing any record of the same date.
func (h *Handler) SaveSales(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	var rec till.SalesRecord
	if !decodeBody(w, r, &rec) {
		return
	}
	saved, err := h.Book.Sales.Upsert(r.Context(), storeID, rec)
	if err != nil {
		h.writeDomainError(w, "Failed to save sales record", err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesDTO(h.Book.Engine(), saved))
}

// DeleteSales removes a day.
func (h *Handler) DeleteSales(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := h.Book.Sales.Delete(r.Context(), storeID, chi.URLParam(r, "date")); err != nil {
		h.writeDomainError(w, "Failed to delete sales record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Derive computes a day's figures without saving it.
func (h *Handler) Derive(w http.ResponseWriter, r *http.Request) {
	var rec till.SalesRecord
	if !decodeBody(w, r, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, toSalesDTO(h.Book.Engine(), h.Book.Engine().Derive(rec)))
}

// =============================================================================
// IMPORT / EXPORT HANDLERS
// =============================================================================

// Import merges an uploaded CSV into the store. The body is either the raw
// CSV or a multipart form with a "file" field.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	entity := chi.URLParam(r, "entity")

	body, err := uploadBody(w, r)
	if err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	defer body.Close()

	res, err := h.Book.Import(r.Context(), storeID, entity, body)
	if tooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
		return
	}
	if err != nil {
		h.writeDomainError(w, "Import failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toImportDTO(res))
}

// tooLarge reports whether err comes from reading past maxUpload.
func tooLarge(err error) bool {
	var mbErr *http.MaxBytesError
	return errors.As(err, &mbErr)
}

func uploadBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Export downloads a partition as CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	entity := chi.URLParam(r, "entity")
	data, err := h.Book.Export(r.Context(), storeID, entity)
	if err != nil {
		h.writeDomainError(w, "Export failed", err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", h.Book.ExportFilename(entity), data)
}

// ExportWorkbook downloads the store's sales as an .xlsx workbook.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	days, err := h.Book.Sales.Range(r.Context(), storeID, q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, "Export failed", err)
		return
	}
	engine := h.Book.Engine()
	var buf bytes.Buffer
	if err := report.WriteSalesWorkbook(&buf, engine, report.Summarize(engine, q.Get("from"), q.Get("to"), days), days); err != nil {
		h.writeDomainError(w, "Export failed", err)
		return
	}
	name := strings.TrimSuffix(h.Book.ExportFilename(csvcodec.EntitySales), ".csv") + ".xlsx"
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", name, buf.Bytes())
}

// GetTemplate downloads the sample import file of an entity.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	tmpl, ok := csvcodec.Template(entity)
	if !ok {
		writeError(w, http.StatusNotFound, "No template for entity", fmt.Errorf("%s", entity))
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", entity+"_template.csv", []byte(tmpl))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetSummary returns dashboard totals over ?from=&to=, as JSON, Markdown
// (format=md) or HTML (format=html).
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.store(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	days, err := h.Book.Sales.Range(r.Context(), storeID, from, to)
	if err != nil {
		h.writeDomainError(w, "Failed to summarise sales", err)
		return
	}
	engine := h.Book.Engine()
	sum := report.Summarize(engine, from, to, days)

	format := q.Get("format")
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, toSummaryDTO(sum))
		return
	}

	title := storeID
	if s, err := h.Book.Stores.Get(r.Context(), storeID); err == nil {
		title = s.Name
	}
	md := report.Markdown(engine, title, sum, days)
	switch format {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, md)
	case "html":
		html, err := report.HTML(md)
		if err != nil {
			h.writeDomainError(w, "Failed to render summary", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, html)
	default:
		writeError(w, http.StatusBadRequest, "Unknown format", fmt.Errorf("%q", format))
	}
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerSnapshots exports every partition now.
func (h *Handler) TriggerSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusConflict, "Snapshots are not configured", nil)
		return
	}
	run := h.Scheduler.RunOnce(r.Context())
	status := http.StatusOK
	if run.Error != "" {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, toExportRunDTO(run.StartedAt, run.FinishedAt, run.Files, run.Error))
}

// ListSnapshotRuns returns recent snapshot runs.
func (h *Handler) ListSnapshotRuns(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil || h.Scheduler.Runs == nil {
		writeJSON(w, http.StatusOK, []ExportRunDTO{})
		return
	}
	runs, err := h.Scheduler.Runs.ExportRuns(r.Context(), 50)
	if err != nil {
		h.writeDomainError(w, "Failed to list snapshot runs", err)
		return
	}
	dtos := make([]ExportRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toExportRunDTO(run.StartedAt, run.FinishedAt, run.Files, run.Error)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toExportRunDTO(started, finished time.Time, files int, errText string) ExportRunDTO {
	return ExportRunDTO{
		StartedAt:  started.UTC().Format(time.RFC3339),
		FinishedAt: finished.UTC().Format(time.RFC3339),
		Files:      files,
		Error:      errText,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps records and till errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var vErr *till.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: message, Details: vErr.Error(), Field: vErr.Field})
	case errors.Is(err, till.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, records.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, records.ErrNoActiveStore), errors.Is(err, records.ErrReferentialIntegrity):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, records.ErrUnknownEntity):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		if h.Log != nil {
			h.Log.WithError(err).Error(message)
		}
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
