package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gastos/internal/core"
	"gastos/internal/insights"
	"gastos/internal/log"
	"gastos/internal/report"
	"gastos/internal/services"
)

type statusBody struct {
	Status string `json:"status"`
}

type insightsResponse struct {
	Summary  report.Summary     `json:"summary"`
	Insights []insights.Insight `json:"insights"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(statusBody{Status: "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
			NewJSONResponse().Status(http.StatusServiceUnavailable).Body(statusBody{Status: "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(statusBody{Status: "ready"}).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(s.svc.ListCategories()).Write(w)
}

func (s *Server) handleRegisterCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "register_category")
		return
	}
	if err := s.svc.RegisterCategory(r.Context(), sanitizeInput(req.Name)); err != nil {
		writeError(w, r, err, "register_category")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.svc.ListCategories()).Write(w)
}

// handleListEntries returns the entries matching the query filter, newest
// first. Without a mode every entry is returned.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, report.ModeAllTime, s.now())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	entries, err := s.svc.ListEntries(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	out := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	sourceID := mux.Vars(r)["source_id"]
	group, err := s.svc.GetGroup(r.Context(), sourceID)
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	NewJSONResponse().Body(services.Submission{SourceID: sourceID, Entries: group}).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.readIntent(w, r, log.OpSubmit)
	if !ok {
		return
	}
	sub, err := s.svc.SubmitExpense(r.Context(), intent)
	if err != nil {
		writeError(w, r, err, log.OpSubmit)
		return
	}
	logSubmission(r, "Expense submitted", sub, intent)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+sub.SourceID).
		Body(sub).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.readIntent(w, r, log.OpUpdate)
	if !ok {
		return
	}
	sub, err := s.svc.UpdateExpense(r.Context(), mux.Vars(r)["source_id"], intent)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	logSubmission(r, "Expense replaced", sub, intent)
	NewJSONResponse().Body(sub).Write(w)
}

// handleDeleteExpense accepts an entry id or a source id. Deleting any entry
// of an installment plan removes the whole plan.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	del, err := s.svc.DeleteExpense(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		log.FieldSourceID, del.SourceID, "entries", del.Entries)
	NewJSONResponse().Body(del).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(agg.Summary()).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(insightsResponse{
		Summary:  agg.Summary(),
		Insights: s.svc.GetInsights(agg),
	}).Write(w)
}

// handleResync asks the mirror worker to rebuild from the full ledger.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Resync(r.Context()); err != nil {
		if errors.Is(err, services.ErrNoPublisher) {
			ErrorResponse(http.StatusServiceUnavailable, "change events are disabled", "").Write(w)
			return
		}
		writeError(w, r, err, log.OpResync)
		return
	}
	NewJSONResponse().Status(http.StatusAccepted).Body(statusBody{Status: "queued"}).Write(w)
}

// aggregate defaults to the current month.
func (s *Server) aggregate(w http.ResponseWriter, r *http.Request) (report.Aggregate, bool) {
	f, err := parseFilter(r, report.ModeMonth, s.now())
	if err != nil {
		writeError(w, r, err, log.OpSummary)
		return report.Aggregate{}, false
	}
	agg, err := s.svc.GetAggregate(r.Context(), f)
	if err != nil {
		writeError(w, r, err, log.OpSummary)
		return report.Aggregate{}, false
	}
	return agg, true
}

func (s *Server) readIntent(w http.ResponseWriter, r *http.Request, operation string) (core.ExpenseIntent, bool) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, operation)
		return core.ExpenseIntent{}, false
	}
	intent, err := req.intent(s.now())
	if err != nil {
		writeError(w, r, err, operation)
		return core.ExpenseIntent{}, false
	}
	return intent, true
}

func logSubmission(r *http.Request, msg string, sub services.Submission, intent core.ExpenseIntent) {
	fields := log.NewFields().
		WithExpense(sub.SourceID, intent.Amount, len(sub.Entries), intent.Category, intent.Subcategory)
	log.FromContext(r.Context()).InfoContext(r.Context(), msg, fields.ToSlice()...)
}
