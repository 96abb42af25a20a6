package api

import (
	"bytes"
	"net/http"
	"strconv"

	"finance_tracker/internal/identity"
	"finance_tracker/internal/ledger"
)

type transactionList struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
}

type settingsRequest struct {
	Currency string `json:"currency"`
}

func forceRefresh(r *http.Request) bool {
	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return force
}

func (h *handler) handleListTransactions(w http.ResponseWriter, r *http.Request, user identity.User) {
	txs, err := h.tracker.Transactions(r.Context(), user.ID, forceRefresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, transactionList{Transactions: txs, Count: len(txs)})
}

func (h *handler) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user identity.User) {
	var in ledger.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.tracker.AddTransaction(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, tx)
}

func (h *handler) handleGetTransaction(w http.ResponseWriter, r *http.Request, user identity.User) {
	tx, err := h.tracker.Transaction(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tx)
}

func (h *handler) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, user identity.User) {
	var in ledger.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.tracker.UpdateTransaction(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tx)
}

func (h *handler) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, user identity.User) {
	if err := h.tracker.DeleteTransaction(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleRefresh(w http.ResponseWriter, r *http.Request, user identity.User) {
	h.tracker.Refresh(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleDashboard(w http.ResponseWriter, r *http.Request, user identity.User) {
	dashboard, err := h.tracker.Dashboard(r.Context(), user.ID, forceRefresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dashboard)
}

func (h *handler) handleAnalytics(w http.ResponseWriter, r *http.Request, user identity.User) {
	report, err := h.tracker.Analytics(r.Context(), user.ID, forceRefresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (h *handler) handleListCategories(w http.ResponseWriter, r *http.Request, user identity.User) {
	groups, err := h.tracker.Categories(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, groups)
}

func (h *handler) handleCreateCategory(w http.ResponseWriter, r *http.Request, user identity.User) {
	var in ledger.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	category, err := h.tracker.CreateCategory(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, category)
}

func (h *handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request, user identity.User) {
	var in ledger.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	category, err := h.tracker.UpdateCategory(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, category)
}

func (h *handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user identity.User) {
	if err := h.tracker.DeleteCategory(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleGetSettings(w http.ResponseWriter, r *http.Request, user identity.User) {
	settings, err := h.tracker.Settings(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, settings)
}

func (h *handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request, user identity.User) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := h.tracker.UpdateCurrency(r.Context(), user.ID, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, settings)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request, user identity.User) {
	var buf bytes.Buffer
	if err := h.tracker.ExportCSV(r.Context(), user.ID, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) handleDeleteAll(w http.ResponseWriter, r *http.Request, user identity.User) {
	removed, err := h.tracker.DeleteAllData(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"deleted": removed})
}
