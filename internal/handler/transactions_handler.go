package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Transaction import / export
// POST /v1/transactions/import  (text/csv body → transactions)
// POST /v1/transactions/export  (transactions → text/csv)
// ============================================================

// Import tolerates ragged rows and unknown headers; rows it cannot
// interpret are skipped rather than failing the whole upload.
func importTransactionsHandler(svc *service.CSVService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/import")
		defer span.End()

		body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		if len(body) == 0 {
			writeError(w, http.StatusBadRequest, "empty CSV body")
			return
		}

		transactions, err := svc.Import(ctx, string(body), time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"imported":     len(transactions),
			"transactions": transactions,
		})
	}
}

func exportTransactionsHandler(svc *service.CSVService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/export")
		defer span.End()

		var req struct {
			Transactions []domain.Transaction `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		csvData, err := svc.Export(ctx, req.Transactions)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, csvData)
	}
}
