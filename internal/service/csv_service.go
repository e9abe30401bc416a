package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var csvTracer = otel.Tracer("service/csv")

// csvColumns is the export column order. Splits and attachments never
// round-trip through CSV.
var csvColumns = []string{"id", "title", "category", "amount", "date", "type", "context"}

// CSVService converts transactions to and from CSV for backup and for
// importing bank statements with loosely named headers.
type CSVService struct {
	logger *zap.Logger
}

// NewCSVService creates the CSV codec.
func NewCSVService(logger *zap.Logger) *CSVService {
	return &CSVService{logger: logger}
}

// Export renders transactions as CSV, one row per transaction.
func (s *CSVService) Export(ctx context.Context, txs []domain.Transaction) (string, error) {
	_, span := csvTracer.Start(ctx, "CSVService.Export")
	defer span.End()
	span.SetAttributes(attribute.Int("csv.rows", len(txs)))

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvColumns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.ID,
			tx.Title,
			tx.Category,
			strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			tx.Date.Format(time.RFC3339),
			string(tx.Type),
			tx.Context,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush: %w", err)
	}
	return sb.String(), nil
}

// Import parses loosely formatted CSV into transactions. Header matching
// is tolerant: any column containing "title", "merchant" or "description"
// feeds the title, and so on. Rows without a parseable amount are
// skipped. Amounts are stored as magnitudes; a row is income when its
// type column says so or its amount carries an explicit plus sign.
func (s *CSVService) Import(ctx context.Context, data string, now time.Time) ([]domain.Transaction, error) {
	_, span := csvTracer.Start(ctx, "CSVService.Import")
	defer span.End()

	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1 // ragged rows are common in exports
	records, err := r.ReadAll()
	if err != nil {
		return nil, &domain.ErrValidation{Field: "csv", Message: err.Error()}
	}
	if len(records) < 2 {
		return nil, &domain.ErrValidation{Field: "csv", Message: "need a header row and at least one data row"}
	}

	header := records[0]
	titleIdx := findColumn(header, "title", "merchant", "description")
	amountIdx := findColumn(header, "amount")
	dateIdx := findColumn(header, "date")
	catIdx := findColumn(header, "category")
	typeIdx := findColumn(header, "type")

	txs := make([]domain.Transaction, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) < 2 {
			continue
		}
		amountStr := cell(row, amountIdx)
		amount, err := strconv.ParseFloat(strings.TrimPrefix(amountStr, "+"), 64)
		if err != nil {
			continue
		}

		title := cell(row, titleIdx)
		if title == "" {
			title = "Imported Transaction"
		}
		category := cell(row, catIdx)
		if category == "" {
			category = "Other"
		}

		date := now
		if raw := cell(row, dateIdx); raw != "" {
			if parsed, err := parseImportDate(raw); err == nil {
				date = parsed
			}
		}

		txType := domain.TypeExpense
		if strings.Contains(strings.ToLower(cell(row, typeIdx)), "income") || strings.Contains(amountStr, "+") {
			txType = domain.TypeIncome
		}

		txs = append(txs, domain.Transaction{
			ID:       uuid.New().String(),
			Title:    title,
			Category: category,
			Amount:   math.Abs(amount),
			Date:     date,
			Type:     txType,
		})
	}

	span.SetAttributes(attribute.Int("csv.imported", len(txs)))
	return txs, nil
}

// findColumn returns the first header index whose lowercase value
// contains any of the needles, or -1.
func findColumn(header []string, needles ...string) int {
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseImportDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01/02/2006", "02/01/2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %s", v)
}
