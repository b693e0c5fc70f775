package handler

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"property-ledger-backend/internal/services/matching"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type MatchingHandler struct {
	service *matching.Service
	log     zerolog.Logger
}

func NewMatchingHandler(s *matching.Service, log zerolog.Logger) *MatchingHandler {
	return &MatchingHandler{service: s, log: log}
}

// Import accepts a bank statement as a multipart CSV upload, reconciles the
// batch synchronously, and returns the batch with its classified matches.
func (h *MatchingHandler) Import(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	rows, err := h.parseCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, matches, err := h.service.ImportBatch(c.Request.Context(), orgID, header.Filename, rows)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch":   batch,
		"matches": matches,
	})
}

// parseCSV reads the statement with header-driven column resolution. Column
// names are matched case-insensitively; date, amount and description are
// required, reference is optional. Malformed rows are skipped and logged.
func (h *MatchingHandler) parseCSV(r io.Reader) ([]matching.BankTransactionInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return nil, &csvError{"cannot read CSV header"}
	}

	cols := map[string]int{}
	for i, name := range headerRow {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateIdx, ok := findColumn(cols, "date", "transaction_date", "transaction date")
	if !ok {
		return nil, &csvError{"missing date column"}
	}
	amountIdx, ok := findColumn(cols, "amount")
	if !ok {
		return nil, &csvError{"missing amount column"}
	}
	descIdx, ok := findColumn(cols, "description", "memo", "details")
	if !ok {
		return nil, &csvError{"missing description column"}
	}
	refIdx, hasRef := findColumn(cols, "reference", "reference_number", "ref")

	var rows []matching.BankTransactionInput
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			h.log.Warn().Int("row", rowNum).Err(err).Msg("skipping malformed CSV row")
			continue
		}
		if len(record) == 0 || strings.Join(record, "") == "" {
			continue
		}
		maxIdx := dateIdx
		if amountIdx > maxIdx {
			maxIdx = amountIdx
		}
		if descIdx > maxIdx {
			maxIdx = descIdx
		}
		if len(record) <= maxIdx {
			h.log.Warn().Int("row", rowNum).Msg("skipping row with insufficient columns")
			continue
		}

		date, err := parseDate(strings.TrimSpace(record[dateIdx]))
		if err != nil {
			h.log.Warn().Int("row", rowNum).Str("date", record[dateIdx]).Msg("skipping row with invalid date")
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(record[amountIdx]), 64)
		if err != nil {
			h.log.Warn().Int("row", rowNum).Str("amount", record[amountIdx]).Msg("skipping row with invalid amount")
			continue
		}

		row := matching.BankTransactionInput{
			Date:        date,
			Amount:      amount,
			Description: strings.TrimSpace(record[descIdx]),
		}
		if hasRef && len(record) > refIdx {
			row.Reference = strings.TrimSpace(record[refIdx])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (h *MatchingHandler) GetBatch(c *gin.Context) {
	batchID, ok := parseIDParam(c, "batchId")
	if !ok {
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batch": batch,
		"stats": gin.H{
			"total":     batch.TotalTransactions,
			"matched":   batch.MatchedCount,
			"potential": batch.PotentialCount,
			"unmatched": batch.UnmatchedCount,
		},
	})
}

func (h *MatchingHandler) ListMatches(c *gin.Context) {
	batchID, ok := parseIDParam(c, "batchId")
	if !ok {
		return
	}
	status := c.Query("status")
	cursor := c.Query("cursor")
	limit := 50

	items, nextCursor, hasMore, err := h.service.ListMatches(c.Request.Context(), batchID, status, cursor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

func (h *MatchingHandler) Rerun(c *gin.Context) {
	batchID, ok := parseIDParam(c, "batchId")
	if !ok {
		return
	}
	matches, err := h.service.RerunBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *MatchingHandler) ResolveMatch(c *gin.Context) {
	matchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var payload struct {
		SystemTransactionID *string `json:"system_transaction_id"`
		PerformedBy         string  `json:"performed_by"`
		Reason              string  `json:"reason"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var sysTxID *uuid.UUID
	if payload.SystemTransactionID != nil {
		id, err := uuid.Parse(*payload.SystemTransactionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid system transaction ID"})
			return
		}
		sysTxID = &id
	}

	match, err := h.service.ResolveMatch(c.Request.Context(), matchID, sysTxID, payload.PerformedBy, payload.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match resolved", "match": match})
}

type csvError struct {
	msg string
}

func (e *csvError) Error() string { return e.msg }

func findColumn(cols map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := cols[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		d, err = time.Parse("02-01-2006", s)
	}
	return d, err
}
