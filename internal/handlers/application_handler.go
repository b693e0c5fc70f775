package handler

import (
	"net/http"
	"time"

	"property-ledger-backend/internal/services/application"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ApplicationHandler struct {
	service *application.Service
}

func NewApplicationHandler(s *application.Service) *ApplicationHandler {
	return &ApplicationHandler{service: s}
}

func (h *ApplicationHandler) Apply(c *gin.Context) {
	var payload struct {
		PaymentID string  `json:"payment_id"`
		InvoiceID string  `json:"invoice_id"`
		Amount    float64 `json:"amount"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	paymentID, err := uuid.Parse(payload.PaymentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	app, err := h.service.Apply(c.Request.Context(), paymentID, invoiceID, payload.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment applied", "application": app})
}

func (h *ApplicationHandler) AutoApply(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}

	result, err := h.service.AutoApply(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ApplicationHandler) Reverse(c *gin.Context) {
	appID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	_ = c.BindJSON(&payload)

	result, err := h.service.Reverse(c.Request.Context(), appID, payload.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "application reversed",
		"invoice": result.Invoice,
		"payment": result.Payment,
	})
}

func (h *ApplicationHandler) RecordDeposit(c *gin.Context) {
	var payload struct {
		PaymentIDs    []string `json:"payment_ids"`
		BankAccountID string   `json:"bank_account_id"`
		DepositDate   string   `json:"deposit_date"` // yyyy-mm-dd
		DepositAmount float64  `json:"deposit_amount"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	bankAccountID, err := uuid.Parse(payload.BankAccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bank account ID"})
		return
	}
	depositDate, err := time.Parse("2006-01-02", payload.DepositDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deposit date, expected yyyy-mm-dd"})
		return
	}
	paymentIDs := make([]uuid.UUID, 0, len(payload.PaymentIDs))
	for _, raw := range payload.PaymentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID: " + raw})
			return
		}
		paymentIDs = append(paymentIDs, id)
	}

	payments, err := h.service.RecordDeposit(c.Request.Context(), paymentIDs, bankAccountID, depositDate, payload.DepositAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deposit recorded", "payments": payments})
}
