package handler

import (
	"zkledger/internal/adapter/http/dto"
	"zkledger/internal/adapter/http/middleware"
	"zkledger/internal/core/ports"
	"zkledger/pkg/apperror"
	"zkledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BalanceHandler handles balance endpoints. Every route requires JWT auth;
// reads additionally require the PIN in the request body.
type BalanceHandler struct {
	ledgerSvc ports.LedgerService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(ledgerSvc ports.LedgerService) *BalanceHandler {
	return &BalanceHandler{ledgerSvc: ledgerSvc}
}

// userID extracts the authenticated user set by the JWT middleware.
func userID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Read handles POST /api/v1/balance/read. POST, not GET: the PIN travels in
// the body, never in a URL.
func (h *BalanceHandler) Read(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.BalanceReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	balance, err := h.ledgerSvc.Read(c.Request.Context(), uid, req.PIN)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Balance: balance})
}

// CheckSufficiency handles POST /api/v1/balance/sufficiency. The caller asks
// about their own balance only; the boolean answer leaks nothing to others.
func (h *BalanceHandler) CheckSufficiency(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SufficiencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.CheckSufficiency(c.Request.Context(), uid, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SufficiencyResponse{Sufficient: result.Sufficient})
}

// Deposit handles POST /api/v1/deposits.
func (h *BalanceHandler) Deposit(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	newCommitment, err := h.ledgerSvc.Deposit(c.Request.Context(), uid, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{NewCommitment: newCommitment})
}
