package handler

import (
	"strconv"
	"time"

	"zkledger/internal/adapter/http/dto"
	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/pkg/apperror"
	"zkledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransferHandler handles transfer endpoints.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// Create handles POST /api/v1/transfers.
func (h *TransferHandler) Create(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.transferSvc.Execute(c.Request.Context(), ports.TransferRequest{
		FromUserID:       uid,
		RecipientAddress: req.RecipientAddress,
		Amount:           req.Amount,
		PIN:              req.PIN,
		Description:      req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferDetailResponse{
		TransferResponse: toTransferResponse(result.Transfer),
		ProofID:          result.Proof.ID.String(),
		PublicSignals:    result.Proof.PublicSignals,
	})
}

// List handles GET /api/v1/transfers.
func (h *TransferHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transfers, err := h.transferSvc.History(c.Request.Context(), uid, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, toTransferResponse(&transfers[i]))
	}

	response.OK(c, dto.TransferListResponse{
		Items:  items,
		Limit:  limit,
		Offset: offset,
	})
}

func toTransferResponse(t *domain.Transfer) dto.TransferResponse {
	return dto.TransferResponse{
		ID:          t.ID.String(),
		FromAddress: t.FromAddress,
		ToAddress:   t.ToAddress,
		Amount:      t.Amount,
		Status:      string(t.Status),
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
