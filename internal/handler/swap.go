package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/slotswap/slotswap-go/internal/middleware"
	"github.com/slotswap/slotswap-go/internal/model"
	"github.com/slotswap/slotswap-go/internal/service"
)

// SwapHandler handles HTTP requests for swap negotiations.
type SwapHandler struct {
	service *service.SwapService
}

// NewSwapHandler creates a new SwapHandler.
func NewSwapHandler(svc *service.SwapService) *SwapHandler {
	return &SwapHandler{service: svc}
}

// HandleCreate handles POST /api/v1/swaps requests.
func (h *SwapHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	var req model.CreateSwapRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleRespond handles POST /api/v1/swaps/{request_id}/respond requests.
func (h *SwapHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	requestID, ok := requestIDParam(w, r)
	if !ok {
		return
	}

	var req model.SwapDecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Accept == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(codeValidation, "accept is required"))
		return
	}

	resp, err := h.service.Respond(r.Context(), requestID, userID, *req.Accept)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleCancel handles POST /api/v1/swaps/{request_id}/cancel requests.
func (h *SwapHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	requestID, ok := requestIDParam(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Cancel(r.Context(), requestID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleIncoming handles GET /api/v1/swaps/incoming requests.
func (h *SwapHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	requests, err := h.service.ListIncoming(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

// HandleOutgoing handles GET /api/v1/swaps/outgoing requests.
func (h *SwapHandler) HandleOutgoing(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	requests, err := h.service.ListOutgoing(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

func requestIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "request_id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse(codeValidation, "invalid request id"))
		return 0, false
	}
	return id, true
}
