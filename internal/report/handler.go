package report

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"questgen/internal/app/apiresp"
	"questgen/internal/paper"

	"github.com/go-chi/chi/v5"
)

type reportService interface {
	SummaryByDraft(ctx context.Context, draftID int64) (*DraftSummary, error)
}

type Handler struct {
	svc reportService
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid draft id")
		return
	}

	sum, err := h.svc.SummaryByDraft(r.Context(), id)
	if err != nil {
		if errors.Is(err, paper.ErrDraftNotFound) {
			apiresp.WriteErrorCode(w, r, http.StatusNotFound, apiresp.CodeDraftNotFound, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, sum)
}
