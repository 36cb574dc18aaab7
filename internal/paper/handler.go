package paper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"questgen/internal/app/apiresp"
	"questgen/internal/question"

	"github.com/go-chi/chi/v5"
)

type paperService interface {
	GeneratePaper(ctx context.Context, in GenerateInput) (*Draft, error)
	GetDraft(ctx context.Context, id int64) (*Draft, error)
	UpdateDraft(ctx context.Context, id int64, in DraftUpdate) (*Draft, error)
	ExportHTML(ctx context.Context, id int64, o ExportOverrides) ([]byte, error)
}

type Handler struct {
	svc paperService
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  string      `json:"code,omitempty"`
}

type orBetween struct {
	AfterQNo int `json:"after_qno"`
}

type generatePaperRequest struct {
	SchemeID          int64             `json:"scheme_id"`
	SubjectID         int64             `json:"subject_id"`
	Title             string            `json:"title"`
	Header            map[string]any    `json:"header"`
	COTable           []COEntry         `json:"co_table"`
	RBTTable          map[string]string `json:"rbt_table"`
	ModulePercentages map[string]int    `json:"module_percentages"`
	Questions         []QuestionLayout  `json:"questions"`
	ORBetween         []orBetween       `json:"or_between"`
	ORAfter           []int             `json:"or_after"`
	Seed              *uint64           `json:"seed"`
}

type generatePaperResponse struct {
	DraftID int64 `json:"draft_id"`
	Paper   Paper `json:"paper"`
}

type updateDraftRequest struct {
	Status   *string            `json:"status"`
	Title    *string            `json:"title"`
	Header   *map[string]any    `json:"header"`
	COTable  *[]COEntry         `json:"co_table"`
	RBTTable *map[string]string `json:"rbt_table"`
	Rows     *[]Row             `json:"rows"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GeneratePaper(w http.ResponseWriter, r *http.Request) {
	var req generatePaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	percentages := make(map[int]int, len(req.ModulePercentages))
	for key, pct := range req.ModulePercentages {
		module, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "module_percentages keys must be module numbers"})
			return
		}
		percentages[module] = pct
	}
	orAfter := append([]int(nil), req.ORAfter...)
	for _, o := range req.ORBetween {
		orAfter = append(orAfter, o.AfterQNo)
	}

	d, err := h.svc.GeneratePaper(r.Context(), GenerateInput{
		SchemeID:  req.SchemeID,
		SubjectID: req.SubjectID,
		Config: GenerationConfig{
			Title:             req.Title,
			Header:            req.Header,
			ModulePercentages: percentages,
			Questions:         req.Questions,
			ORAfter:           orAfter,
		},
		COTable:  req.COTable,
		RBTTable: req.RBTTable,
		Seed:     req.Seed,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, question.ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: generatePaperResponse{
		DraftID: d.ID,
		Paper:   Paper{Title: d.Title, Header: d.Header, Rows: d.Rows},
	}})
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetDraft(r.Context(), id)
	if err != nil {
		writeDraftError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: d})
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var req updateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	d, err := h.svc.UpdateDraft(r.Context(), id, DraftUpdate{
		Status:   req.Status,
		Title:    req.Title,
		Header:   req.Header,
		COTable:  req.COTable,
		RBTTable: req.RBTTable,
		Rows:     req.Rows,
	})
	if err != nil {
		writeDraftError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: d})
}

func (h *Handler) ExportDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var o ExportOverrides
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	b, err := h.svc.ExportHTML(r.Context(), id, o)
	if err != nil {
		writeDraftError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="paper_`+strconv.FormatInt(id, 10)+`.html"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func draftID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid draft id"})
		return 0, false
	}
	return id, true
}

func writeDraftError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrDraftNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error(), Code: apiresp.CodeDraftNotFound})
	default:
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteErrorCode(w, r, code, payload.Code, payload.Error)
}
