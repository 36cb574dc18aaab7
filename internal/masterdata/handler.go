package masterdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"questgen/internal/app/apiresp"
)

type masterdataService interface {
	CreateScheme(ctx context.Context, in CreateSchemeInput) (*Scheme, error)
	ListSchemes(ctx context.Context) ([]Scheme, error)
	CreateSubject(ctx context.Context, in CreateSubjectInput) (*Subject, error)
	ListSubjects(ctx context.Context, schemeID int64) ([]Subject, error)
}

type Handler struct {
	svc masterdataService
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  string      `json:"code,omitempty"`
}

type createSchemeRequest struct {
	Name        string `json:"name"`
	Department  string `json:"department"`
	Description string `json:"description"`
}

type createSubjectRequest struct {
	SchemeID int64  `json:"scheme_id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Credits  *int   `json:"credits"`
	Semester *int   `json:"semester"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	var req createSchemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	scheme, err := h.svc.CreateScheme(r.Context(), CreateSchemeInput{
		Name:        req.Name,
		Department:  req.Department,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}

	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: scheme})
}

func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSchemes(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	subject, err := h.svc.CreateSubject(r.Context(), CreateSubjectInput{
		SchemeID: req.SchemeID,
		Name:     req.Name,
		Code:     req.Code,
		Credits:  req.Credits,
		Semester: req.Semester,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		case errors.Is(err, ErrSchemeNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error(), Code: apiresp.CodeSchemeNotFound})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: subject})
}

func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	var schemeID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("scheme_id")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "scheme_id must be positive"})
			return
		}
		schemeID = v
	}

	items, err := h.svc.ListSubjects(r.Context(), schemeID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteErrorCode(w, r, code, payload.Code, payload.Error)
}
