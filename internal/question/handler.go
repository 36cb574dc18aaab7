package question

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"questgen/internal/app/apiresp"
	"questgen/internal/bank"

	"github.com/go-chi/chi/v5"
)

type questionService interface {
	ListQuestions(ctx context.Context, f Filter) ([]Record, error)
	UpdateQuestion(ctx context.Context, id int64, in UpdateInput) (*Record, error)
	ListBanks(ctx context.Context, schemeID, subjectID int64) ([]Bank, error)
	ExportQuestionsExcel(ctx context.Context, f Filter) ([]byte, error)
}

type bankService interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	OpenFile(ctx context.Context, id int64) (*Bank, *os.File, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	svc            questionService
	banks          bankService
	maxUploadBytes int64
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  string      `json:"code,omitempty"`
}

type updateQuestionRequest struct {
	Text     *string         `json:"text"`
	Marks    *int            `json:"marks"`
	COTags   *[]string       `json:"co_tags"`
	RBTLevel *string         `json:"rbt_level"`
	Subparts *[]bank.Subpart `json:"subparts"`
	Answer   *string         `json:"answer"`
	Module   *int            `json:"module"`
	Status   *string         `json:"status"`
}

func NewHandler(svc *Service, banks *BankService, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &Handler{svc: svc, banks: banks, maxUploadBytes: int64(maxUploadMB) << 20}
}

func (h *Handler) UploadBank(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return
	}

	schemeID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("scheme_id")), 10, 64)
	subjectID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("subject_id")), 10, 64)
	module, err := strconv.Atoi(strings.TrimSpace(r.FormValue("module")))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "module must be between 1 and 5"})
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "file field is required"})
		return
	}
	defer file.Close()

	res, err := h.banks.Upload(r.Context(), UploadInput{
		SchemeID:  schemeID,
		SubjectID: subjectID,
		Module:    module,
		FileName:  hdr.Filename,
		Body:      file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		case errors.Is(err, ErrSubjectNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error(), Code: apiresp.CodeSubjectNotFound})
		case errors.Is(err, ErrUnreadableDocument):
			writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: "failed to read PDF", Code: apiresp.CodeUnreadableDocument})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: res})
}

func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	schemeID, _ := strconv.ParseInt(strings.TrimSpace(q.Get("scheme_id")), 10, 64)
	subjectID, _ := strconv.ParseInt(strings.TrimSpace(q.Get("subject_id")), 10, 64)

	items, err := h.svc.ListBanks(r.Context(), schemeID, subjectID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) DownloadBank(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid bank id"})
		return
	}

	b, f, err := h.banks.OpenFile(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBankNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error(), Code: apiresp.CodeBankNotFound})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+strings.ReplaceAll(b.FileName, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

func (h *Handler) DeleteBank(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid bank id"})
		return
	}

	if err := h.banks.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrBankNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error(), Code: apiresp.CodeBankNotFound})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}

	items, err := h.svc.ListQuestions(r.Context(), f)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) ExportQuestions(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}

	b, err := h.svc.ExportQuestionsExcel(r.Context(), f)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="questions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid question id"})
		return
	}

	var req updateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	item, err := h.svc.UpdateQuestion(r.Context(), id, UpdateInput{
		Text:     req.Text,
		Marks:    req.Marks,
		COTags:   req.COTags,
		RBTLevel: req.RBTLevel,
		Subparts: req.Subparts,
		Answer:   req.Answer,
		Module:   req.Module,
		Status:   req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		case errors.Is(err, ErrQuestionNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error(), Code: apiresp.CodeQuestionNotFound})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: item})
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter
	var err error
	if f.SchemeID, err = optionalID(q.Get("scheme_id")); err != nil {
		return f, errors.New("scheme_id must be a positive integer")
	}
	if f.SubjectID, err = optionalID(q.Get("subject_id")); err != nil {
		return f, errors.New("subject_id must be a positive integer")
	}
	f.Status = strings.TrimSpace(q.Get("status"))
	f.RBTLevel = strings.TrimSpace(q.Get("rbt"))
	f.CO = strings.TrimSpace(q.Get("co"))

	if raw := strings.TrimSpace(q.Get("module")); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || !bank.ValidModule(m) {
			return f, errors.New("module must be between 1 and 5")
		}
		f.Module = m
	}
	for _, raw := range append(q["modules[]"], q["modules"]...) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			m, err := strconv.Atoi(part)
			if err != nil || !bank.ValidModule(m) {
				return f, errors.New("modules must be between 1 and 5")
			}
			f.Modules = append(f.Modules, m)
		}
	}
	return f, nil
}

func optionalID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.New("invalid id")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteErrorCode(w, r, code, payload.Code, payload.Error)
}
