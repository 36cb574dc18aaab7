// Package apiresp writes the JSON envelope shared by every questgen API
// handler.
package apiresp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Machine-readable error codes. Handlers pass one of the domain codes when a
// status alone is ambiguous; otherwise the code follows the status.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeUnauthorized       = "unauthorized"
	CodeCSRFFailed         = "csrf_failed"
	CodeRateLimited        = "rate_limited"
	CodeUploadTooLarge     = "upload_too_large"
	CodeInternal           = "internal_error"
	CodeSchemeNotFound     = "scheme_not_found"
	CodeSubjectNotFound    = "subject_not_found"
	CodeBankNotFound       = "bank_not_found"
	CodeQuestionNotFound   = "question_not_found"
	CodeDraftNotFound      = "draft_not_found"
	CodeUnreadableDocument = "unreadable_document"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type Envelope struct {
	OK    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, Envelope{OK: true, Data: data})
}

// WriteError writes a failure whose code is derived from status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteErrorCode(w, r, status, "", msg)
}

// WriteErrorCode writes a failure with an explicit code. An empty code or
// message falls back to the status.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if code == "" {
		code = codeFromStatus(status)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	write(w, r, status, Envelope{Error: &ErrorPayload{Code: code, Message: msg}})
}

func write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	env.Meta.RequestID = middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return CodeUploadTooLarge
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusInternalServerError:
		return CodeInternal
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}
