package apiresp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()
	WriteOK(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]int{"draft_id": 3})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	env := decode(t, w)
	if !env.OK || env.Error != nil || env.Data == nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestWriteErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		msg      string
		wantCode string
		wantMsg  string
	}{
		{name: "status fallback", status: http.StatusBadRequest, msg: "bad layout", wantCode: CodeInvalidRequest, wantMsg: "bad layout"},
		{name: "explicit code", status: http.StatusNotFound, code: CodeDraftNotFound, msg: "draft not found", wantCode: CodeDraftNotFound, wantMsg: "draft not found"},
		{name: "empty message", status: http.StatusTooManyRequests, wantCode: CodeRateLimited, wantMsg: "Too Many Requests"},
		{name: "upload size", status: http.StatusRequestEntityTooLarge, wantCode: CodeUploadTooLarge, wantMsg: "Request Entity Too Large"},
		{name: "unknown status", status: http.StatusTeapot, wantCode: "error", wantMsg: "I'm a teapot"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorCode(w, httptest.NewRequest(http.MethodGet, "/", nil), tc.status, tc.code, tc.msg)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			env := decode(t, w)
			if env.OK || env.Error == nil {
				t.Fatalf("expected failure envelope, got %+v", env)
			}
			if env.Error.Code != tc.wantCode || env.Error.Message != tc.wantMsg {
				t.Fatalf("got %+v want code=%s msg=%s", env.Error, tc.wantCode, tc.wantMsg)
			}
		})
	}
}
