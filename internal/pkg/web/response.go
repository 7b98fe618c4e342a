// Package web holds the HTTP plumbing shared by every module's handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/logger"
)

const maxBodyBytes = 1 << 20

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError translates err into the error contract. Every handler reports failures through here.
func WriteError(w http.ResponseWriter, r *http.Request, clk clock.Clock, err error) {
	resp := apperr.Translate(r.Context(), err, clk.Now())
	WriteJSON(w, r, resp.Status, resp)
}

// DecodeJSON reads a single JSON object into dst. Malformed bodies and unknown fields are
// structural validation failures.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperr.Validation(map[string]string{bodyField(err): describeDecodeError(err)})
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation(map[string]string{"body": "must contain a single JSON object"})
	}
	return nil
}

func bodyField(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return strings.Trim(field, `"`)
	}
	return "body"
}

func describeDecodeError(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return "must not be empty"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("must be of type %s", typeErr.Type)
	case errors.As(err, &maxErr):
		return fmt.Sprintf("must not be larger than %d bytes", maxErr.Limit)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unknown field"
	default:
		return "malformed JSON"
	}
}

// PathID parses a positive numeric identifier from a path value.
func PathID(r *http.Request, name string) (uint64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}

// WithRouteFallback answers requests the mux cannot route (unknown path, wrong method) with the
// error contract instead of the mux's plain-text replies.
func WithRouteFallback(mux *http.ServeMux, clk clock.Clock) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		capture := &headerCapture{header: http.Header{}, status: http.StatusOK}
		h.ServeHTTP(capture, r)

		err := apperr.RouteNotFound(r.Method, r.URL.Path)
		if capture.status == http.StatusMethodNotAllowed {
			err = apperr.MethodNotAllowed(r.Method)
			if allow := capture.header.Get("Allow"); allow != "" {
				w.Header().Set("Allow", allow)
			}
		} else if capture.status < http.StatusBadRequest {
			// redirects (trailing slash cleanup)
			for k, v := range capture.header {
				w.Header()[k] = v
			}
			w.WriteHeader(capture.status)
			return
		}
		WriteError(w, r, clk, err)
	})
}

type headerCapture struct {
	header http.Header
	status int
}

func (p *headerCapture) Header() http.Header         { return p.header }
func (p *headerCapture) Write(b []byte) (int, error) { return len(b), nil }
func (p *headerCapture) WriteHeader(status int)      { p.status = status }
