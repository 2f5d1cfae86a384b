package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pipeline"
)

const maxParamsBody = 1 << 20

type handlers struct {
	gw     Gateway
	logger *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) run(w http.ResponseWriter, r *http.Request) {
	driver := chi.URLParam(r, "driver")
	operation := chi.URLParam(r, "operation")
	AddLogField(r.Context(), "driver", driver)
	AddLogField(r.Context(), "operation", operation)

	params, err := readParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.gw.Run(r.Context(), driver, operation, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeResult(w, result)
}

func (h *handlers) notify(w http.ResponseWriter, r *http.Request) {
	driver := chi.URLParam(r, "driver")
	AddLogField(r.Context(), "driver", driver)

	if _, err := h.gw.Callback(r.Context(), driver, r); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": "SUCCESS", "message": "OK"})
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	opts := ports.AuditListOptions{
		RocketID: chi.URLParam(r, "rocketID"),
		Driver:   r.URL.Query().Get("driver"),
		Kind:     domain.EventKind(r.URL.Query().Get("kind")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			h.fail(w, r, domain.ErrInvalidParams("limit", "limit must be a non-negative integer"))
			return
		}
		opts.Limit = n
	}

	records, err := h.gw.Events(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if records == nil {
		records = []*domain.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": records})
}

// readParams accepts a JSON object or a form body. An empty body yields no params.
func readParams(r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, domain.ErrInvalidParams("body", "malformed form body").WithCause(err)
		}
		params := make(map[string]any, len(r.PostForm))
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		return params, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxParamsBody))
	if err != nil {
		return nil, domain.ErrInvalidParams("body", "failed to read request body").WithCause(err)
	}
	params := map[string]any{}
	if len(body) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, domain.ErrInvalidParams("body", "request body must be a JSON object").WithCause(err)
	}
	return params, nil
}

func writeResult(w http.ResponseWriter, result any) {
	switch v := result.(type) {
	case *http.Response:
		defer v.Body.Close()
		for k, values := range v.Header {
			for _, value := range values {
				w.Header().Add(k, value)
			}
		}
		w.WriteHeader(v.StatusCode)
		io.Copy(w, v.Body)
	case *domain.Rocket:
		writeJSON(w, http.StatusOK, rocketView{
			ID:          v.ID,
			Driver:      v.Driver,
			Operation:   v.Operation,
			Direction:   v.Direction(),
			Destination: v.Destination(),
			Payload:     v.Payload(),
		})
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

type rocketView struct {
	ID          string              `json:"id"`
	Driver      string              `json:"driver"`
	Operation   string              `json:"operation"`
	Direction   domain.Direction    `json:"direction"`
	Destination *domain.Destination `json:"destination,omitempty"`
	Payload     domain.Collection   `json:"payload"`
}

type errorResponse struct {
	Error *domain.Error `json:"error"`
}

// fail maps err onto an HTTP status. Typed errors keep their category; anything else
// is reported as an internal error without its message.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		h.logger.Error("unhandled gateway error",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: domain.NewError("internal", http.StatusText(http.StatusInternalServerError)),
		})
		return
	}

	body := *domainErr
	if body.Stage == "" {
		body.Stage = pipeline.FailedPlugin(err)
	}
	writeJSON(w, domainErr.HTTPStatusCode(), errorResponse{Error: &body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
