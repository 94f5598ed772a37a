package graphql

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lewisdbentley/graphbook/metric"
)

// ContextFunc resolves the raw Authorization header value into a request
// context, typically by attaching the current user.
type ContextFunc func(ctx context.Context, authorization string) context.Context

// Handler serves GraphQL operations over HTTP and, for subscriptions,
// over an upgraded websocket connection.
type Handler struct {
	exec      *Executor
	contextFn ContextFunc
	metrics   *metric.Registry
	logger    *slog.Logger
	timeout   time.Duration
	upgrader  websocket.Upgrader
}

// NewHandler creates the GraphQL endpoint handler.
func NewHandler(resolver Resolver, contextFn ContextFunc, metrics *metric.Registry,
	logger *slog.Logger, timeout time.Duration) *Handler {

	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Handler{
		exec:      NewExecutor(resolver),
		contextFn: contextFn,
		metrics:   metrics,
		logger:    logger.With("component", "graphql-handler"),
		timeout:   timeout,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{wsSubprotocol},
			// The server-level CORS policy governs cross-origin access.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.serveWebSocket(w, r)
		return
	}

	params, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if h.contextFn != nil {
		ctx = h.contextFn(ctx, r.Header.Get("Authorization"))
	}

	start := time.Now()
	resp := h.exec.Execute(ctx, *params)
	duration := time.Since(start)

	if h.metrics != nil {
		h.metrics.ObserveRequest(resp.Operation(), resp.HasErrors(), duration)
	}
	if resp.HasErrors() {
		h.logger.Warn("GraphQL operation failed",
			"operation", resp.Operation(),
			"duration", duration,
			"errors", resp.Errors.Error())
	} else {
		h.logger.Debug("GraphQL operation succeeded",
			"operation", resp.Operation(),
			"duration", duration)
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseRequest decodes a GraphQL request from a POST body or GET query
// parameters.
func (h *Handler) parseRequest(w http.ResponseWriter, r *http.Request) (*Params, bool) {
	var params Params

	switch r.Method {
	case http.MethodPost:
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"errors": []map[string]any{{"message": "invalid request body"}},
			})
			return nil, false
		}

	case http.MethodGet:
		q := r.URL.Query()
		params.Query = q.Get("query")
		params.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params.Variables); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"errors": []map[string]any{{"message": "invalid variables parameter"}},
				})
				return nil, false
			}
		}

	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"errors": []map[string]any{{"message": "method not allowed"}},
		})
		return nil, false
	}

	if params.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []map[string]any{{"message": "no query supplied"}},
		})
		return nil, false
	}
	return &params, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
