package api

import (
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// NewRouter serves h over net/http with the same routes as the Lambda
// deployment. A zero timeout disables the request timeout middleware.
func NewRouter(h *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/health", h.adapt(h.Health))
	r.Get("/users", h.adapt(h.List))
	r.Post("/users", h.adapt(h.Create))
	r.Get("/users/{id}", h.adapt(h.Get))
	r.Put("/users/{id}", h.adapt(h.Update))
	r.Delete("/users/{id}", h.adapt(h.Delete))

	// Preflight, unknown paths and wrong methods get the same answers as Route.
	r.Options("/*", h.adapt(h.Route))
	r.NotFound(h.adapt(h.Route))
	r.MethodNotAllowed(h.adapt(h.Route))

	return r
}

// adapt converts an http.Request into a proxy request, calls fn and writes
// the proxy response back.
func (h *Handler) adapt(fn ProxyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeResponse(w, h.fail(http.StatusRequestEntityTooLarge, "Request body too large"))
			return
		}

		req := events.APIGatewayProxyRequest{
			HTTPMethod:            r.Method,
			Path:                  r.URL.Path,
			Headers:               flatten(r.Header),
			QueryStringParameters: flatten(r.URL.Query()),
			Body:                  string(body),
		}
		if id := chi.URLParam(r, "id"); id != "" {
			req.PathParameters = map[string]string{"id": id}
		}

		resp, err := fn(r.Context(), req)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "handler failed", "path", r.URL.Path, "error", err)
			resp = h.fail(http.StatusInternalServerError, "Internal server error")
		}
		writeResponse(w, resp)
	}
}

func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}

func flatten(values map[string][]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
