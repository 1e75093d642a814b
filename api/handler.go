package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/users/user"
)

var errEmptyBody = errors.New("empty request body")

// Options carries the values reported by health and the CORS origin.
type Options struct {
	CORSOrigin  string
	Environment string
	Stage       string
	Version     string
}

// Handler serves the user resource over API Gateway proxy events.
type Handler struct {
	users  *user.Service
	logger *slog.Logger
	opts   Options
	now    func() time.Time
}

// NewHandler creates a Handler. A nil logger uses slog.Default().
func NewHandler(users *user.Service, logger *slog.Logger, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.Stage == "" {
		opts.Stage = "unknown"
	}
	if opts.Version == "" {
		opts.Version = "unknown"
	}
	return &Handler{
		users:  users,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

type healthBody struct {
	Message     string `json:"message"`
	Environment string `json:"environment"`
	Stage       string `json:"stage"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
}

// Health reports liveness; it touches no store.
func (h *Handler) Health(_ context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.respond(http.StatusOK, healthBody{
		Message:     "API is healthy!",
		Environment: h.opts.Environment,
		Stage:       h.opts.Stage,
		Version:     h.opts.Version,
		Timestamp:   h.now().UTC().Format(time.RFC3339Nano),
	}), nil
}

// Create handles POST /users.
func (h *Handler) Create(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var payload user.CreateRequest
	if err := decodeBody(req, &payload); err != nil {
		return h.fail(http.StatusBadRequest, "Invalid request body"), nil
	}

	u, err := h.users.Create(ctx, payload)
	if err != nil {
		return h.fromError(ctx, "create user", err), nil
	}

	h.logger.InfoContext(ctx, "user created", "id", u.ID)
	return h.respond(http.StatusCreated, u), nil
}

// Get handles GET /users/{id}.
func (h *Handler) Get(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	u, err := h.users.Get(ctx, pathID(req))
	if err != nil {
		return h.fromError(ctx, "get user", err), nil
	}
	return h.respond(http.StatusOK, u), nil
}

// List handles GET /users.
func (h *Handler) List(ctx context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	users, err := h.users.List(ctx)
	if err != nil {
		return h.fromError(ctx, "list users", err), nil
	}
	return h.respond(http.StatusOK, listBody{Users: users, Count: len(users)}), nil
}

// Update handles PUT /users/{id}.
func (h *Handler) Update(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := pathID(req)
	if strings.TrimSpace(id) == "" {
		return h.fromError(ctx, "update user", user.ErrMissingID), nil
	}

	var payload user.UpdateRequest
	if err := decodeBody(req, &payload); err != nil {
		return h.fail(http.StatusBadRequest, "Invalid request body"), nil
	}

	u, err := h.users.Update(ctx, id, payload)
	if err != nil {
		return h.fromError(ctx, "update user", err), nil
	}

	h.logger.InfoContext(ctx, "user updated", "id", u.ID)
	return h.respond(http.StatusOK, u), nil
}

// Delete handles DELETE /users/{id}.
func (h *Handler) Delete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := pathID(req)
	if err := h.users.Delete(ctx, id); err != nil {
		return h.fromError(ctx, "delete user", err), nil
	}

	h.logger.InfoContext(ctx, "user deleted", "id", id)
	return h.respond(http.StatusOK, messageBody{Message: "User deleted"}), nil
}

// fromError maps service errors to responses. Anything unrecognized is
// logged in full and reported as a generic 500.
func (h *Handler) fromError(ctx context.Context, op string, err error) events.APIGatewayProxyResponse {
	var verr *user.ValidationError
	switch {
	case errors.As(err, &verr):
		return h.respond(http.StatusBadRequest, errorBody{Error: "Validation failed", Errors: verr.Errors})
	case errors.Is(err, user.ErrMissingID):
		return h.fail(http.StatusBadRequest, "User ID is required")
	case errors.Is(err, user.ErrNoFieldsToUpdate):
		return h.fail(http.StatusBadRequest, "No valid fields to update")
	case errors.Is(err, user.ErrNotFound):
		return h.fail(http.StatusNotFound, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		return h.fail(http.StatusConflict, "Email already exists")
	}

	h.logger.ErrorContext(ctx, "operation failed", "operation", op, "error", err)
	return h.fail(http.StatusInternalServerError, "Could not "+op)
}

// decodeBody unmarshals the request body into v. API Gateway may deliver
// it base64-encoded.
func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return err
		}
		body = string(raw)
	}
	if strings.TrimSpace(body) == "" {
		return errEmptyBody
	}
	return json.Unmarshal([]byte(body), v)
}

func pathID(req events.APIGatewayProxyRequest) string {
	if id, ok := req.PathParameters["id"]; ok {
		return id
	}
	return ""
}
