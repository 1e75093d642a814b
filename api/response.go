package api

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// errorBody is the payload of every non-2xx response.
type errorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

type listBody struct {
	Users any `json:"users"`
	Count int `json:"count"`
}

func (h *Handler) headers() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  h.opts.CORSOrigin,
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
	}
}

// respond encodes body as JSON. An encoding failure degrades to a bare 500.
func (h *Handler) respond(status int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"Internal server error"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    h.headers(),
		Body:       string(raw),
	}
}

func (h *Handler) fail(status int, msg string) events.APIGatewayProxyResponse {
	return h.respond(status, errorBody{Error: msg})
}
