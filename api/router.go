package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ProxyFunc is the signature of every operation on Handler.
type ProxyFunc func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

type route struct {
	methods map[string]ProxyFunc
	allow   string
}

// Route dispatches a proxy request to the matching operation, so one Lambda
// function can serve every endpoint. Paths are matched on their trailing
// segments, which tolerates a stage or base-path prefix.
func (h *Handler) Route(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusNoContent,
			Headers:    h.headers(),
		}, nil
	}

	segs := splitPath(req.Path)
	n := len(segs)

	var r route
	switch {
	case n >= 1 && segs[n-1] == "health":
		r = route{allow: "GET", methods: map[string]ProxyFunc{
			http.MethodGet: h.Health,
		}}
	case n >= 1 && segs[n-1] == "users":
		r = route{allow: "GET, POST", methods: map[string]ProxyFunc{
			http.MethodGet:  h.List,
			http.MethodPost: h.Create,
		}}
	case n >= 2 && segs[n-2] == "users":
		req = withPathID(req, segs[n-1])
		r = route{allow: "GET, PUT, DELETE", methods: map[string]ProxyFunc{
			http.MethodGet:    h.Get,
			http.MethodPut:    h.Update,
			http.MethodDelete: h.Delete,
		}}
	default:
		return h.fail(http.StatusNotFound, "Not found"), nil
	}

	fn, ok := r.methods[strings.ToUpper(req.HTTPMethod)]
	if !ok {
		resp := h.fail(http.StatusMethodNotAllowed, "Method not allowed")
		resp.Headers["Allow"] = r.allow
		return resp, nil
	}
	return fn(ctx, req)
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// withPathID sets the id path parameter unless API Gateway already did.
func withPathID(req events.APIGatewayProxyRequest, id string) events.APIGatewayProxyRequest {
	if _, ok := req.PathParameters["id"]; ok {
		return req
	}
	params := make(map[string]string, len(req.PathParameters)+1)
	for k, v := range req.PathParameters {
		params[k] = v
	}
	params["id"] = id
	req.PathParameters = params
	return req
}
