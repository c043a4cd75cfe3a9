package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tr181-tools/tr181-go/pkg/faults"
)

// API paths. The parameters path serves listing (GET with a prefix query)
// and writes (PUT with a values body).
const (
	statusPath        = "/api/v1/status"
	parametersPath    = "/api/v1/parameters"
	valuesPath        = "/api/v1/parameters/values"
	attributesPath    = "/api/v1/parameters/attributes"
	subscriptionsPath = "/api/v1/events/subscriptions"
	callPath          = "/api/v1/functions/call"
)

// maxErrorBodySize bounds how much of an error response is read for its
// message.
const maxErrorBodySize = 64 * 1024

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type listResponse struct {
	Paths []string `json:"paths"`
}

type pathsRequest struct {
	Paths []string `json:"paths"`
}

type valuesResponse struct {
	Values map[string]any `json:"values"`
}

type parameterAttributes struct {
	Type         string `json:"type"`
	Access       string `json:"access"`
	Notification int    `json:"notification,omitempty"`
}

type attributesResponse struct {
	Attributes map[string]parameterAttributes `json:"attributes"`
}

type valuesRequest struct {
	Values map[string]any `json:"values"`
}

type subscribeRequest struct {
	Path string `json:"path"`
}

type callRequest struct {
	Path  string         `json:"path"`
	Input map[string]any `json:"input,omitempty"`
}

type callResponse struct {
	Output map[string]any `json:"output"`
}

// errorResponse is the JSON body devices send alongside non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// httpFault maps a non-2xx response onto the fault taxonomy, folding the
// device's error text into the message when the body carries one.
func httpFault(operation string, resp *http.Response) error {
	msg := fmt.Sprintf("%s failed with HTTP %s", operation, resp.Status)

	var body errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodySize)).Decode(&body); err == nil && body.Error != "" {
		msg = fmt.Sprintf("%s: %s", msg, body.Error)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return faults.Authentication(msg, nil)
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return faults.Validation(msg, nil)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return faults.Timeout(msg, nil)
	default:
		return faults.Protocol(msg, nil)
	}
}
