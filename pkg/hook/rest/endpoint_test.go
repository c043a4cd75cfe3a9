package rest

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/tr181-tools/tr181-go/pkg/faults"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
		wantErr  bool
	}{
		{name: "bare host and port defaults to https", endpoint: "192.168.1.1:8080", want: "https://192.168.1.1:8080"},
		{name: "explicit http kept", endpoint: "http://device.lan:8080", want: "http://device.lan:8080"},
		{name: "explicit https kept", endpoint: "https://device.lan", want: "https://device.lan"},
		{name: "path preserved", endpoint: "https://device.lan/mgmt", want: "https://device.lan/mgmt"},
		{name: "unsupported scheme", endpoint: "ftp://device.lan", wantErr: true},
		{name: "empty", endpoint: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := parseEndpoint(tt.endpoint)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseEndpoint(%q) = %v, want error", tt.endpoint, u)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEndpoint(%q) failed: %v", tt.endpoint, err)
			}
			if u.String() != tt.want {
				t.Errorf("parseEndpoint(%q) = %q, want %q", tt.endpoint, u, tt.want)
			}
		})
	}
}

func fakeResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestHTTPFaultCategories(t *testing.T) {
	tests := []struct {
		code int
		want faults.Category
	}{
		{http.StatusUnauthorized, faults.CategoryAuthentication},
		{http.StatusForbidden, faults.CategoryAuthentication},
		{http.StatusBadRequest, faults.CategoryValidation},
		{http.StatusNotFound, faults.CategoryValidation},
		{http.StatusConflict, faults.CategoryValidation},
		{http.StatusUnprocessableEntity, faults.CategoryValidation},
		{http.StatusRequestTimeout, faults.CategoryTimeout},
		{http.StatusGatewayTimeout, faults.CategoryTimeout},
		{http.StatusInternalServerError, faults.CategoryProtocol},
		{http.StatusBadGateway, faults.CategoryProtocol},
		{http.StatusTeapot, faults.CategoryProtocol},
	}

	for _, tt := range tests {
		err := httpFault("GetParameterValues", fakeResponse(tt.code, ""))
		if got := faults.CategoryOf(err); got != tt.want {
			t.Errorf("httpFault(%d) category = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestHTTPFaultIncludesDeviceError(t *testing.T) {
	err := httpFault("Subscribe", fakeResponse(http.StatusNotFound, `{"error":"no such event"}`))
	if !strings.Contains(err.Error(), "no such event") {
		t.Errorf("error = %q, want the device error text folded in", err)
	}
	if !strings.Contains(err.Error(), "Subscribe") {
		t.Errorf("error = %q, want the operation named", err)
	}
}

func TestHTTPFaultToleratesNonJSONBody(t *testing.T) {
	err := httpFault("Status", fakeResponse(http.StatusInternalServerError, "<html>oops</html>"))
	if err == nil {
		t.Fatal("expected a fault")
	}
	if got := faults.CategoryOf(err); got != faults.CategoryProtocol {
		t.Errorf("category = %v, want protocol", got)
	}
}
