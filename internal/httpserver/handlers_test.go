package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWriteErrMapsCommonErrorToItsHTTPStatus(t *testing.T) {
	ce := common.NoHealthyProvider(common.ProviderOpenAI)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeErr(c, ce)

	if w.Code != ce.HTTPStatus() {
		t.Errorf("status = %d, want %d (common.Error's own HTTPStatus)", w.Code, ce.HTTPStatus())
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not the expected JSON error shape: %v", err)
	}
	if body["error"]["message"] == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestWriteErrFallsBackToInternalErrorForPlainErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeErr(c, errPlain("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for a non-common.Error", w.Code)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestProviderLabelPrefixResolvesToGatewayProviderTag(t *testing.T) {
	model, providerID := registry.ParseProviderPrefixedModelID("[Kiro] claude-3-5-sonnet")
	if model != "claude-3-5-sonnet" {
		t.Fatalf("model = %q, want claude-3-5-sonnet", model)
	}
	tag, ok := registry.ResolveProviderTag(providerID)
	if !ok || tag != common.ProviderClaudeKiro {
		t.Fatalf("ResolveProviderTag(%q) = (%q, %v), want (%q, true)", providerID, tag, ok, common.ProviderClaudeKiro)
	}
}

func TestProviderLabelWithNoGatewayBackendIsIgnored(t *testing.T) {
	_, providerID := registry.ParseProviderPrefixedModelID("[Vertex] gemini-2.5-pro")
	if _, ok := registry.ResolveProviderTag(providerID); ok {
		t.Fatalf("expected no gateway provider bound to the %q label", providerID)
	}
}

func TestSplitModelAction(t *testing.T) {
	cases := []struct {
		in, model, action string
	}{
		{"gemini-1.5-pro:generateContent", "gemini-1.5-pro", "generateContent"},
		{"gemini-1.5-pro:streamGenerateContent", "gemini-1.5-pro", "streamGenerateContent"},
		{"no-action-here", "no-action-here", ""},
	}
	for _, tc := range cases {
		model, action := splitModelAction(tc.in)
		if model != tc.model || action != tc.action {
			t.Errorf("splitModelAction(%q) = (%q, %q), want (%q, %q)", tc.in, model, action, tc.model, tc.action)
		}
	}
}
