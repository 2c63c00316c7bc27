package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitalcopilot/usage-service/internal/copilot"
	"github.com/orbitalcopilot/usage-service/internal/credits"
	"github.com/orbitalcopilot/usage-service/internal/usage"
	"github.com/orbitalcopilot/usage-service/pkg/events"
)

func newTestGateway(t *testing.T, upstream http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	client := copilot.NewClient(copilot.Config{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	svc := usage.NewService(client, credits.NewCalculator(), nil, events.NewBus(zap.NewNop()), time.Minute, zap.NewNop())
	return NewGateway(svc, nil, zap.NewNop(), "/metrics")
}

func noUpstream(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call: %s", r.URL.Path)
	}
}

func postUsage(t *testing.T, g *Gateway, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/usage", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestComputeUsage(t *testing.T) {
	g := newTestGateway(t, noUpstream(t))

	w := postUsage(t, g, `{"message": "Hello world"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Credits float64 `json:"credits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1.00, resp.Credits)
}

func TestComputeUsageEmptyMessage(t *testing.T) {
	g := newTestGateway(t, noUpstream(t))

	// An empty message is valid input and costs the 1.0 floor.
	w := postUsage(t, g, `{"message": ""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits": 1}`, w.Body.String())
}

func TestComputeUsageValidation(t *testing.T) {
	g := newTestGateway(t, noUpstream(t))

	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{"report_id": "1"}`},
		{"message wrong type", `{"message": 42}`},
		{"report_id wrong type", `{"message": "x", "report_id": 42}`},
		{"not json", `this is not json`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postUsage(t, g, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestComputeUsageWithReport(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/5392", r.URL.Path)
		w.Write([]byte(`{"id": 5392, "name": "Tenancy Report", "credit_cost": 20.0}`))
	})

	w := postUsage(t, g, `{"message": "anything at all", "report_id": "5392"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits": 20}`, w.Body.String())
}

func TestComputeUsageUpstreamDownStillResponds(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	w := postUsage(t, g, `{"message": "Hello world", "report_id": "1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits": 1}`, w.Body.String())
}

func TestCurrentPeriodUsage(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/messages/current-period":
			w.Write([]byte(`{"messages": [{"id": 1000, "text": "Hello world", "timestamp": "2024-04-29T02:08:29Z"}]}`))
		default:
			t.Errorf("unexpected upstream call: %s", r.URL.Path)
		}
	})

	req := httptest.NewRequest("GET", "/usage", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Usage []struct {
			MessageID   int64   `json:"message_id"`
			Timestamp   string  `json:"timestamp"`
			ReportName  *string `json:"report_name"`
			CreditsUsed float64 `json:"credits_used"`
		} `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Usage, 1)
	assert.Equal(t, int64(1000), resp.Usage[0].MessageID)
	assert.Equal(t, 1.00, resp.Usage[0].CreditsUsed)
	assert.Nil(t, resp.Usage[0].ReportName)
}

func TestCurrentPeriodUsageUpstreamError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	req := httptest.NewRequest("GET", "/usage", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCurrentPeriodUsageMalformedUpstream(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages": "oops"}`))
	})

	req := httptest.NewRequest("GET", "/usage", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code,
		"an unparseable upstream payload is surfaced as a parse error")
}

func TestHealth(t *testing.T) {
	g := newTestGateway(t, noUpstream(t))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReady(t *testing.T) {
	g := newTestGateway(t, noUpstream(t))

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "no cache configured means always ready")
}

func TestMetricsEndpoint(t *testing.T) {
	g := newTestGateway(t, noUpstream(t))

	// Generate at least one sample so the counter is exported.
	warmup := httptest.NewRequest("GET", "/health", nil)
	g.ServeHTTP(httptest.NewRecorder(), warmup)
	dependencyUp.WithLabelValues("redis").Set(1)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), `dependency_up{dependency="redis"}`)
}
