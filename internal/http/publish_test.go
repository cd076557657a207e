package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eryxon/uns-gateway/internal/model"
)

type stubDispatch struct {
	res    model.DispatchResult
	err    error
	gotEnv *model.EventEnvelope
	calls  int
}

func (s *stubDispatch) Dispatch(_ context.Context, env *model.EventEnvelope) (model.DispatchResult, error) {
	s.calls++
	s.gotEnv = env
	return s.res, s.err
}

func doPublish(t *testing.T, svc DispatchService, tenantID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/publish", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if tenantID != "" {
		c.Set("tenant_id", tenantID)
	}
	require.NoError(t, publishEventHandler(svc)(c))
	return rec
}

func TestPublishHandlerAggregates(t *testing.T) {
	svc := &stubDispatch{res: model.DispatchResult{
		Published: 1,
		Failed:    1,
		Results: []model.BrokerResult{
			{BrokerID: "brk_a", Topic: "acme/t", Success: true, LatencyMs: 12},
			{BrokerID: "brk_b", Topic: "acme/t", Success: false, Error: "status=502", LatencyMs: 5003},
		},
	}}

	rec := doPublish(t, svc, "tnt_acme", `{
		"tenant_id": "tnt_acme",
		"event_type": "operation.started",
		"data": {"job_number": "J-1"},
		"context": {"enterprise": "Acme Co"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp publishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Published)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "published to 1 of 2 broker(s)", resp.Message)
	require.Len(t, resp.Results, 2)

	require.NotNil(t, svc.gotEnv)
	assert.Equal(t, "Acme Co", svc.gotEnv.Context.Enterprise)
}

func TestPublishHandlerValidationError(t *testing.T) {
	svc := &stubDispatch{err: &model.ValidationError{Missing: []string{"tenant_id"}}}

	rec := doPublish(t, svc, "tnt_acme", `{"event_type": "operation.started", "data": {}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Message, "tenant_id")
}

func TestPublishHandlerZeroBrokersIsSuccess(t *testing.T) {
	svc := &stubDispatch{res: model.DispatchResult{Results: []model.BrokerResult{}}}

	rec := doPublish(t, svc, "tnt_acme", `{"tenant_id":"tnt_acme","event_type":"job.completed","data":{}}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp publishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Published)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, "no subscribed brokers", resp.Message)
}

func TestPublishHandlerTenantMismatch(t *testing.T) {
	svc := &stubDispatch{}

	rec := doPublish(t, svc, "tnt_acme", `{"tenant_id":"tnt_other","event_type":"job.completed","data":{}}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, svc.calls)
}
