package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crowdshield/dashboard/backend/internal/analysis/risk"
	"github.com/crowdshield/dashboard/backend/internal/config"
	advisorymodel "github.com/crowdshield/dashboard/backend/internal/model/advisory"
	alertmodel "github.com/crowdshield/dashboard/backend/internal/model/alert"
	broadcastmodel "github.com/crowdshield/dashboard/backend/internal/model/broadcast"
	alertservice "github.com/crowdshield/dashboard/backend/internal/service/alert"
	"github.com/crowdshield/dashboard/backend/internal/service/broadcast"
	"github.com/crowdshield/dashboard/backend/internal/service/situation"
)

type echoAdvisor struct {
	got advisorymodel.Request
}

func (e *echoAdvisor) Generate(_ context.Context, req advisorymodel.Request) advisorymodel.Advisory {
	e.got = req
	return advisorymodel.Advisory{Severity: req.Severity, Text: "Advisory for " + req.Severity, Source: advisorymodel.SourceMock}
}

type fixedAssessor struct{}

func (fixedAssessor) Assess(_ context.Context, state string) situation.Assessment {
	return situation.Assessment{State: state, Decision: risk.Decision{Severity: risk.High, Drivers: []string{"Heavy rainfall (60 mm)"}}}
}

type fixture struct {
	router     *chi.Mux
	dispatcher *alertservice.Dispatcher
	advisor    *echoAdvisor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dispatcher := alertservice.NewDispatcher(config.SMSConfig{}, logger)
	advisor := &echoAdvisor{}
	bc := broadcast.NewService(advisor, nil, nil, dispatcher, logger)

	r := chi.NewRouter()
	New(dispatcher, dispatcher.Outbox(), bc, fixedAssessor{}, logger).RegisterRoutes(r, nil)
	return &fixture{router: r, dispatcher: dispatcher, advisor: advisor}
}

func (f *fixture) post(path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSMSMockIsRecordedInOutbox(t *testing.T) {
	f := setup(t)

	rec := f.post("/alerts/sms", `{"message":"Flood warning","to":"+15551234567"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res alertmodel.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Sent)
	assert.Contains(t, res.Detail, "alert recorded by mock sender")

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts/outbox", nil))
	var outbox struct {
		Messages []alertmodel.OutboxEntry `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outbox))
	require.Len(t, outbox.Messages, 1)
	assert.Equal(t, "Flood warning", outbox.Messages[0].Body)
}

func TestSMSRejectsBadPayload(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusBadRequest, f.post("/alerts/sms", `{"message":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.post("/alerts/sms", `{"message":"hi","to":"12345"}`).Code)
}

func TestBroadcastFillsSeverityFromAssessment(t *testing.T) {
	f := setup(t)

	rec := f.post("/alerts/broadcast", `{"state":"Kerala","languages":["en"],"sms":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res broadcastmodel.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "high", res.Advisory.Severity)
	assert.Equal(t, []string{"Heavy rainfall (60 mm)"}, f.advisor.got.Drivers)
	require.Len(t, res.Messages, 1)
	require.NotNil(t, res.Messages[0].SMS)
	assert.False(t, res.Messages[0].SMS.Sent)
	assert.Len(t, f.dispatcher.Outbox().List(), 1)
}

func TestBroadcastKeepsExplicitSeverity(t *testing.T) {
	f := setup(t)

	rec := f.post("/alerts/broadcast", `{"severity":"low","drivers":["drill"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "low", f.advisor.got.Severity)
	assert.Equal(t, []string{"drill"}, f.advisor.got.Drivers)
}
