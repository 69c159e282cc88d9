package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	advisorymodel "github.com/crowdshield/dashboard/backend/internal/model/advisory"
	alertmodel "github.com/crowdshield/dashboard/backend/internal/model/alert"
	broadcastmodel "github.com/crowdshield/dashboard/backend/internal/model/broadcast"
	speechmodel "github.com/crowdshield/dashboard/backend/internal/model/speech"
	translatemodel "github.com/crowdshield/dashboard/backend/internal/model/translate"
)

type fakeAdvisor struct {
	got advisorymodel.Request
}

func (f *fakeAdvisor) Generate(_ context.Context, req advisorymodel.Request) advisorymodel.Advisory {
	f.got = req
	return advisorymodel.Advisory{Severity: req.Severity, Text: "Move to higher ground", Source: advisorymodel.SourceMock}
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text, lang string) translatemodel.Translation {
	if lang == "en" {
		return translatemodel.Translation{Text: text, Lang: lang, Source: translatemodel.SourcePassthrough}
	}
	return translatemodel.Translation{Text: "[" + lang + "] " + text, Lang: lang, Source: translatemodel.SourceLive}
}

type fakeSpeech struct {
	failLang string
}

func (f fakeSpeech) Synthesize(_ context.Context, text, lang, _ string) (speechmodel.Result, error) {
	if lang == f.failLang {
		return speechmodel.Result{}, errors.New("boom")
	}
	return speechmodel.Result{Path: "/tmp/" + lang + ".mp3", Engine: "fake", Language: lang}, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(_ context.Context, message, to string) alertmodel.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to+"|"+message)
	return alertmodel.Result{Sent: false, Detail: "mock"}
}

func TestBroadcastRendersEveryLanguage(t *testing.T) {
	advisor := &fakeAdvisor{}
	sender := &recordingSender{}
	svc := NewService(advisor, fakeTranslator{}, fakeSpeech{failLang: "ta"}, sender, zaptest.NewLogger(t))

	res, err := svc.Broadcast(context.Background(), broadcastmodel.Request{
		Severity:  "high",
		Drivers:   []string{"Heavy rainfall"},
		Languages: []string{"en", " HI ", "ta", "hi"},
		To:        "+15550002",
		Audio:     true,
		SMS:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "high", advisor.got.Severity)
	assert.Equal(t, advisorymodel.SourceMock, res.Advisory.Source)
	require.Len(t, res.Messages, 3)

	assert.Equal(t, "en", res.Messages[0].Lang)
	assert.Equal(t, "Move to higher ground", res.Messages[0].Text)
	require.NotNil(t, res.Messages[0].Audio)
	assert.Equal(t, "/tmp/en.mp3", res.Messages[0].Audio.Path)

	assert.Equal(t, "hi", res.Messages[1].Lang)
	assert.Equal(t, "[hi] Move to higher ground", res.Messages[1].Text)
	assert.Equal(t, translatemodel.SourceLive, res.Messages[1].Translation)

	assert.Nil(t, res.Messages[2].Audio)
	assert.Equal(t, "boom", res.Messages[2].AudioError)
	require.NotNil(t, res.Messages[2].SMS)
	assert.False(t, res.Messages[2].SMS.Sent)

	assert.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent, "+15550002|[ta] Move to higher ground")
}

func TestBroadcastDefaultsToEnglishWithoutSideEffects(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(&fakeAdvisor{}, nil, fakeSpeech{}, sender, zaptest.NewLogger(t))

	res, err := svc.Broadcast(context.Background(), broadcastmodel.Request{Severity: "low"})
	require.NoError(t, err)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, "en", res.Messages[0].Lang)
	assert.Equal(t, translatemodel.SourcePassthrough, res.Messages[0].Translation)
	assert.Nil(t, res.Messages[0].Audio)
	assert.Nil(t, res.Messages[0].SMS)
	assert.Empty(t, sender.sent)
}

func TestBroadcastRequiresSeverity(t *testing.T) {
	svc := NewService(&fakeAdvisor{}, nil, nil, nil, nil)
	_, err := svc.Broadcast(context.Background(), broadcastmodel.Request{})
	assert.ErrorIs(t, err, ErrSeverityRequired)
}
