package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crowdshield/dashboard/backend/internal/config"
	translatemodel "github.com/crowdshield/dashboard/backend/internal/model/translate"
	"github.com/crowdshield/dashboard/backend/internal/service/ai"
)

type replyModel struct {
	reply string
	err   error
	last  []*schema.Message
}

func (m *replyModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.last = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *replyModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.last = input
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.reply, nil)}), m.err
}

type staticSource struct {
	model model.BaseChatModel
}

func (s staticSource) ChatModel(context.Context) (model.BaseChatModel, config.LLMProvider, error) {
	if s.model == nil {
		return nil, config.LLMProvider{}, ai.ErrNoProvider
	}
	return s.model, config.LLMProvider{Name: "fake"}, nil
}

const englishAlert = "The river has flooded the main road and all residents must move to higher ground immediately."

func newService(t *testing.T, m model.BaseChatModel) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), staticSource{model: m}, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	return svc
}

func TestTranslatePassthroughWithoutModel(t *testing.T) {
	svc := newService(t, nil)
	assert.Equal(t, config.ModeFallback, svc.Mode())

	out := svc.Translate(context.Background(), englishAlert, "hi")
	assert.Equal(t, englishAlert, out.Text)
	assert.Equal(t, translatemodel.SourcePassthrough, out.Source)
	assert.Equal(t, "hi", out.Lang)
}

func TestTranslateEnglishTargetSkipsModel(t *testing.T) {
	m := &replyModel{reply: "should not be used"}
	svc := newService(t, m)

	for _, lang := range []string{"", "en", "EN-us"} {
		out := svc.Translate(context.Background(), englishAlert, lang)
		assert.Equal(t, englishAlert, out.Text, lang)
		assert.Equal(t, "en", out.Lang, lang)
	}
	assert.Nil(t, m.last)
}

func TestTranslateLive(t *testing.T) {
	m := &replyModel{reply: "  नदी में बाढ़ आ गई है  "}
	svc := newService(t, m)
	assert.Equal(t, config.ModeLive, svc.Mode())

	out := svc.Translate(context.Background(), englishAlert, "hi")
	assert.Equal(t, translatemodel.SourceLive, out.Source)
	assert.Equal(t, "नदी में बाढ़ आ गई है", out.Text)
	assert.Equal(t, "en", out.Detected)

	require.Len(t, m.last, 2)
	assert.Contains(t, m.last[1].Content, `"hi"`)
	assert.Contains(t, m.last[1].Content, englishAlert)
}

func TestTranslateModelErrorPassesThrough(t *testing.T) {
	svc := newService(t, &replyModel{err: errors.New("upstream 500")})

	out := svc.Translate(context.Background(), englishAlert, "ta")
	assert.Equal(t, englishAlert, out.Text)
	assert.Equal(t, translatemodel.SourcePassthrough, out.Source)
}

func TestTranslateStaticLabel(t *testing.T) {
	m := &replyModel{reply: "unused"}
	svc := newService(t, m)

	out := svc.Translate(context.Background(), "Shelter", "ml")
	assert.Equal(t, translatemodel.SourceStatic, out.Source)
	assert.Equal(t, "അഭയകേന്ദ്രം", out.Text)
	assert.Nil(t, m.last)
}

func TestLabels(t *testing.T) {
	svc := newService(t, nil)

	en := svc.Labels("en")
	assert.Equal(t, "Shelter", en["shelter"])
	assert.Len(t, en, 9)

	assert.Equal(t, en, svc.Labels("fr"))
	assert.Equal(t, "आश्रय", svc.Labels("hi")["shelter"])
	assert.Equal(t, "பாதை", svc.Labels("ta-IN")["route"])
	assert.Equal(t, []string{"en", "hi", "ml", "ta"}, svc.Languages())
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", DetectLanguage(englishAlert))
	assert.Equal(t, "", DetectLanguage("   "))
}
