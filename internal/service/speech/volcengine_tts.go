package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/model/speech"
)

const (
	volcengineStreamURL = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

	volcDefaultResource = "volc.service_type.10029"
	volcMegaResource    = "volc.megatts.default"
	volcSeedResource    = "seed-tts-2.0"
)

// VolcengineEngine synthesizes speech through the Volcengine unidirectional
// streaming endpoint.
type VolcengineEngine struct {
	cfg    speech.VolcengineConfig
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger
}

type volcServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

type volcRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string          `json:"speaker"`
		Text        string          `json:"text"`
		AudioParams volcAudioParams `json:"audio_params"`
		Additions   string          `json:"additions,omitempty"`
		Language    string          `json:"language,omitempty"`
	} `json:"req_params"`
}

type volcAudioParams struct {
	Format          string  `json:"format"`
	SampleRate      int     `json:"sample_rate"`
	EnableTimestamp bool    `json:"enable_timestamp"`
	SpeedRatio      float32 `json:"speed_ratio,omitempty"`
	VolumeRatio     float32 `json:"volume_ratio,omitempty"`
}

// NewVolcengineEngine builds the engine. It reports unavailable until both
// the app id and the access token are set.
func NewVolcengineEngine(cfg speech.VolcengineConfig, logger *zap.Logger) *VolcengineEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VolcengineEngine{
		cfg:    cfg,
		url:    volcengineStreamURL,
		dialer: &websocket.Dialer{HandshakeTimeout: timeout},
		logger: logger.Named("volcengine-tts"),
	}
}

func (e *VolcengineEngine) Name() string { return EngineVolcengine }

func (e *VolcengineEngine) Available() bool {
	_, _, err := e.credentials()
	return err == nil
}

func (e *VolcengineEngine) credentials() (string, string, error) {
	appID := strings.TrimSpace(e.cfg.AppID)
	token := strings.TrimSpace(e.cfg.AccessToken)
	if appID == "" || token == "" {
		return "", "", errors.New("volcengine credentials missing (SPEECH_APP_ID, SPEECH_ACCESS_TOKEN)")
	}
	return appID, token, nil
}

// Synthesize tries each speaker candidate against each compatible resource id
// and moves on only when the server reports a resource/speaker mismatch.
func (e *VolcengineEngine) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if strings.TrimSpace(req.Voice) == "" && !hasLanguageVoice(req.Language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}
	appID, token, err := e.credentials()
	if err != nil {
		return nil, err
	}

	speakers := resolveSpeakerCandidates(req.Voice, e.cfg.TTSVoice, req.Language)
	var lastMismatch error
	for _, speaker := range speakers {
		for idx, resourceID := range resolveResourceCandidates(speaker) {
			resp, err := e.synthesizeWith(ctx, req, appID, token, speaker, resourceID)
			if err == nil {
				if idx > 0 {
					e.logger.Info("fallback resource accepted", zap.String("speaker", speaker), zap.String("resource", resourceID))
				}
				return resp, nil
			}
			if !isResourceMismatchError(err) {
				return nil, err
			}
			e.logger.Debug("resource mismatch", zap.String("speaker", speaker), zap.String("resource", resourceID), zap.Error(err))
			lastMismatch = err
		}
	}
	if lastMismatch != nil {
		return nil, lastMismatch
	}
	return nil, fmt.Errorf("volcengine: no compatible resource for speakers %v", speakers)
}

func (e *VolcengineEngine) synthesizeWith(ctx context.Context, req *speech.TTSRequest, appID, token, speaker, resourceID string) (*speech.TTSResponse, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := e.dialer.DialContext(ctx, e.url, header)
	if err != nil {
		return nil, fmt.Errorf("volcengine dial: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			e.logger.Debug("connected", zap.String("logid", logID))
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	payload, err := json.Marshal(e.buildRequest(req, speaker))
	if err != nil {
		return nil, fmt.Errorf("marshal volcengine request: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(newClientRequest(payload))); err != nil {
		return nil, fmt.Errorf("send volcengine request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read volcengine response: %w", err)
		}
		f, err := decodeFrame(data)
		if err != nil {
			return nil, err
		}
		body, err := gunzipPayload(f.Payload, f.Header.Compression)
		if err != nil {
			return nil, err
		}

		switch f.Header.Type {
		case msgError:
			return nil, fmt.Errorf("volcengine error %d: %s", f.ErrorCode, string(body))

		case msgAudioOnlyResponse:
			audio.Write(body)

		case msgFullServerResponse:
			var msg volcServerMessage
			if len(body) > 0 {
				if err := json.Unmarshal(body, &msg); err != nil {
					e.logger.Debug("unparseable server payload", zap.Error(err))
				} else {
					if msg.Code != 0 && msg.Code != 3000 {
						return nil, fmt.Errorf("volcengine api error %d: %s", msg.Code, msg.Message)
					}
					if msg.ReqID != "" {
						reqID = msg.ReqID
					}
					if msg.Addition.Duration != "" {
						if ms, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
							duration = ms
						}
					}
					if msg.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(msg.Data)
						if err != nil {
							return nil, fmt.Errorf("decode audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			finished := (f.hasEvent() && f.Event == eventSessionFinished) || f.isLast() || msg.Sequence < 0
			if !finished {
				continue
			}
			if audio.Len() == 0 {
				return nil, errors.New("volcengine returned empty audio")
			}
			if reqID == "" {
				reqID = connectID
			}
			return &speech.TTSResponse{
				AudioData: audio.Bytes(),
				Duration:  duration,
				Format:    "mp3",
				RequestID: reqID,
				CreatedAt: time.Now(),
			}, nil

		default:
			e.logger.Debug("unexpected frame", zap.Uint8("type", uint8(f.Header.Type)))
		}
	}
}

func (e *VolcengineEngine) buildRequest(req *speech.TTSRequest, speaker string) *volcRequest {
	out := &volcRequest{}
	out.User.UID = strings.TrimSpace(req.UID)
	if out.User.UID == "" {
		out.User.UID = uuid.NewString()
	}
	out.ReqParams.Speaker = speaker
	out.ReqParams.Text = req.Text
	out.ReqParams.AudioParams = volcAudioParams{Format: "mp3", SampleRate: 24000, EnableTimestamp: true}

	speed := req.Speed
	if speed <= 0 {
		speed = e.cfg.TTSSpeed
	}
	if speed > 0 && speed != 1.0 {
		out.ReqParams.AudioParams.SpeedRatio = speed
	}
	volume := req.Volume
	if volume <= 0 {
		volume = e.cfg.TTSVolume
	}
	if volume > 0 && volume != 1.0 {
		out.ReqParams.AudioParams.VolumeRatio = volume
	}
	out.ReqParams.Language = strings.TrimSpace(req.Language)
	out.ReqParams.Additions = `{"disable_markdown_filter":false}`
	return out
}

// seedHints mark speakers hosted on the seed resource.
var seedHints = []string{"bigtts", "seed", "megatts", "uranus", "venus", "jupiter", "saturn", "neptune", "mercury", "pluto", "mars"}

func resolveResourceCandidates(voice string) []string {
	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{volcMegaResource}
	}
	normalized := strings.ToLower(voice)
	for _, hint := range seedHints {
		if normalized != "" && strings.Contains(normalized, hint) {
			return []string{volcSeedResource, volcDefaultResource}
		}
	}
	return []string{volcDefaultResource, volcSeedResource}
}

// languageVoices picks a speaker when the caller asked for a language but no
// explicit voice.
var languageVoices = map[string]string{
	"en": "en_female_amy_jupiter_bigtts",
	"zh": "zh_female_vv_uranus_bigtts",
}

// ErrUnsupportedLanguage means no voice is mapped for the language, so the
// request should go to the next engine.
var ErrUnsupportedLanguage = errors.New("volcengine: no voice for language")

// hasLanguageVoice reports whether language is empty or has a mapped voice.
// Region suffixes like en-IN are ignored.
func hasLanguageVoice(language string) bool {
	base := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	if base == "" {
		return true
	}
	_, ok := languageVoices[base]
	return ok
}

var voiceAliases = map[string]string{
	"alert":      "en_female_amy_jupiter_bigtts",
	"en_default": "en_female_amy_jupiter_bigtts",
	"zh_default": "zh_female_vv_uranus_bigtts",
}

func resolveSpeakerCandidates(requested, configured, language string) []string {
	var candidates []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if mapped, ok := voiceAliases[strings.ToLower(s)]; ok {
			s = mapped
		}
		for _, existing := range candidates {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		candidates = append(candidates, s)
	}

	add(requested)
	if strings.TrimSpace(requested) == "" {
		add(languageVoices[strings.ToLower(strings.TrimSpace(language))])
	}
	add(configured)
	if len(candidates) == 0 {
		add(languageVoices["en"])
	}
	return candidates
}

func isResourceMismatchError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
