package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/utils/httpclient"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultModel   = "eleven_turbo_v2"
	maxChars       = 500
	wordsPerMinute = 150
	defaultVoice   = "pNInz6obpgDQGcFmaJgB"
)

// ErrNotConfigured 未配置 ELEVENLABS_API_KEY
var ErrNotConfigured = errors.New("elevenlabs api key not configured")

// 模型提供方 -> 音色，按 model id 前缀匹配
var voiceMap = []struct {
	prefix string
	voice  string
}{
	{"google", "21m00Tcm4TlvDq8ikWAM"},
	{"deepseek", "AZnzlk1XvdvUeBnXmlld"},
	{"meta", "EXAVITQu4vr4xnSDxMaL"},
	{"anthropic", "ErXwobaYiN019PkySvjV"},
	{"openai", "MF3mGyEYCl7XYWbV9V6O"},
	{"mistral", "TxGEqnHWrfWFTfGW9XjX"},
	{"qwen", "VR6AewLTigWG4xSOukaG"},
	{"cohere", "pqHfZKP75CvOlQylNhV4"},
}

// Client ElevenLabs 文本转语音，实现 interfaces.SpeechSynthesizer
type Client struct {
	cfg        config.ProviderConfig
	audioDir   string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.ProviderConfig, audioDir string, logger *logrus.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.AuthToken == "" {
		logger.Warn("未配置 ELEVENLABS_API_KEY，消息不生成音频")
	}
	return &Client{
		cfg:        cfg,
		audioDir:   audioDir,
		httpClient: httpclient.NewProviderClient(config.ProviderElevenLabs, cfg, logger),
		logger:     logger,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// VoiceFor 按 "provider/model" 的 provider 选择音色
func VoiceFor(modelID string) string {
	provider, _, found := strings.Cut(strings.ToLower(modelID), "/")
	if !found {
		return defaultVoice
	}
	for _, v := range voiceMap {
		if strings.HasPrefix(provider, v.prefix) {
			return v.voice
		}
	}
	return defaultVoice
}

// Synthesize 生成 {audio_dir}/{message_id}.mp3，返回访问路径与估算时长（秒）
func (c *Client) Synthesize(ctx context.Context, text string, participant model.DebateParticipant, messageID string) (string, float64, error) {
	if c.cfg.AuthToken == "" {
		return "", 0, ErrNotConfigured
	}
	text = Truncate(strings.TrimSpace(text))
	voice := VoiceFor(participant.ModelID)
	log := c.logger.WithFields(logrus.Fields{"message_id": messageID, "voice_id": voice})

	payload, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: c.cfg.Model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("序列化请求失败: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", strings.TrimRight(c.cfg.BaseURL, "/"), voice)
	resp, err := httpclient.DoWithRetry(ctx, c.httpClient, c.cfg.RetryCount, log, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("xi-api-key", c.cfg.AuthToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		return req, nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("调用ElevenLabs失败: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", 0, errors.New("ElevenLabs: invalid API key or quota exceeded")
	case http.StatusTooManyRequests:
		return "", 0, errors.New("ElevenLabs: rate limit exceeded")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", 0, fmt.Errorf("ElevenLabs API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("读取音频失败: %w", err)
	}
	if err := os.MkdirAll(c.audioDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("创建音频目录失败: %w", err)
	}
	fileName := messageID + ".mp3"
	if err := os.WriteFile(filepath.Join(c.audioDir, fileName), audio, 0o644); err != nil {
		return "", 0, fmt.Errorf("写入音频文件失败: %w", err)
	}

	duration := EstimateDuration(text)
	log.WithFields(logrus.Fields{"bytes": len(audio), "duration": duration}).Info("语音生成成功")
	return "/api/audio/" + fileName, duration, nil
}

// Truncate 超过 500 字符时截断并追加 "..."
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars]) + "..."
}

// EstimateDuration 按每分钟 150 词估算，保留一位小数
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	secs, _ := decimal.NewFromInt(int64(words)).
		Mul(decimal.NewFromInt(60)).
		Div(decimal.NewFromInt(wordsPerMinute)).
		Round(1).
		Float64()
	return secs
}
