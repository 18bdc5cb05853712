package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const (
	appTitle    = "AI Debate Platform"
	temperature = 0.7
	maxTokens   = 300
)

// ErrNotConfigured 未配置 OPENROUTER_API_KEY
var ErrNotConfigured = errors.New("openrouter api key not configured")

// Client OpenRouter chat/completions 客户端，实现 interfaces.LanguageModel
type Client struct {
	cfg        config.ProviderConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.ProviderConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpclient.NewProviderClient(config.ProviderOpenRouter, cfg, logger),
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateTurn 调用模型生成一次发言并解析论点与预测
func (c *Client) GenerateTurn(ctx context.Context, req *interfaces.TurnRequest) (*interfaces.TurnResponse, error) {
	content, err := c.Complete(ctx, req.Participant.ModelID, BuildMessages(req))
	if err != nil {
		return nil, err
	}
	return ParseTurnContent(content), nil
}

// Complete 发送对话并返回第一个 choice 的文本内容
func (c *Client) Complete(ctx context.Context, modelID string, messages []ChatMessage) (string, error) {
	if c.cfg.AuthToken == "" {
		return "", ErrNotConfigured
	}
	payload, err := json.Marshal(chatRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	log := c.logger.WithField("model_id", modelID)
	resp, err := httpclient.DoWithRetry(ctx, c.httpClient, c.cfg.RetryCount, log, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Title", appTitle)
		if c.cfg.Referer != "" {
			req.Header.Set("HTTP-Referer", c.cfg.Referer)
		}
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("调用OpenRouter失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取OpenRouter响应失败: %w", err)
	}

	var data chatResponse
	decodeErr := json.Unmarshal(body, &data)
	if data.Error != nil {
		msg := strings.TrimSpace(data.Error.Message)
		if msg == "" {
			msg = fmt.Sprintf("%v", data.Error.Code)
		}
		log.WithField("status", resp.StatusCode).Error("OpenRouter API返回错误: " + msg)
		return "", fmt.Errorf("OpenRouter API error: %s", msg)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API error: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("解析OpenRouter响应失败: %w", decodeErr)
	}
	if len(data.Choices) == 0 {
		return "", errors.New("OpenRouter returned no choices in response")
	}
	choice := data.Choices[0]
	if choice.Message == nil || choice.Message.Content == nil {
		return "", errors.New("OpenRouter response missing message content")
	}
	content := strings.TrimSpace(*choice.Message.Content)
	if content == "" {
		return "", errors.New("OpenRouter returned empty content")
	}
	log.WithField("chars", len(content)).Debug("OpenRouter响应成功")
	return content, nil
}
