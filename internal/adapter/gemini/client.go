package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const defaultModel = "gemini-2.5-flash"

// Client Gemini generateContent 客户端，实现 interfaces.Summarizer
type Client struct {
	cfg        config.ProviderConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.ProviderConfig, logger *logrus.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.AuthToken == "" {
		logger.Warn("未配置 GEMINI_API_KEY，共识摘要不可用")
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpclient.NewProviderClient(config.ProviderGemini, cfg, logger),
		logger:     logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Summarize 未配置 API Key 时返回 (nil, nil)
func (c *Client) Summarize(ctx context.Context, req *interfaces.SummaryRequest) (*model.DebateSummary, error) {
	if c.cfg.AuthToken == "" {
		return nil, nil
	}
	text, err := c.generate(ctx, BuildPrompt(req))
	if err != nil {
		return nil, err
	}
	c.logger.WithField("chars", len(text)).Info("收到Gemini摘要响应")
	return ParseSummary(text, req), nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.AuthToken))

	log := c.logger.WithField("model", c.cfg.Model)
	resp, err := httpclient.DoWithRetry(ctx, c.httpClient, c.cfg.RetryCount, log, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("调用Gemini失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Gemini响应失败: %w", err)
	}
	var data generateResponse
	decodeErr := json.Unmarshal(body, &data)
	if data.Error != nil {
		return "", fmt.Errorf("Gemini API error: %s", data.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("解析Gemini响应失败: %w", decodeErr)
	}

	var b strings.Builder
	if len(data.Candidates) > 0 {
		for _, p := range data.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("empty response from Gemini")
	}
	return text, nil
}
