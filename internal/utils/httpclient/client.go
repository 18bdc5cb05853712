package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"ForecastDebate/internal/config"

	"github.com/sirupsen/logrus"
)

// UserAgent 所有外部服务请求携带的标识
const UserAgent = "ForecastDebate/1.0"

// fallbackTimeout 未知服务且未配置 timeout 时使用
const fallbackTimeout = 30 * time.Second

// defaultTimeouts 未配置 timeout 时各服务的超时：模型生成慢，行情查询快
var defaultTimeouts = map[string]time.Duration{
	config.ProviderOpenRouter: 60 * time.Second,
	config.ProviderGemini:     60 * time.Second,
	config.ProviderElevenLabs: 30 * time.Second,
	config.ProviderPolymarket: 10 * time.Second,
}

// Timeout 服务的实际超时：配置优先，其次按服务默认值
func Timeout(name string, cfg config.ProviderConfig) time.Duration {
	if cfg.Timeout > 0 {
		return time.Duration(cfg.Timeout) * time.Second
	}
	if d, ok := defaultTimeouts[name]; ok {
		return d
	}
	return fallbackTimeout
}

// NewProviderClient 为单个外部服务（openrouter / gemini / elevenlabs / polymarket）构建 HTTP 客户端。
// 每个服务独立的连接池与超时，可选代理；请求统一带 UserAgent 并自动解压 gzip 响应
func NewProviderClient(name string, cfg config.ProviderConfig, logger *logrus.Logger) *http.Client {
	log := logger.WithField("provider", name)
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			log.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			log.WithField("proxy", cfg.Proxy).Info("外部服务已配置代理")
		}
	}

	timeout := Timeout(name, cfg)
	log.WithField("timeout", timeout).Debug("外部服务客户端已创建")
	return &http.Client{
		Timeout:   timeout,
		Transport: &providerTransport{transport: transport, log: log},
	}
}

// providerTransport 补 User-Agent、声明 gzip 并在响应时解压
type providerTransport struct {
	transport http.RoundTripper
	log       *logrus.Entry
}

func (p *providerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := p.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			p.log.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{Reader: gzReader, closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	}
	return resp, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		_ = g.closer.Close()
		return err
	}
	return g.closer.Close()
}
