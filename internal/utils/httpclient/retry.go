package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// BaseRetryDelay 429 重试的初始等待，第 n 次重试等待 BaseRetryDelay * 2^n
var BaseRetryDelay = 2 * time.Second

// DoWithRetry 发送请求，遇到 429 时按 max(Retry-After, 指数退避) 等待后重试。
// newReq 每次重试都会重新构建请求（请求体只能读一次）。attempts < 1 视为 1。
func DoWithRetry(ctx context.Context, client *http.Client, attempts int, logger *logrus.Entry, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; ; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("构建请求失败: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= attempts-1 {
			return resp, nil
		}

		wait := retryWait(resp.Header.Get("Retry-After"), attempt)
		resp.Body.Close()
		logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"max":     attempts,
			"wait":    wait,
		}).Warn("请求被限流(429)，稍后重试")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func retryWait(retryAfter string, attempt int) time.Duration {
	backoff := BaseRetryDelay * time.Duration(1<<attempt)
	if secs, err := strconv.Atoi(retryAfter); err == nil {
		if d := time.Duration(secs) * time.Second; d > backoff {
			return d
		}
	}
	return backoff
}
