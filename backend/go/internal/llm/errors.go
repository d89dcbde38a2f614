package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
	olla "github.com/ollama/ollama/api"
	"google.golang.org/api/googleapi"
)

// IsTransient 判断模型服务 (生成与 embedding) 返回的原始错误是否为暂时性故障:
// 超时、网络错误、限流 (429) 与 5xx。熔断器只统计这类错误,
// 请求参数错误、鉴权失败等永久性错误不会让熔断器打开。
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	var ollaErr olla.StatusError
	if errors.As(err, &ollaErr) {
		return transientStatus(ollaErr.StatusCode)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return transientStatus(gErr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// 其余 SDK 错误只能按文本判断
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"timeout", "temporarily", "unavailable", "connection refused", "connection reset", "rate limit"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
}
