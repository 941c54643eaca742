package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Phraser 文案协作方：把 message_id 渲染成面向用户的文本
// 协作方不可用时调用方回退到内置目录文案
type Phraser interface {
	Compose(ctx context.Context, messageID, locale string) (string, error)
}

// PhrasingRequest 文案服务请求
type PhrasingRequest struct {
	MessageID string `json:"message_id"`
	Locale    string `json:"locale"`
}

// PhrasingResponse 文案服务响应
type PhrasingResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Text   string `json:"text"`
}

// PhrasingClient 外部文案服务客户端
type PhrasingClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewPhrasingClient 创建文案服务客户端
func NewPhrasingClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PhrasingClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(1 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PhrasingClient{
		httpClient: client,
		logger:     logger,
	}
}

var _ Phraser = (*PhrasingClient)(nil)

// Compose 请求协作方渲染文案
func (c *PhrasingClient) Compose(ctx context.Context, messageID, locale string) (string, error) {
	request := PhrasingRequest{
		MessageID: messageID,
		Locale:    locale,
	}

	var response PhrasingResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/phrasing/compose")

	if err != nil {
		return "", fmt.Errorf("failed to call phrasing service: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("phrasing service returned HTTP %d", resp.StatusCode())
	}
	if response.Status != 0 {
		return "", fmt.Errorf("phrasing service error: %s (status: %d)", response.Msg, response.Status)
	}
	if response.Text == "" {
		return "", fmt.Errorf("phrasing service returned empty text for %s", messageID)
	}

	return response.Text, nil
}
