package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "AgentCoin-Sim/internal/errors"
	"AgentCoin-Sim/internal/oracle"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4o-mini"
	defaultTimeout   = 60 * time.Second
)

// Config 描述了调用 OpenAI Chat Completions API 所需的信息。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client 通过 HTTP 调用 OpenAI 充当决策预言机。
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient 根据配置创建 OpenAI 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 OpenAI API Key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Decide 将经济快照发送给 OpenAI 并解析下一步动作。
func (c *Client) Decide(ctx context.Context, snapshot oracle.Snapshot) (*oracle.Decision, error) {
	payload, err := c.buildPayload(snapshot)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeOracleFailure, err, "构建 OpenAI 请求失败")
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeOracleFailure, err, "请求 OpenAI 失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, xerrors.New(xerrors.CodeOracleFailure,
			fmt.Sprintf("OpenAI 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeOracleFailure, err, "解析 OpenAI 响应失败")
	}
	if len(decoded.Choices) == 0 {
		return nil, xerrors.New(xerrors.CodeOracleFailure, "OpenAI 响应中没有有效的 choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return nil, xerrors.New(xerrors.CodeOracleFailure, "OpenAI 响应内容为空")
	}

	var structured struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(content), &structured); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeOracleFailure, err, "预言机响应不是合法的 JSON")
	}
	if strings.TrimSpace(structured.Action) == "" {
		return nil, xerrors.New(xerrors.CodeOracleFailure, "预言机响应缺少 action 字段")
	}

	return &oracle.Decision{
		Action: oracle.ParseAction(structured.Action),
		Reason: structured.Reason,
	}, nil
}

func (c *Client) buildPayload(snapshot oracle.Snapshot) ([]byte, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	messages := []message{
		{
			Role:    "system",
			Content: systemPrompt,
		},
		{
			Role:    "user",
			Content: buildUserPrompt(snapshot),
		},
	}

	body := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.7,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeOracleFailure, err, "序列化 OpenAI 请求失败")
	}
	return encoded, nil
}

const systemPrompt = "" +
	"You are an autonomous AI agent managing a crypto wallet. " +
	"Always respond with a compact JSON object: {\"action\": string, \"reason\": string}. " +
	"Do not include markdown formatting."

func buildUserPrompt(snapshot oracle.Snapshot) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("**Current Goal:** %q\n", snapshot.Goal))
	builder.WriteString(fmt.Sprintf("**Current Wallet Balance:** %.2f AGENT-COIN\n", snapshot.Balance))
	builder.WriteString(fmt.Sprintf("**Current Debt:** %.2f AGENT-COIN\n", snapshot.Debt))

	builder.WriteString("\n**Owned Assets:**\n")
	if len(snapshot.OwnedAssets) == 0 {
		builder.WriteString("None\n")
	} else {
		for _, asset := range snapshot.OwnedAssets {
			builder.WriteString(fmt.Sprintf("- %s (Type ID: %s)\n", asset.Name, asset.AssetID))
		}
	}

	builder.WriteString("\n**Available Services (Smart Contracts):**\n")
	actions := make([]string, 0, len(snapshot.Services))
	for _, svc := range snapshot.Services {
		builder.WriteString(fmt.Sprintf("- %s (ID: %s): Costs %.2f AGENT-COIN. Description: %s\n",
			svc.Name, svc.ID, svc.Cost, svc.Description))
		actions = append(actions, fmt.Sprintf("%q", "USE_SERVICE_"+svc.ID))
	}
	builder.WriteString("Note: You can take out a loan for a quick cash injection, but you must repay it with interest, " +
		"which costs more in the long run. Only take a loan if it's strategically necessary. " +
		"Some services may require you to own a specific asset.\n")

	builder.WriteString("\n**Possible Actions:**\n")
	builder.WriteString(fmt.Sprintf("- %s: Use one of the available services.\n", strings.Join(actions, " | ")))
	builder.WriteString("- \"WAIT\": Do nothing and wait for the next cycle. This is a good choice if no service helps with the current goal or if you are saving funds.\n")
	builder.WriteString("- \"FINISH\": The goal has been successfully achieved.\n")

	builder.WriteString("\nBased on your goal, resources, and owned assets, what is your next action? " +
		"You must choose an action and provide a brief reason for your choice.")
	return builder.String()
}
