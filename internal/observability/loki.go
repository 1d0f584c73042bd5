package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AnandVishesh1301/temboXpoke/internal/config"
)

type LokiClient struct {
	url        string
	username   string
	apiKey     string
	httpClient *http.Client
	enabled    bool
	appName    string
	logger     *slog.Logger
}

// Loki Push API format
type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

var defaultClient *LokiClient

// Init configures the process-wide Loki client. Pushing is a no-op until
// Init is called with a complete config.
func Init(cfg config.LokiConfig, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		logger.Info("loki not configured, remote logging disabled")
		defaultClient = &LokiClient{enabled: false, appName: cfg.App, logger: logger}
		return
	}

	defaultClient = &LokiClient{
		url:        strings.TrimRight(cfg.URL, "/") + "/loki/api/v1/push",
		username:   cfg.User,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		enabled:    true,
		appName:    cfg.App,
		logger:     logger,
	}
	logger.Info("loki client initialized", "url", defaultClient.url)
}

func Push(labels map[string]string, data map[string]any) {
	if defaultClient == nil || !defaultClient.enabled {
		return
	}

	go defaultClient.push(labels, data)
}

func (c *LokiClient) push(labels map[string]string, data map[string]any) {
	body, err := c.buildRequest(labels, data, time.Now())
	if err != nil {
		c.logger.Warn("loki: failed to marshal request", "err", err)
		return
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("loki: failed to create request", "err", err)
		return
	}

	httpReq.SetBasicAuth(c.username, c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("loki: failed to send", "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("loki: unexpected status code", "status", resp.StatusCode)
	}
}

func (c *LokiClient) buildRequest(labels map[string]string, data map[string]any, now time.Time) ([]byte, error) {
	stream := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		stream[k] = v
	}
	stream["app"] = c.appName

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req := lokiPushRequest{
		Streams: []lokiStream{
			{
				Stream: stream,
				Values: [][]string{
					{strconv.FormatInt(now.UnixNano(), 10), string(dataJSON)},
				},
			},
		},
	}
	return json.Marshal(req)
}

// LogToolCall logs a tool call to Loki. subject is the authenticated caller,
// empty when the bearer gate is off.
func LogToolCall(requestID, subject, module, tool string, durationMs int64, status string, errMsg string) {
	level := "info"
	if status == "error" {
		level = "error"
	}
	labels := map[string]string{
		"module": module,
		"status": status,
		"level":  level,
	}

	data := map[string]any{
		"request_id":  requestID,
		"module":      module,
		"tool":        tool,
		"duration_ms": durationMs,
		"status":      status,
	}

	if subject != "" {
		data["subject"] = subject
	}
	if errMsg != "" {
		data["error"] = errMsg
	}

	Push(labels, data)
}

// LogSecurityEvent logs a security-related event to Loki
func LogSecurityEvent(requestID, event string, details map[string]any) {
	labels := map[string]string{
		"type":  "security",
		"level": "warn",
	}

	data := map[string]any{
		"request_id": requestID,
		"event":      event,
	}
	for k, v := range details {
		data[k] = v
	}

	Push(labels, data)
}

// LogError logs an error to Loki
func LogError(context string, err error) {
	labels := map[string]string{
		"type":  "error",
		"level": "error",
	}

	data := map[string]any{
		"context": context,
		"error":   fmt.Sprintf("%v", err),
	}

	Push(labels, data)
}
