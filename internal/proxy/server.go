// Package proxy implements the chat-completion proxy operation: lore
// injection, request mapping, the backend exchange, and response reshaping.
package proxy

import (
	"errors"
	"io"
	"net/http"
	"time"

	app_errors "lorebridge/internal/errors"
	"lorebridge/internal/lorebook"
	"lorebridge/internal/models"
	"lorebridge/internal/response"
	"lorebridge/internal/reshape"
	"lorebridge/internal/services"
	"lorebridge/internal/types"
	"lorebridge/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const streamReadBufferSize = 4 * 1024

// ProxyServer handles caller chat-completion requests end to end.
type ProxyServer struct {
	injector          *lorebook.Injector
	mapper            *upstream.Mapper
	client            *upstream.Client
	requestLogService *services.RequestLogService
	showReasoning     bool
}

// NewProxyServer creates a new proxy server.
func NewProxyServer(
	configManager types.ConfigManager,
	injector *lorebook.Injector,
	mapper *upstream.Mapper,
	client *upstream.Client,
	requestLogService *services.RequestLogService,
) *ProxyServer {
	return &ProxyServer{
		injector:          injector,
		mapper:            mapper,
		client:            client,
		requestLogService: requestLogService,
		showReasoning:     configManager.GetFeatureConfig().ShowReasoning,
	}
}

// HandleChatCompletions serves POST /v1/chat/completions.
func (ps *ProxyServer) HandleChatCompletions(c *gin.Context) {
	var req models.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.OpenAIError(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	start := time.Now()
	entry := &models.RequestLog{
		Model:     req.Model,
		IsStream:  req.Stream,
		SourceIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	// Injection runs exactly once per request, before mapping. It returns a
	// fresh message slice; the bound request is not aliased by the backend
	// request.
	entry.LoreEntries = ps.injector.MatchCount(req.Messages)
	req.Messages = ps.injector.Inject(req.Messages)

	backendReq := ps.mapper.Map(c.Request.Context(), &req)
	entry.MappedModel = backendReq.Model

	if req.Stream {
		ps.handleStream(c, backendReq, entry)
	} else {
		ps.handleNonStream(c, backendReq, entry)
	}

	entry.Duration = time.Since(start).Milliseconds()
	ps.requestLogService.Record(entry)
}

func (ps *ProxyServer) handleStream(c *gin.Context, backendReq *models.BackendRequest, entry *models.RequestLog) {
	resp, err := ps.client.Stream(c.Request.Context(), backendReq)
	if err != nil {
		ps.failRequest(c, entry, app_errors.NewAPIError(app_errors.ErrBadGateway, "Failed to reach backend: "+err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ps.relayBackendError(c, resp.StatusCode, resp.Body, entry)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	reshaper := reshape.NewStreamReshaper(c.Writer, ps.showReasoning)
	buf := make([]byte, streamReadBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if writeErr := reshaper.ProcessChunk(buf[:n]); writeErr != nil {
				// The caller went away; nothing left to deliver to.
				logrus.Debugf("Client write failed mid-stream: %v", writeErr)
				entry.IsSuccess = false
				entry.StatusCode = http.StatusOK
				entry.ErrorMessage = writeErr.Error()
				return
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				// A backend disconnect terminates the stream without a
				// caller-facing error event; the truncation itself is the
				// signal the caller observes.
				logrus.Debugf("Backend stream read failed: %v", readErr)
				entry.ErrorMessage = readErr.Error()
			}
			break
		}
	}
	reshaper.Finish()

	entry.IsSuccess = entry.ErrorMessage == ""
	entry.StatusCode = http.StatusOK
}

func (ps *ProxyServer) handleNonStream(c *gin.Context, backendReq *models.BackendRequest, entry *models.RequestLog) {
	status, body, err := ps.client.Complete(c.Request.Context(), backendReq)
	if err != nil {
		ps.failRequest(c, entry, app_errors.NewAPIError(app_errors.ErrBadGateway, "Failed to reach backend: "+err.Error()))
		return
	}

	if status != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"status": status,
			"model":  backendReq.Model,
		}).Warn("Backend returned error response")
		entry.IsSuccess = false
		entry.StatusCode = status
		entry.ErrorMessage = string(body)
		c.Data(status, "application/json", body)
		return
	}

	entry.IsSuccess = true
	entry.StatusCode = http.StatusOK
	c.Data(http.StatusOK, "application/json", reshape.Body(body, ps.showReasoning))
}

// relayBackendError forwards a backend error stream-open failure as a
// buffered JSON response with the backend's status.
func (ps *ProxyServer) relayBackendError(c *gin.Context, status int, body io.Reader, entry *models.RequestLog) {
	payload, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(payload) == 0 {
		ps.failRequest(c, entry, app_errors.NewAPIErrorWithUpstream(status, "BAD_GATEWAY", "Backend rejected the request"))
		return
	}

	logrus.WithField("status", status).Warn("Backend rejected stream request")
	entry.IsSuccess = false
	entry.StatusCode = status
	entry.ErrorMessage = string(payload)
	c.Data(status, "application/json", payload)
}

func (ps *ProxyServer) failRequest(c *gin.Context, entry *models.RequestLog, apiErr *app_errors.APIError) {
	logrus.WithFields(logrus.Fields{
		"status": apiErr.HTTPStatus,
		"code":   apiErr.Code,
	}).Warn(apiErr.Message)
	entry.IsSuccess = false
	entry.StatusCode = apiErr.HTTPStatus
	entry.ErrorMessage = apiErr.Message
	response.OpenAIError(c, apiErr)
}
