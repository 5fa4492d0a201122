package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ghmodels/pkg/llm"
)

// ErrorResponse is the body of every non-2xx gateway response.
type ErrorResponse struct {
	Error string `json:"error"`

	// UpstreamStatus is the status the models API answered with, if any.
	UpstreamStatus int `json:"upstream_status,omitempty"`
}

// ChatResponse is the body of a non-streaming POST /chat.
type ChatResponse struct {
	ID         string     `json:"id,omitempty"`
	Model      string     `json:"model"`
	Content    string     `json:"content"`
	StopReason string     `json:"stop_reason,omitempty"`
	Usage      *llm.Usage `json:"usage,omitempty"`
}

// StreamFrame is the payload of each SSE frame of a streaming POST /chat.
type StreamFrame struct {
	Kind    string `json:"kind,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat runs one completion. With "stream": true the tokens are
// re-framed as SSE and terminated by "data: [DONE]".
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "messages are required"})
	}

	if req.Stream {
		return s.handleStreamingChat(c, req)
	}

	resp, err := s.client.CompleteResponse(c.UserContext(), req)
	if err != nil {
		s.logger.Error("completion failed", "error", err)
		return writeError(c, err)
	}

	return c.JSON(ChatResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Content:    resp.Message.Content,
		StopReason: resp.StopReason,
		Usage:      resp.Usage,
	})
}

func (s *Server) handleStreamingChat(c *fiber.Ctx, req llm.ChatRequest) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// fasthttp recycles the request context once the handler returns, so the
	// stream runs on a child of the server context.
	ctx, cancel := context.WithCancel(s.ctx)
	pr, pw := io.Pipe()
	go func() {
		defer cancel()
		s.pump(ctx, req, pw)
	}()

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// pump writes the token stream to pw. A failed write means the client went
// away; returning from the range loop releases the upstream response.
func (s *Server) pump(ctx context.Context, req llm.ChatRequest, pw *io.PipeWriter) {
	defer pw.Close()

	for tok, err := range s.client.CompleteStreaming(ctx, req) {
		if err != nil {
			s.logger.Error("stream failed", "error", err)
			if werr := writeFrame(pw, "error", StreamFrame{Error: err.Error()}); werr != nil {
				return
			}
			break
		}
		if werr := writeFrame(pw, "", StreamFrame{Kind: tok.Kind.String(), Content: tok.Text}); werr != nil {
			s.logger.Debug("client disconnected", "error", werr)
			return
		}
	}

	_, _ = io.WriteString(pw, "data: [DONE]\n\n")
}

func writeFrame(w io.Writer, event string, frame StreamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// writeError maps client errors onto gateway statuses.
func writeError(c *fiber.Ctx, err error) error {
	body := ErrorResponse{Error: err.Error()}
	status := fiber.StatusBadGateway

	var apiErr *llm.APIError
	var cfgErr *llm.ConfigurationError
	switch {
	case errors.As(err, &apiErr):
		body.UpstreamStatus = apiErr.StatusCode
		if apiErr.StatusCode == fiber.StatusTooManyRequests {
			status = fiber.StatusTooManyRequests
		}
	case errors.As(err, &cfgErr):
		status = fiber.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusGatewayTimeout
	}

	return c.Status(status).JSON(body)
}
