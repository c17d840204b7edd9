package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ngocnhiem/online-ide/internal/logging"
	"github.com/ngocnhiem/online-ide/internal/service/codegen"
)

// streamText runs a streaming relay call. Headers are sent with the first
// chunk so that failures before it still get a JSON error.
func (h *Handler) streamText(c *gin.Context, op, language string, run func(fn func(string) error) error) {
	start := time.Now()
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	}

	err := run(func(chunk string) error {
		begin()
		if _, err := io.WriteString(c.Writer, chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	switch {
	case err == nil:
		begin()
	case !started:
		h.fail(c, err)
	case errors.Is(err, context.Canceled):
		logging.FromContext(c.Request.Context()).Info("stream canceled by client", "path", c.FullPath())
	default:
		logging.FromContext(c.Request.Context()).Warn("stream aborted", "path", c.FullPath(), "error", err)
	}
	h.record(c, op, language, start, err)
}

type generateCodeRequest struct {
	ProblemDescription string `json:"problem_description"`
	Language           string `json:"language"`
}

func (h *Handler) generateCode(c *gin.Context) {
	var req generateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	h.streamText(c, "generate_code", req.Language, func(fn func(string) error) error {
		return h.codegen.GenerateCode(c.Request.Context(), codegen.GenerateRequest{
			ProblemDescription: req.ProblemDescription,
			Language:           req.Language,
		}, fn)
	})
}

type outputRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (h *Handler) getOutput(c *gin.Context) {
	var req outputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	h.streamText(c, "get_output", req.Language, func(fn func(string) error) error {
		return h.codegen.ExplainOutput(c.Request.Context(), codegen.OutputRequest{
			Code:     req.Code,
			Language: req.Language,
		}, fn)
	})
}

type refactorRequest struct {
	Code               string `json:"code"`
	Language           string `json:"language"`
	ProblemDescription string `json:"problem_description"`
	Output             string `json:"output"`
}

func (h *Handler) refactorCode(c *gin.Context) {
	var req refactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	h.streamText(c, "refactor_code", req.Language, func(fn func(string) error) error {
		return h.codegen.Refactor(c.Request.Context(), codegen.RefactorRequest{
			Code:               req.Code,
			Language:           req.Language,
			Output:             req.Output,
			ProblemDescription: req.ProblemDescription,
		}, fn)
	})
}

type improvePromptRequest struct {
	Topic    string `json:"topic"`
	Language string `json:"language"`
}

func (h *Handler) improvePrompt(c *gin.Context) {
	start := time.Now()
	var req improvePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	prompts, err := h.codegen.ImprovePrompt(c.Request.Context(), codegen.ImproveRequest{
		Topic:    req.Topic,
		Language: req.Language,
	})
	h.record(c, "improve_prompt", req.Language, start, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompts": prompts})
}

type webGenerateRequest struct {
	Prompt      string `json:"prompt"`
	Type        string `json:"type"`
	HTMLContent string `json:"htmlContent"`
	CSSContent  string `json:"cssContent"`
}

func (h *Handler) webGenerate(c *gin.Context) {
	var req webGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	h.streamText(c, "web_generate", req.Type, func(fn func(string) error) error {
		return h.codegen.WebGenerate(c.Request.Context(), codegen.WebGenerateRequest{
			Type:        req.Type,
			Prompt:      req.Prompt,
			HTMLContent: req.HTMLContent,
			CSSContent:  req.CSSContent,
		}, fn)
	})
}

type webRefactorRequest struct {
	HTML               string `json:"html"`
	CSS                string `json:"css"`
	JS                 string `json:"js"`
	Type               string `json:"type"`
	ProblemDescription string `json:"problem_description"`
}

func (h *Handler) webRefactor(c *gin.Context) {
	start := time.Now()
	var req webRefactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	code, err := h.codegen.WebRefactor(c.Request.Context(), codegen.WebRefactorRequest{
		Type:               req.Type,
		HTML:               req.HTML,
		CSS:                req.CSS,
		JS:                 req.JS,
		ProblemDescription: req.ProblemDescription,
	})
	h.record(c, "web_refactor", req.Type, start, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{req.Type: code})
}
