package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ngocnhiem/online-ide/internal/auth"
	"github.com/ngocnhiem/online-ide/internal/filestore"
	"github.com/ngocnhiem/online-ide/internal/logging"
	"github.com/ngocnhiem/online-ide/internal/models"
	"github.com/ngocnhiem/online-ide/internal/service/codegen"
	"github.com/ngocnhiem/online-ide/internal/service/prompt"
	"github.com/ngocnhiem/online-ide/internal/worker"
)

// CodeService is the prompt relay used by the generation routes.
type CodeService interface {
	GenerateCode(ctx context.Context, req codegen.GenerateRequest, fn func(string) error) error
	ExplainOutput(ctx context.Context, req codegen.OutputRequest, fn func(string) error) error
	Refactor(ctx context.Context, req codegen.RefactorRequest, fn func(string) error) error
	WebGenerate(ctx context.Context, req codegen.WebGenerateRequest, fn func(string) error) error
	WebRefactor(ctx context.Context, req codegen.WebRefactorRequest) (string, error)
	ImprovePrompt(ctx context.Context, req codegen.ImproveRequest) (map[string]string, error)
	Languages() []string
}

// FileStore keeps shared snippets.
type FileStore interface {
	Put(ctx context.Context, up filestore.Upload) (*models.ShareReceipt, error)
	Get(ctx context.Context, locator, confirmation string) (*models.SharedFile, error)
	Delete(ctx context.Context, locator, subject string) error
}

// ActivityRecorder persists one row per handled operation and lists a
// caller's latest rows.
type ActivityRecorder interface {
	Record(ctx context.Context, a models.Activity) (*models.Activity, error)
	Recent(ctx context.Context, subject string, limit int) ([]models.Activity, error)
}

// Pinger reports cache health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler wires HTTP routes to the relay and the file store.
type Handler struct {
	codegen  CodeService
	files    FileStore
	auth     *auth.Service
	captcha  *auth.Verifier
	activity ActivityRecorder
	cache    Pinger
}

// NewHandler constructs a Handler instance. activity and cache may be nil.
func NewHandler(code CodeService, files FileStore, authService *auth.Service, captcha *auth.Verifier, activity ActivityRecorder, cache Pinger) *Handler {
	return &Handler{
		codegen:  code,
		files:    files,
		auth:     authService,
		captcha:  captcha,
		activity: activity,
		cache:    cache,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.healthz)
	router.GET("/file/:shareId", h.getFile)
	router.GET("/languages", h.languages)

	router.GET("/activity", h.auth.Middleware(), h.listActivity)

	guarded := router.Group("/")
	guarded.Use(h.auth.Middleware(), h.captcha.Middleware())
	guarded.POST("/generate_code", h.generateCode)
	guarded.POST("/get-output", h.getOutput)
	guarded.POST("/refactor_code", h.refactorCode)
	guarded.POST("/improve-prompt", h.improvePrompt)
	guarded.POST("/htmlcssjsgenerate-code", h.webGenerate)
	guarded.POST("/htmlcssjsrefactor-code", h.webRefactor)
	guarded.POST("/temp-file-upload", h.uploadFile)
	guarded.DELETE("/file/:shareId/delete", h.deleteFile)
}

// CORS allows the listed origins, or every origin when the list is empty.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", auth.RecaptchaHeader, fileIDHeader},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (h *Handler) healthz(c *gin.Context) {
	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			logging.FromContext(c.Request.Context()).Warn("health check: cache unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "cache": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

func (h *Handler) languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": h.codegen.Languages()})
}

// listActivity returns the caller's latest operations, newest first.
func (h *Handler) listActivity(c *gin.Context) {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxActivityLimit)
	}
	entries := []models.Activity{}
	if h.activity != nil {
		got, err := h.activity.Recent(c.Request.Context(), auth.SubjectFromContext(c), limit)
		if err != nil {
			h.fail(c, err)
			return
		}
		if got != nil {
			entries = got
		}
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}

// statusClientClosed marks requests abandoned by the caller.
const statusClientClosed = 499

const (
	msgInvalidBody = "invalid request body"
	msgBusy        = "server is busy, please retry"
	msgUpstream    = "generation service failed, please retry later"
	msgUnexpected  = "An unexpected error occurred"
	msgCanceled    = "request canceled"
)

// classify maps a service error to the response status and the message shown
// to the caller.
func classify(err error) (int, string) {
	var invalid *codegen.ValidationError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Message
	case errors.Is(err, codegen.ErrUnsupportedLanguage):
		return http.StatusBadRequest, "unsupported language"
	case errors.Is(err, context.Canceled):
		return statusClientClosed, msgCanceled
	case errors.Is(err, prompt.ErrInvalidSuggestions):
		return http.StatusBadRequest, "Invalid prompt format"
	case errors.Is(err, worker.ErrDispatcherBusy):
		return http.StatusTooManyRequests, msgBusy
	case errors.Is(err, codegen.ErrUpstream):
		return http.StatusBadGateway, msgUpstream
	case errors.Is(err, filestore.ErrInvalidExpiry):
		return http.StatusBadRequest, "Invalid expiry time. Please choose a valid value."
	case errors.Is(err, filestore.ErrInvalidLanguage):
		return http.StatusBadRequest, "Invalid language. It must not contain '-', ':' or spaces."
	case errors.Is(err, filestore.ErrInvalidLocator):
		return http.StatusBadRequest, "Invalid 'shareId' format. It should be 'language-file_id'."
	case errors.Is(err, filestore.ErrConfirmationMismatch):
		return http.StatusForbidden, "X-File-ID header must match the requested file"
	case errors.Is(err, filestore.ErrForbidden):
		return http.StatusForbidden, "You can only delete your own files"
	case errors.Is(err, filestore.ErrNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, filestore.ErrExpired):
		return http.StatusGone, "File has expired"
	case errors.Is(err, filestore.ErrUnavailable):
		return http.StatusServiceUnavailable, "Failed to connect to Redis"
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

func (h *Handler) fail(c *gin.Context, err error) int {
	status, msg := classify(err)
	logger := logging.FromContext(c.Request.Context())
	switch {
	case status == statusClientClosed:
		logger.Info("request canceled by client", "path", c.FullPath(), "error", err)
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	default:
		logger.Info("request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
	return status
}

func outcome(err error) (string, string) {
	if err == nil {
		return models.OutcomeOK, ""
	}
	status, _ := classify(err)
	if status == statusClientClosed {
		return models.OutcomeCanceled, err.Error()
	}
	if status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
		return models.OutcomeRejected, err.Error()
	}
	return models.OutcomeFailed, err.Error()
}

func (h *Handler) record(c *gin.Context, op, language string, start time.Time, err error) {
	if h.activity == nil {
		return
	}
	result, detail := outcome(err)
	ctx := context.WithoutCancel(c.Request.Context())
	_, recErr := h.activity.Record(ctx, models.Activity{
		Subject:    auth.SubjectFromContext(c),
		Operation:  op,
		Language:   language,
		Outcome:    result,
		Detail:     detail,
		DurationMS: time.Since(start).Milliseconds(),
	})
	if recErr != nil {
		logging.FromContext(ctx).Warn("record activity failed", "operation", op, "error", recErr)
	}
}
