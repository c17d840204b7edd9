package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RecaptchaHeader carries the client's human-verification token.
const RecaptchaHeader = "X-Recaptcha-Token"

const (
	recaptchaTimeout     = 50 * time.Second
	maxVerifyBodyBytes   = 64 << 10
	recaptchaFailMessage = "reCAPTCHA verification failed."
)

var (
	// ErrNotHuman is returned whenever verification does not positively succeed.
	ErrNotHuman = errors.New("human verification failed")
)

// Verifier checks reCAPTCHA v3 tokens against the siteverify endpoint.
type Verifier struct {
	secret     string
	verifyURL  string
	minScore   float64
	httpClient *http.Client
	logger     *slog.Logger
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// NewVerifier builds a verifier. minScore is exclusive: a score must be strictly greater.
func NewVerifier(secret, verifyURL string, minScore float64, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		secret:     secret,
		verifyURL:  verifyURL,
		minScore:   minScore,
		httpClient: &http.Client{Timeout: recaptchaTimeout},
		logger:     logger,
	}
}

// Verify returns nil only when the endpoint reports success with a high enough score.
// Every other outcome, network failures included, is ErrNotHuman.
func (v *Verifier) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token missing", ErrNotHuman)
	}
	if v.secret == "" {
		return fmt.Errorf("%w: secret not configured", ErrNotHuman)
	}
	form := url.Values{"secret": {v.secret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotHuman, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotHuman, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: verify endpoint returned %s", ErrNotHuman, resp.Status)
	}
	var result verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxVerifyBodyBytes)).Decode(&result); err != nil {
		return fmt.Errorf("%w: decode verify response: %v", ErrNotHuman, err)
	}
	if !result.Success || result.Score <= v.minScore {
		return fmt.Errorf("%w: success=%t score=%.2f", ErrNotHuman, result.Success, result.Score)
	}
	return nil
}

// Middleware rejects requests whose X-Recaptcha-Token does not verify.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := v.Verify(c.Request.Context(), c.GetHeader(RecaptchaHeader)); err != nil {
			v.logger.InfoContext(c.Request.Context(), "recaptcha rejected", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": recaptchaFailMessage})
			return
		}
		c.Next()
	}
}
