package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ngocnhiem/online-ide/internal/auth"
	"github.com/ngocnhiem/online-ide/internal/filestore"
)

const fileIDHeader = "X-File-ID"

type uploadRequest struct {
	Code       string          `json:"code"`
	Language   string          `json:"language"`
	Title      string          `json:"title"`
	ExpiryTime json.RawMessage `json:"expiryTime"`
}

// parseExpiry accepts a JSON number or a numeric string. ok is false when
// the value is absent or zero.
func parseExpiry(raw json.RawMessage) (minutes int, ok bool, err error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" || text == `""` || text == "0" || text == "false" {
		return 0, false, nil
	}
	if unquoted, uerr := strconv.Unquote(text); uerr == nil {
		text = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, true, filestore.ErrInvalidExpiry
	}
	if f == 0 {
		return 0, false, nil
	}
	return int(f), true, nil
}

func (h *Handler) uploadFile(c *gin.Context) {
	start := time.Now()
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	minutes, present, err := parseExpiry(req.ExpiryTime)
	if req.Code == "" || req.Language == "" || req.Title == "" || !present {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code, language, title, and expiry time are required"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	receipt, err := h.files.Put(c.Request.Context(), filestore.Upload{
		Title:         req.Title,
		Code:          req.Code,
		Language:      req.Language,
		ExpiryMinutes: minutes,
		Owner:         auth.SubjectFromContext(c),
	})
	h.record(c, "file_upload", req.Language, start, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Code uploaded successfully",
		"fileUrl":     receipt.FileURL,
		"expiry_time": receipt.ExpiryTime,
	})
}

func (h *Handler) getFile(c *gin.Context) {
	start := time.Now()
	shareID := c.Param("shareId")
	file, err := h.files.Get(c.Request.Context(), shareID, c.GetHeader(fileIDHeader))
	h.record(c, "file_get", languageOf(shareID), start, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *Handler) deleteFile(c *gin.Context) {
	start := time.Now()
	shareID := c.Param("shareId")
	err := h.files.Delete(c.Request.Context(), shareID, auth.SubjectFromContext(c))
	h.record(c, "file_delete", languageOf(shareID), start, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

func languageOf(shareID string) string {
	lang, _, _ := strings.Cut(shareID, "-")
	return lang
}
