package api

import (
	"errors"
	"net/http"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/internal/rag_service/service"
	"github.com/gin-gonic/gin"
)

// publicMessages 是 5xx 和 422 响应对外展示的文案, 上游原始错误只写入日志。
var publicMessages = map[string]string{
	"load_error":              "the document could not be parsed",
	"retrieval_error":         "document search is temporarily unavailable",
	"generation_error":        "the answer service is temporarily unavailable",
	"download_error":          "the stored file could not be fetched",
	"embedding_service_error": "the embedding service is temporarily unavailable",
	"index_unavailable":       "the document index is temporarily unavailable",
	"batch_failed":            "no file in the batch could be ingested",
	"internal_error":          "internal server error",
}

// StatusFor 将错误类型映射为 HTTP 状态码。
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAsyncDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, schema.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, schema.ErrNotFound), errors.Is(err, schema.ErrMetadataNotFound):
		return http.StatusNotFound
	case schema.IsTransient(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, schema.ErrLoad):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error, extra gin.H) {
	status := StatusFor(err)
	code := schema.Code(err)
	if errors.Is(err, service.ErrAsyncDisabled) {
		code = "not_implemented"
	}

	message := err.Error()
	if status >= http.StatusInternalServerError || status == http.StatusUnprocessableEntity {
		if m, ok := publicMessages[code]; ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}

	entry := h.log.WithTrace(c.GetString(traceKey), c.GetString(tenantKey)).WithError(models.ErrorInfo{
		Message:    err.Error(),
		Type:       code,
		StatusCode: status,
		Transient:  schema.IsTransient(err),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	body := gin.H{"error": message, "code": code}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
