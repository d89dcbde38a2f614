package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"Aethena/backend/go/internal/rag_service/export"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/internal/rag_service/service"
	"Aethena/backend/go/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	service *service.Server
	log     *logger.Logger
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s *service.Server, log *logger.Logger) *Handler {
	return &Handler{service: s, log: log}
}

// IngestRequest 是单文件入库请求。
type IngestRequest struct {
	FileID string `json:"fileId"`
}

// BatchRequest 是批量入库和异步入库请求。
type BatchRequest struct {
	FileIDs []string `json:"fileIds"`
}

// QueryRequest 是问答请求。
type QueryRequest struct {
	Question string `json:"question"`
}

type jobView struct {
	JobID  string           `json:"jobId"`
	FileID string           `json:"fileId"`
	Status schema.JobStatus `json:"status"`
}

func tenantOf(c *gin.Context) string {
	return c.GetString(tenantKey)
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, fmt.Errorf("%w: malformed request body", schema.ErrInvalidInput), nil)
		return false
	}
	return true
}

// UploadDocument 接收 multipart 字段 file, 存入对象存储并写入元数据。
func (h *Handler) UploadDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.writeError(c, fmt.Errorf("%w: multipart field \"file\" is required", schema.ErrInvalidInput), nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.writeError(c, fmt.Errorf("open upload: %w", err), nil)
		return
	}
	defer f.Close()

	doc, err := h.service.Upload(c.Request.Context(), tenantOf(c), fh.Filename, f, fh.Size)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"fileId": doc.ID, "fileName": doc.FileName, "path": doc.Path})
}

// ListDocuments 返回当前租户上传过的文件。
func (h *Handler) ListDocuments(c *gin.Context) {
	files, err := h.service.ListFiles(c.Request.Context(), tenantOf(c))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, files)
}

// Ingest 同步处理单个文件。
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.service.IngestFile(c.Request.Context(), tenantOf(c), req.FileID)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

// IngestBatch 逐个处理多个文件。只有全部失败时才返回错误状态, 响应中仍附带完整报告。
func (h *Handler) IngestBatch(c *gin.Context) {
	var req BatchRequest
	if !h.bind(c, &req) {
		return
	}
	report, err := h.service.IngestBatch(c.Request.Context(), tenantOf(c), req.FileIDs)
	if err != nil {
		var extra gin.H
		if report != nil {
			extra = gin.H{"report": report}
		}
		h.writeError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, report)
}

// IngestAsync 为每个文件创建任务并投递到队列。
func (h *Handler) IngestAsync(c *gin.Context) {
	var req BatchRequest
	if !h.bind(c, &req) {
		return
	}
	jobs, err := h.service.IngestAsync(c.Request.Context(), tenantOf(c), c.GetString(traceKey), req.FileIDs)
	if err != nil {
		var extra gin.H
		if len(jobs) > 0 {
			// 部分任务已入队, 仍需返回其 jobId 供轮询
			extra = gin.H{"jobs": jobViews(jobs)}
		}
		h.writeError(c, err, extra)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobs": jobViews(jobs)})
}

func jobViews(jobs []*schema.IngestionJob) []jobView {
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, jobView{JobID: j.ID, FileID: j.FileID, Status: j.Status})
	}
	return views
}

// GetJob 返回异步任务的当前状态。
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.service.JobStatus(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Query 基于当前租户的文档回答问题。
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if !h.bind(c, &req) {
		return
	}
	answer, err := h.service.Query(c.Request.Context(), tenantOf(c), req.Question)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// ListHistory 返回最近的问答记录, 新的在前。
func (h *Handler) ListHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(c, fmt.Errorf("%w: limit must be an integer", schema.ErrInvalidInput), nil)
			return
		}
		limit = n
	}
	records, err := h.service.ListHistory(c.Request.Context(), tenantOf(c), limit)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, records)
}

// DeleteHistory 删除一条问答记录。
func (h *Handler) DeleteHistory(c *gin.Context) {
	if err := h.service.DeleteHistory(c.Request.Context(), tenantOf(c), c.Param("id")); err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportHistory 以附件形式下载问答记录。
func (h *Handler) ExportHistory(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	var buf bytes.Buffer
	name, contentType, err := h.service.ExportHistory(c.Request.Context(), tenantOf(c), format, &buf)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Healthz 检查所有已配置的后端。
func (h *Handler) Healthz(c *gin.Context) {
	report, err := h.service.Health(c.Request.Context())
	if err != nil {
		h.log.WithField("checks", report).Warn(err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": report})
}
