package models

// LogEntry 定义了用于结构化日志的统一数据格式。
// 字段与 pkg/logger 输出的 JSON 字段一一对应, 方便日志采集后按字段检索。
type LogEntry struct {
	// ServiceName 是指产生这条日志的服务或组件的名称, 例如 "rag-service", "ingest-worker"。
	ServiceName string `json:"service_name"`

	// TraceID 用于将一次请求在 API 与 ingest worker 之间串联起来。
	TraceID string `json:"trace_id,omitempty"`

	// UserID 是与此日志事件相关的租户 ID。
	UserID string `json:"user_id,omitempty"`

	// RequestInfo 包含了触发此日志的 HTTP 请求的详细信息。
	RequestInfo *RequestInfo `json:"request_info,omitempty"`

	// Error 包含了详细的错误信息，通常在日志级别为 Error 或更高时填充。
	Error *ErrorInfo `json:"error,omitempty"`

	// Payload 用于存放任何其他与业务逻辑相关的、需要记录的结构化数据。
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RequestInfo 存储了关于 HTTP 请求的上下文信息。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
	Status     int    `json:"status,omitempty"`
	LatencyMs  int64  `json:"latency_ms,omitempty"`
}

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 错误的类型，例如 "retrieval_error", "load_error"
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
	Transient  bool   `json:"transient,omitempty"`   // 上游暂时性故障, 调用方可以重试
}
