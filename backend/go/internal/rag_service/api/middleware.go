package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const (
	tenantKey     = "tenantID"
	traceKey      = "traceID"
	requestIDHead = "X-Request-ID"
)

// AuthMiddleware 验证 HMAC 签名的 JWT, 并把 sub 声明作为租户 ID 存入上下文。
// 租户只从 token 中获取, 请求体里的任何用户字段都不会被信任。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权标头", "code": "unauthorized"})
			return
		}

		// 期望的格式是 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "授权标头格式不正确", "code": "unauthorized"})
			return
		}

		tenantID, err := ParseTenant(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的 token", "code": "unauthorized"})
			return
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

// ParseTenant 校验 token 并返回 sub 声明。
func ParseTenant(tokenString, jwtSecret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 确保 token 的签名方法是我们期望的
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("非预期的签名方法")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("无效的 token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || strings.TrimSpace(sub) == "" {
		return "", errors.New("token 缺少 sub 声明")
	}
	return sub, nil
}

// IssueToken 为租户签发 HS256 token, 供 CLI 和测试使用。
func IssueToken(tenantID, jwtSecret string, ttl time.Duration) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant id is required")
	}
	claims := jwt.MapClaims{
		"sub": tenantID,
		"iat": time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

// RequestLogger 为每个请求分配 trace ID, 并在请求结束后记录一条访问日志。
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := c.GetHeader(requestIDHead)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceKey, traceID)
		c.Header(requestIDHead, traceID)

		c.Next()

		entry := log.WithTrace(traceID, c.GetString(tenantKey)).WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     c.Writer.Status(),
			LatencyMs:  time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request completed with server error")
			return
		}
		entry.Info("request completed")
	}
}
