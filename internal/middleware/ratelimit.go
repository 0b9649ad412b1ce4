package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/repository"
)

// RateLimit 基于固定窗口计数器限流，键为 user_id (未认证时退化为客户端 IP)。
// 限流状态不可用时放行，可用性优先于限流精度。
func RateLimit(stateRepo repository.StateRepository, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		exceeded, err := stateRepo.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logrus.WithError(err).Warn("Rate limit check failed, allowing request")
			c.Next()
			return
		}
		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": 429, "message": "too many requests"})
			return
		}
		c.Next()
	}
}
