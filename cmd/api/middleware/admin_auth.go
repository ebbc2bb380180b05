package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-layer/cmd/api/auth"
	"chat-layer/cmd/api/services"
	"chat-layer/logger"
)

// AdminAuthMiddleware 는 요청 헤더의 JWT를 검증하고, role이 'admin'인지 확인합니다.
func AdminAuthMiddleware(authSvc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c)
		if err != nil {
			auth.AbortWithUnauthorized(c, err)
			return
		}

		subject, role, err := authSvc.ParseAccessToken(token)
		if err != nil {
			logger.Log.Warnf("token parse error: %v", err)
			auth.AbortWithUnauthorized(c, err)
			return
		}

		if role != auth.RoleAdmin {
			logger.Log.Warnf("access denied: subject %s has role %s, want admin", subject, role)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden_insufficient_permissions"})
			return
		}

		// 컨텍스트에 사용자 정보 저장
		c.Set("subject", subject)
		c.Set("role", role)

		c.Next()
	}
}
