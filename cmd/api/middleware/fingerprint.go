package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	headerFingerprint = "X-Fingerprint"

	// FingerprintKey is the gin context key carrying the caller identity.
	FingerprintKey = "fingerprint"

	// DefaultFingerprint is used when the embedding page sends no identity
	// header; all anonymous visitors of such a site share one bucket.
	DefaultFingerprint = "default"
)

// Fingerprint는 위젯이 보내는 방문자 식별 헤더를 컨텍스트에 저장한다.
// 인증이 아니라 세션 소유권 구분용 식별자일 뿐이다.
func Fingerprint() gin.HandlerFunc {
	return func(c *gin.Context) {
		fp := c.GetHeader(headerFingerprint)
		if fp == "" {
			fp = DefaultFingerprint
		}
		c.Set(FingerprintKey, fp)
		c.Next()
	}
}

// FingerprintFrom returns the resolved fingerprint for the request.
func FingerprintFrom(c *gin.Context) string {
	if v, ok := c.Get(FingerprintKey); ok {
		if fp, ok := v.(string); ok && fp != "" {
			return fp
		}
	}
	return DefaultFingerprint
}
