// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		c.Set("lang", resolveLang(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// resolveLang picks the first preference from headers like
// "zh-TW,zh;q=0.9,en;q=0.8".
func resolveLang(header, fallback string) string {
	if header == "" {
		return fallback
	}

	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	switch first {
	case "zh-TW", "zh-Hant", "zh_TW", "zh-HK":
		return "zh_TW"
	case "en", "en-US", "en-GB":
		return "en"
	default:
		return fallback
	}
}
