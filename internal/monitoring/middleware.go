package monitoring

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const slowRequestThreshold = 5 * time.Second

// MonitoringMiddleware records request metrics and logs every request.
// Metrics are labelled by route template so usernames do not explode
// label cardinality.
func MonitoringMiddleware(metrics *Manager, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method
		path := c.Request.URL.Path

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(route, method, statusCode, duration)

		logger.RequestLogger(c.GetString("request_id"), method, path, c.ClientIP(), c.GetHeader("User-Agent"), statusCode, duration)

		if statusCode >= 500 {
			for _, err := range c.Errors {
				logger.APIErrorLogger(err.Err, method, path, c.ClientIP(), statusCode)
			}
		}

		if duration > slowRequestThreshold {
			logger.Warn("Slow request", "route", route, "duration_ms", duration.Milliseconds())
		}
	}
}

// SecurityMonitoringMiddleware logs requests that look like scanners or
// injection probes. It never blocks.
func SecurityMonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userAgent := c.GetHeader("User-Agent")

		var reason string
		switch {
		case containsSQLInjectionPatterns(c.Request.URL.RawQuery):
			reason = "potential_sql_injection"
		case containsSuspiciousUserAgent(userAgent):
			reason = "suspicious_user_agent"
		}

		if reason != "" {
			logger.Warn("Security Event",
				"event", reason,
				"ip", c.ClientIP(),
				"user_agent", userAgent,
				"path", c.Request.URL.Path,
				"query", c.Request.URL.RawQuery)
		}

		c.Next()
	}
}

var sqlInjectionPatterns = []string{
	"union select",
	"union all",
	"select * from",
	"drop table",
	"delete from",
	"';--",
	"/*",
	" xp_",
}

var suspiciousAgents = []string{
	"sqlmap", "nmap", "masscan", "zmap", "dirbuster", "gobuster", "nikto", "acunetix",
}

func containsSQLInjectionPatterns(rawQuery string) bool {
	query, err := url.QueryUnescape(rawQuery)
	if err != nil {
		query = rawQuery
	}
	return containsAny(strings.ToLower(query), sqlInjectionPatterns)
}

func containsSuspiciousUserAgent(userAgent string) bool {
	return containsAny(strings.ToLower(userAgent), suspiciousAgents)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
