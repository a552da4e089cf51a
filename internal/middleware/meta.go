package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// ResponseMeta collects per-request details echoed in the response envelope.
type ResponseMeta struct {
	start    time.Time
	cacheHit *bool
	upstream string
}

// WithResponseMeta starts metadata collection for the request.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &ResponseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := metaFrom(c); meta != nil {
		meta.cacheHit = &hit
	}
}

// SetUpstream records which external endpoint served the response.
func SetUpstream(c *gin.Context, name string) {
	if meta := metaFrom(c); meta != nil {
		meta.upstream = name
	}
}

// ExtractMeta renders the collected metadata for the response envelope. It returns nil
// when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaFrom(c)
	if meta == nil {
		return nil
	}
	out := map[string]interface{}{
		"processing_time_ms": time.Since(meta.start).Milliseconds(),
	}
	if meta.cacheHit != nil {
		out["cache_hit"] = *meta.cacheHit
	}
	if meta.upstream != "" {
		out["upstream"] = meta.upstream
	}
	return out
}

func metaFrom(c *gin.Context) *ResponseMeta {
	if c == nil {
		return nil
	}
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, _ := value.(*ResponseMeta)
	return meta
}
