package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// 文档注释：令牌桶限流中间件
// 背景：瓦片请求在地图平移时成批到达，对入口限速避免派生计算与磁盘读取过载。
// 约束：不排队，超限直接返回 429；桶容量等于每秒速率，令牌按时间连续补充。
func RateLimit(qps int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if qps <= 0 {
			return next
		}
		lim := newLimiter(qps)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				w.Header().Set("retry-after", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newLimiter(qps int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(qps), qps)
}
