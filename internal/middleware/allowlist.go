package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sealevel/internal/logger"
	"strings"
)

// 文档注释：来源 IP 白名单（单 IP 或 CIDR）
// 背景：管理接口（索引重载、历史查询）仅对运维网段开放。
// 约束：来源 IP 以 RemoteAddr 为准；配置 realIPHeader 时取该头中首个有效 IP。
type AllowList struct {
	l            *slog.Logger
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

// NewAllowList：无法解析的条目记录日志后忽略
func NewAllowList(entries []string, realIPHeader string, l *slog.Logger) *AllowList {
	a := &AllowList{l: logger.Component(l, "allowlist"), ips: map[string]struct{}{}, realIPHeader: realIPHeader}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			if _, n, err := net.ParseCIDR(e); err == nil {
				a.cidrs = append(a.cidrs, n)
				continue
			}
		} else if ip := net.ParseIP(e); ip != nil {
			a.ips[ip.String()] = struct{}{}
			continue
		}
		a.l.Warn("allowlist_bad_entry", "entry", e)
	}
	return a
}

// Empty：未配置任何条目
func (a *AllowList) Empty() bool { return len(a.ips) == 0 && len(a.cidrs) == 0 }

func (a *AllowList) Allowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Wrap：空白名单直接放行
func (a *AllowList) Wrap(next http.Handler) http.Handler {
	if a.Empty() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.extractIP(r)
		if !a.Allowed(ip) {
			a.l.Debug("allowlist_block", "ip", ip.String(), "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AllowList) extractIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
