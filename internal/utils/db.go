package utils

import (
	"context"
	"database/sql"
	"net/url"
	"sealevel/internal/config"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDSN：由配置拼装连接串，密码做 URL 转义
func PostgresDSN(c config.Postgres) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DB,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

// OpenPostgres：打开连接池并在超时内 Ping 一次
func OpenPostgres(ctx context.Context, c config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", PostgresDSN(c))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
