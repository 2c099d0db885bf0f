package database

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rickgao/acto-client/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	userInfo := escapeUserInfo(cfg.User)
	if cfg.Password != "" {
		userInfo += ":" + escapeUserInfo(cfg.Password)
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// escapeUserInfo URL-encodes credentials; QueryEscape's "+" is not a space in userinfo.
func escapeUserInfo(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
