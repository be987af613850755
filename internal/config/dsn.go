package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// DSNValue builds the driver-specific connection string. An explicit dsn/url
// always wins over the discrete fields.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.URL); v != "" {
		return v
	}

	switch c.Driver {
	case DriverSQLite:
		return c.Path
	case DriverMySQL:
		return c.mysqlDSN()
	default:
		return c.postgresDSN()
	}
}

func (c DatabaseRuntimeConfig) postgresDSN() string {
	params := neturl.Values{}
	for key, value := range c.Params {
		params.Set(key, value)
	}
	if params.Get("sslmode") == "" {
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = defaultDBSSLMode
		}
		params.Set("sslmode", sslMode)
	}

	u := &neturl.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: params.Encode(),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = neturl.UserPassword(c.User, c.Password)
		} else {
			u.User = neturl.User(c.User)
		}
	}
	return u.String()
}

func (c DatabaseRuntimeConfig) mysqlDSN() string {
	params := neturl.Values{}
	for key, value := range c.Params {
		params.Set(key, value)
	}
	if params.Get("charset") == "" {
		params.Set("charset", "utf8mb4")
	}
	if params.Get("parseTime") == "" {
		params.Set("parseTime", "true")
	}
	if params.Get("loc") == "" {
		params.Set("loc", "Local")
	}

	auth := ""
	if c.User != "" || c.Password != "" {
		auth = c.User
		if c.Password != "" {
			auth += ":" + c.Password
		}
		auth += "@"
	}
	return fmt.Sprintf("%stcp(%s)/%s?%s", auth, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Name, params.Encode())
}

func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}
	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = neturl.UserPassword(c.Username, c.Password)
		} else {
			u.User = neturl.User(c.Username)
		}
	} else if c.Password != "" {
		u.User = neturl.UserPassword("", c.Password)
	}

	if len(c.Params) > 0 {
		query := neturl.Values{}
		for key, value := range c.Params {
			query.Set(key, value)
		}
		u.RawQuery = query.Encode()
	}
	return u.String()
}
