package config

import (
	"fmt"
	"net/url"
)

// PostgresDSN returns the pgx connection string for the knowledge base
// database. Credentials are URL-escaped so passwords may contain any
// character.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDB,
	}
	if c.PostgresUser != "" {
		if c.PostgresPassword != "" {
			u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
		} else {
			u.User = url.User(c.PostgresUser)
		}
	}
	q := url.Values{}
	q.Set("sslmode", "prefer")
	u.RawQuery = q.Encode()
	return u.String()
}
