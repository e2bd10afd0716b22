// Package postgres opens a journal on a PostgreSQL server
package postgres

import (
	"database/sql"
	"errors"
	"net"
	"net/url"
	"strconv"

	// import postgres driver
	_ "github.com/lib/pq"

	"github.com/clawearn/clawearn/database/drivers"
)

var errNilDetails = errors.New("connection details are nil")

// DSN builds a libpq connection URL
func DSN(d *drivers.ConnectionDetails) string {
	ssl := d.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.FormatUint(uint64(d.Port), 10)),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": {ssl}}.Encode(),
	}
	return u.String()
}

// Connect opens a postgres connection
func Connect(d *drivers.ConnectionDetails) (*sql.DB, error) {
	if d == nil {
		return nil, errNilDetails
	}
	return sql.Open("postgres", DSN(d))
}
