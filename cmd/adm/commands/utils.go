package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
)

// MaskDatabaseURL hides the credentials of a postgres URL for display
func MaskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "postgres://***"
	}
	if u.User == nil {
		return u.String()
	}
	masked := u.Scheme + "://***:***@" + u.Host + u.Path
	if u.RawQuery != "" {
		masked += "?" + u.RawQuery
	}
	return masked
}

// describeDatabase names the connected database and server for `adm db status`
func describeDatabase(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "Not connected"
	}

	var name string
	var host sql.NullString
	err := db.QueryRowContext(ctx, "SELECT current_database(), inet_server_addr()::text").Scan(&name, &host)
	switch {
	case err != nil:
		return "Connected (unknown database)"
	case !host.Valid:
		// unix socket
		return fmt.Sprintf("Connected to %s", name)
	}
	return fmt.Sprintf("Connected to %s on %s", name, host.String)
}
