//go:build cgosqlite

package dbutil

import (
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// mattn/go-sqlite3 takes its busy timeout via a query-string cache
// parameter rather than modernc's _pragma DSN form; the PRAGMA
// statements Open runs afterward apply it identically either way.
const driverName = "sqlite3"

func dsn(path string) string {
	return path + "?_busy_timeout=" + strconv.FormatInt(BusyTimeout.Milliseconds(), 10)
}
