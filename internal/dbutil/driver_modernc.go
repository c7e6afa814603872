//go:build !cgosqlite

package dbutil

import (
	"fmt"

	_ "modernc.org/sqlite"
)

// driverName/dsn select the pure-Go modernc.org/sqlite driver by
// default so the core builds without cgo. Build with -tags cgosqlite
// to link the mattn/go-sqlite3 cgo driver instead (driver_cgo.go),
// same schema and pragmas either way.
const driverName = "sqlite"

func dsn(path string) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, BusyTimeout.Milliseconds())
}
