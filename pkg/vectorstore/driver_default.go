//go:build !cgosqlite

package vectorstore

// modernc.org/sqlite is the default SQLite driver: pure Go, no CGo
// toolchain required at build time. Build with -tags cgosqlite to switch
// to the CGo-backed mattn/go-sqlite3 driver instead (see driver_cgo.go).
import _ "modernc.org/sqlite"

const sqlDriverName = "sqlite"
