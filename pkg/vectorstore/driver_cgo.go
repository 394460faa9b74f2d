//go:build cgosqlite

package vectorstore

// mattn/go-sqlite3 wraps the C sqlite3 amalgamation via CGo. Opt in with
// -tags cgosqlite on platforms where CGo is available and the small
// performance edge over modernc.org/sqlite's pure-Go driver matters.
import _ "github.com/mattn/go-sqlite3"

const sqlDriverName = "sqlite3"
