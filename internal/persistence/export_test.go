package persistence

import "database/sql"

// DBOf exposes the underlying handle to external tests.
func DBOf(s *Store) *sql.DB { return s.db }
