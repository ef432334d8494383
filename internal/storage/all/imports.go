// Package all registers every storage backend with the factory. The entry
// point blank-imports it so the configured backend kind can be any of them.
package all

import (
	_ "heartetl/internal/storage/mssql"
	_ "heartetl/internal/storage/mysql"
	_ "heartetl/internal/storage/postgres"
	_ "heartetl/internal/storage/sqlite"
)
