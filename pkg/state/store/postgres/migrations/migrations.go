// Package migrations embeds the SQL schema migrations for the PostgreSQL
// state store. golang-migrate reads them through the iofs source driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
