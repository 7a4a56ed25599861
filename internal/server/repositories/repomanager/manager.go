// Package repomanager wires the Postgres repositories together and runs
// database migrations.
package repomanager

import (
	"database/sql"

	"github.com/dpetukhov/rosterhub/internal/server/repositories/credentials"
	"github.com/dpetukhov/rosterhub/internal/server/repositories/profiles"
	"github.com/dpetukhov/rosterhub/internal/server/repositories/refreshtokens"
)

type RepositoryManager interface {
	Conn() *sql.DB
	Credentials() credentials.Repository
	Profiles() profiles.Repository
	RefreshTokens() refreshtokens.Repository
}
