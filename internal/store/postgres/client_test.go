package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

func TestDSN(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "postgres://u:p@db:5432/collectibles?sslmode=disable",
		DSN(ClientConfig{Host: "db", Database: "collectibles", User: "u", Password: "p"}))
	assert.Equal(t, "postgres://u:p@db:6543/x?sslmode=require",
		DSN(ClientConfig{Host: "db", Port: 6543, Database: "x", User: "u", Password: "p", SSLMode: "require"}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "postgres://explicit", Host: "ignored"}))
}

func TestClassify(t *testing.T) {
	t.Parallel()
	nf := classify("get item item9", pgx.ErrNoRows)
	assert.ErrorIs(t, nf, domain.ErrNotFound)
	assert.NotErrorIs(t, nf, domain.ErrStorage)

	cause := errors.New("connection refused")
	st := classify("get item item9", cause)
	assert.ErrorIs(t, st, domain.ErrStorage)
	assert.ErrorIs(t, st, cause)
	assert.NotErrorIs(t, st, domain.ErrNotFound)
}
