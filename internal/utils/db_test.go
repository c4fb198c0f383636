package utils

import (
	"testing"

	"sealevel/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDSN(t *testing.T) {
	c := config.Postgres{Host: "db", Port: "5432", User: "sea", Password: "p@ss/word", DB: "sealevel", SSLMode: "disable"}
	assert.Equal(t, "postgres://sea:p%40ss%2Fword@db:5432/sealevel?sslmode=disable", PostgresDSN(c))

	c.Password = ""
	assert.Equal(t, "postgres://sea@db:5432/sealevel?sslmode=disable", PostgresDSN(c))
}
