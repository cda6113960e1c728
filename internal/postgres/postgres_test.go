package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigString(t *testing.T) {
	assert.Equal(t, "host=127.0.0.1 dbname=postgres port=5432 sslmode=prefer", Config{}.String())
	assert.Equal(t, "host=db dbname=ord port=5433 sslmode=disable user=ord password=secret", Config{
		Host:     "db",
		Port:     "5433",
		DBName:   "ord",
		SSLMode:  "disable",
		User:     "ord",
		Password: "secret",
	}.String())
	assert.Equal(t, "postgres://x", Config{URL: "postgres://x", Host: "ignored"}.String())
}

func TestConfigURLString(t *testing.T) {
	assert.Equal(t, "postgres://127.0.0.1:5432/postgres?sslmode=prefer", Config{}.URLString())
	assert.Equal(t, "postgres://ord:secret@db:5432/ord?sslmode=disable", Config{
		Host:     "db",
		DBName:   "ord",
		SSLMode:  "disable",
		User:     "ord",
		Password: "secret",
	}.URLString())
}
