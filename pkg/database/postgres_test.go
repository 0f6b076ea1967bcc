package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/salary-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "salary",
		Password: "secret",
		Name:     "salary_db",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=salary password=secret dbname=salary_db sslmode=disable", DSN(cfg))

	cfg.Password = `it's a \ pass`
	assert.Equal(t, `host=db port=5432 user=salary password='it\'s a \\ pass' dbname=salary_db sslmode=disable`, DSN(cfg))

	cfg.Password = ""
	cfg.SSLMode = ""
	assert.Equal(t, "host=db port=5432 user=salary dbname=salary_db", DSN(cfg))
}
