package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ananth-NQI/botfleet-backend/internal/config"
)

func TestDSN(t *testing.T) {
	tcp := config.DatabaseConfig{User: "postgres", Pass: "pw", Name: "botfleet", Host: "localhost", Port: 5432}
	assert.Equal(t, "host=localhost user=postgres password=pw dbname=botfleet port=5432 sslmode=disable", DSN(tcp))

	socket := tcp
	socket.InstanceConnectionName = "proj:region:inst"
	assert.Equal(t, "host=/cloudsql/proj:region:inst user=postgres password=pw dbname=botfleet sslmode=disable", DSN(socket))
}
