package testutil

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/gofrs/uuid"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
)

// StartPostgres returns the URL of a Postgres server for tests and a func
// tearing it down. The URL is empty when docker tests are skipped or docker
// is unreachable; callers skip their tests in that case. Call it from
// TestMain after flag.Parse.
func StartPostgres() (url string, teardown func()) {
	noop := func() {}
	if PostgresURL != "" {
		return PostgresURL, noop
	}
	if SkipDockerTests || testing.Short() {
		return "", noop
	}
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("Could not connect to docker: %s", err)
		return "", noop
	}
	pool.MaxWait = 2 * time.Minute
	pgopts := &dockertest.RunOptions{
		Name:       fmt.Sprintf("%s-%s", randomdata.SillyName(), "aceman-pg"),
		Repository: PostgresImage,
		Tag:        PostgresVersion,
		Env: []string{
			"POSTGRES_PASSWORD=postgrespassword",
			"POSTGRES_DB=aceman_test",
		},
		ExposedPorts: []string{"5432/tcp"},
	}
	pg, err := pool.RunWithOptions(pgopts)
	if err != nil {
		log.Printf("Could not start resource: %s", err)
		return "", noop
	}
	teardown = func() {
		if err := pool.Purge(pg); err != nil {
			log.Printf("Could not purge resource: %s", err)
		}
	}

	url = fmt.Sprintf("postgres://postgres:postgrespassword@%s:%s/aceman_test?sslmode=disable", DockerSwitchIP, pg.GetPort("5432/tcp"))
	if err = pool.Retry(func() error {
		db, err := sql.Open("postgres", url)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		log.Printf("Could not connect to postgres: %s", err)
		teardown()
		return "", noop
	}
	return url, teardown
}

// UniqueName returns prefix followed by a random suffix that is a valid
// unquoted SQL identifier.
func UniqueName(prefix string) string {
	id := "00000000000000000000000000000000"
	if u, err := uuid.NewV4(); err == nil {
		id = strings.ReplaceAll(u.String(), "-", "")
	}
	return strings.ReplaceAll(prefix, "-", "_") + "_" + id[:12]
}
