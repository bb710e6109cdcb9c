package availabilityrepo

import (
	"testing"

	"github.com/fivesquad/pickup-planner-api/internal/adapters/contracttest"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/postgres/testutil"
	availabilityport "github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
)

func TestContract_PostgresAvailabilityRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunAvailabilityRepo(t, func(t *testing.T) (availabilityport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}

func TestContract_PostgresAvailabilityRepo_SourcedRows(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunAvailabilityRepoSourcedRows(t, func(t *testing.T) (availabilityport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
