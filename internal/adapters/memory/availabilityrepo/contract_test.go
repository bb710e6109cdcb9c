package availabilityrepo

import (
	"testing"

	"github.com/fivesquad/pickup-planner-api/internal/adapters/contracttest"
	availabilityport "github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
)

func TestContract_AvailabilityRepo(t *testing.T) {
	contracttest.RunAvailabilityRepo(t, func(t *testing.T) (availabilityport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}

func TestContract_AvailabilityRepo_SourcedRows(t *testing.T) {
	contracttest.RunAvailabilityRepoSourcedRows(t, func(t *testing.T) (availabilityport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
