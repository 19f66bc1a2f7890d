package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

func TestIsNotFound(t *testing.T) {
	notFound := []error{
		domain.ErrCartNotFound,
		domain.ErrOrderNotFound,
		domain.ErrProductNotFound,
		domain.ErrInventoryNotFound,
		domain.ErrDiscountNotFound,
	}
	for _, err := range notFound {
		if !domain.IsNotFound(err) {
			t.Fatalf("expected %v to be not-found", err)
		}
		// Обёртки через %w тоже должны распознаваться.
		if !domain.IsNotFound(fmt.Errorf("lookup: %w", err)) {
			t.Fatalf("expected wrapped %v to be not-found", err)
		}
	}

	if domain.IsNotFound(errors.New("boom")) {
		t.Fatal("arbitrary error must not be not-found")
	}
	if domain.IsNotFound(domain.ErrItemsUnavailable) {
		t.Fatal("declined checkout is a bad request, not a not-found")
	}
}

func TestIsBadRequest(t *testing.T) {
	if !domain.IsBadRequest(domain.ErrItemsUnavailable) {
		t.Fatal("expected items-unavailable to be a bad request")
	}
	if !domain.IsBadRequest(fmt.Errorf("group 2: %w", domain.ErrOrderGroupInvalid)) {
		t.Fatal("expected wrapped group error to be a bad request")
	}
	if domain.IsBadRequest(domain.ErrOrderNotFound) {
		t.Fatal("not-found must not be a bad request")
	}
}

func TestIsVersionConflict(t *testing.T) {
	if !domain.IsVersionConflict(domain.ErrOrderVersionConflict) {
		t.Fatal("expected version conflict to be detected")
	}
	if domain.IsVersionConflict(domain.ErrOrderNotFound) {
		t.Fatal("not-found is not a version conflict")
	}
}
