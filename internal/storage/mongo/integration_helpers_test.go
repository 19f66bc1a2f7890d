package mongo

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// newIntegrationStore подключается к тестовой MongoDB и сбрасывает коллекции.
// Без доступного сервера тест пропускается.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	var failures []string
	for _, uri := range integrationURICandidates() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		store, err := Connect(ctx, Config{URI: uri, Database: "ecom_test"})
		cancel()
		if err != nil {
			failures = append(failures, uri+": "+err.Error())
			continue
		}

		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(ctx)
		})
		wipeCollections(t, store)
		return store
	}

	t.Skipf("mongodb is not available for integration tests: %s", strings.Join(failures, " | "))
	return nil
}

func integrationURICandidates() []string {
	raw := []string{
		os.Getenv("ECOM_MONGO_TEST_URI"),
		os.Getenv("ECOM_MONGO_URI"),
		"mongodb://localhost:27017",
	}

	var out []string
	for _, uri := range raw {
		uri = strings.TrimSpace(uri)
		if uri == "" {
			continue
		}
		duplicate := false
		for _, known := range out {
			if known == uri {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, uri)
		}
	}
	return out
}

func wipeCollections(t *testing.T, store *Store) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names := []string{
		inventoriesCollection,
		ordersCollection,
		cartsCollection,
		productsCollection,
		discountsCollection,
	}
	for _, name := range names {
		if err := store.Collection(name).Drop(ctx); err != nil {
			t.Fatalf("drop collection %s: %v", name, err)
		}
	}
}
