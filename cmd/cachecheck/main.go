// Command cachecheck verifies the integrity of the persisted place caches:
// every indexed place has a boundary and place info, boundaries are polygonal,
// and no sensor is assigned to more than one place.
//
// The cache backend is selected from the same environment as the server.
//
// Usage:
//
//	go run ./cmd/cachecheck
//	go run ./cmd/cachecheck -clear
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/breathe-server/internal/config"
	"github.com/couchcryptid/breathe-server/internal/persistence"
	"github.com/couchcryptid/breathe-server/internal/places"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	clearCache := flag.Bool("clear", false, "delete every place cache document and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	if code := run(context.Background(), cfg, *clearCache); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, clearCache bool) int {
	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open %s cache: %v\n", cfg.CacheBackend, err)
		return 1
	}
	defer store.Close()

	if clearCache {
		if err := persistence.DeleteAll(ctx, store, places.CacheKeys...); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		fmt.Printf("Cleared %d documents from the %s cache.\n", len(places.CacheKeys), cfg.CacheBackend)
		return 0
	}

	docs := places.LoadDocuments(ctx, store)

	fmt.Println("=== Place Cache Integrity Check ===")
	fmt.Println()

	phases := check(docs)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Documents: %d boundaries, %d indexed places, %d place infos\n",
		len(docs.Boundaries), len(docs.Sensors), len(docs.Places))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}

func openStore(ctx context.Context, cfg *config.Config) (persistence.Store, error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		return persistence.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "breathe:")
	}
	return persistence.NewFileStore(cfg.CacheDir)
}

func check(docs places.Documents) []*phase {
	return []*phase{
		checkIndexedPlaces(docs),
		checkBoundaries(docs),
		checkPlaceInfo(docs),
		checkSensorOwnership(docs),
	}
}

// checkIndexedPlaces verifies every place that owns sensors can be served.
func checkIndexedPlaces(docs places.Documents) *phase {
	p := &phase{name: "Indexed places (boundary + info)"}
	for _, id := range sortedKeys(docs.Sensors) {
		if _, ok := docs.Boundaries[id]; !ok {
			p.errorf("place %s: has %d sensors but no boundary", id, len(docs.Sensors[id]))
		}
		if _, ok := docs.Places[id]; !ok {
			p.errorf("place %s: has %d sensors but no place info", id, len(docs.Sensors[id]))
		}
	}
	return p
}

func checkBoundaries(docs places.Documents) *phase {
	p := &phase{name: "Boundary geometry"}
	for _, id := range sortedKeys(docs.Boundaries) {
		g := docs.Boundaries[id]
		if g == nil || g.Geometry() == nil {
			p.errorf("place %s: empty boundary", id)
			continue
		}
		switch g.Geometry().(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			p.errorf("place %s: boundary is %s, not polygonal", id, g.Geometry().GeoJSONType())
		}
	}
	return p
}

func checkPlaceInfo(docs places.Documents) *phase {
	p := &phase{name: "Place info"}
	for _, id := range sortedKeys(docs.Places) {
		info := docs.Places[id]
		if info.PlaceID != id {
			p.errorf("place %s: info carries id %q", id, info.PlaceID)
		}
		if info.Name == "" {
			p.errorf("place %s: name is empty", id)
		}
	}
	return p
}

// checkSensorOwnership verifies no sensor index appears under two places.
func checkSensorOwnership(docs places.Documents) *phase {
	p := &phase{name: "Sensor ownership (one place per sensor)"}
	owner := make(map[int]string)
	for _, id := range sortedKeys(docs.Sensors) {
		for _, idx := range docs.Sensors[id] {
			if prev, ok := owner[idx]; ok && prev != id {
				p.errorf("sensor %d: assigned to both %s and %s", idx, prev, id)
				continue
			}
			owner[idx] = id
		}
	}
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
