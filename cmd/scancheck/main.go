// Command scancheck runs one station's newest volume scan through the same
// locate, fetch, transform and encode path the service uses, and checks the
// rendered frames for geometric consistency.
//
// Usage:
//
//	go run ./cmd/scancheck -station KTLX -sweeps 3
//	RADAR_SOURCE=dir RADAR_DIR=data/radar go run ./cmd/scancheck -station KTLX
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-radar-service/internal/adapter/localstore"
	s3adapter "github.com/couchcryptid/storm-radar-service/internal/adapter/s3"
	"github.com/couchcryptid/storm-radar-service/internal/config"
	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/nexrad"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
	"github.com/couchcryptid/storm-radar-service/internal/radar"
)

// phase tracks pass/fail for one check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	station := flag.String("station", "KTLX", "station identifier")
	offset := flag.Int("offset", 0, "scans back from the newest (0 is newest)")
	sweeps := flag.Int("sweeps", 3, "sweeps to render and check")
	flag.Parse()

	if !domain.ValidStation(*station) || *offset < 0 || *sweeps <= 0 {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(domain.NormalizeStation(*station), *offset, *sweeps))
}

func run(station string, offset, sweeps int) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	var store radar.ObjectStore
	if cfg.RadarSource == config.SourceDir {
		store = localstore.New(cfg.RadarDir)
	} else {
		store = s3adapter.NewClient(s3adapter.Config{
			Bucket:   cfg.RadarBucket,
			Region:   cfg.RadarRegion,
			Endpoint: cfg.RadarEndpoint,
			Timeout:  cfg.RadarTimeout,
		}, logger, metrics)
	}
	locator := radar.NewLocator(store, clockwork.NewRealClock(), logger)
	fetcher := radar.NewFetcher(store, nexrad.NewDecoder(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("=== Scan Check: %s ===\n\n", station)

	locate := &phase{name: "Locate scan"}
	ref, err := locator.Locate(ctx, station, offset)
	var ts time.Time
	if err == nil {
		ts, err = domain.ExtractTimestamp(ref, station)
	}
	if err != nil {
		locate.errorf("%v", err)
		return report(locate)
	}
	fmt.Printf("Scan: %s (%s)\n", ref.Key, ts.Format(time.RFC3339))

	fetch := &phase{name: "Fetch and decode volume"}
	vol, err := fetcher.Fetch(ctx, station, ts)
	if err != nil {
		fetch.errorf("%v", err)
		return report(locate, fetch)
	}
	if vol.Station != station {
		fetch.errorf("volume header station %q, want %q", vol.Station, station)
	}
	fmt.Printf("Volume: %d sweeps\n", len(vol.Sweeps))

	geometry := &phase{name: "Sweep geometry"}
	roundTrip := &phase{name: "Frame encode round trip"}
	for i := 0; i < sweeps && i < len(vol.Sweeps); i++ {
		frame, err := domain.TransformSweep(vol, i, ts)
		if err != nil {
			geometry.errorf("sweep %d: %v", i, err)
			continue
		}
		for _, e := range checkFrame(frame, ts) {
			geometry.errorf("sweep %d: %s", i, e)
		}

		b, err := frame.Encode()
		if err != nil {
			roundTrip.errorf("sweep %d: %v", i, err)
			continue
		}
		decoded, err := domain.DecodeFrame(b)
		if err != nil {
			roundTrip.errorf("sweep %d: %v", i, err)
			continue
		}
		if len(decoded.Data) != len(frame.Data) || len(decoded.Azimuths) != len(frame.Azimuths) {
			roundTrip.errorf("sweep %d: decoded shape differs", i)
		}
		fmt.Printf("Sweep %d: %d rays x %d gates, %d bytes\n", i, len(frame.Data), len(frame.Ranges)-1, len(b))
	}

	return report(locate, fetch, geometry, roundTrip)
}

// checkFrame verifies the edge-count and monotonicity invariants of one
// rendered sweep.
func checkFrame(f domain.SweepFrame, ts time.Time) []string {
	var errs []string
	rays := len(f.Data)
	if rays == 0 {
		return []string{"no rays"}
	}
	gates := len(f.Data[0])

	if len(f.Azimuths) != rays+1 {
		errs = append(errs, fmt.Sprintf("%d azimuth edges for %d rays", len(f.Azimuths), rays))
	}
	if len(f.Ranges) != gates+1 {
		errs = append(errs, fmt.Sprintf("%d range edges for %d gates", len(f.Ranges), gates))
	}
	for i, row := range f.Data {
		if len(row) != gates {
			errs = append(errs, fmt.Sprintf("ray %d has %d gates, want %d", i, len(row), gates))
			break
		}
	}
	for i := 1; i < len(f.Azimuths); i++ {
		if !(f.Azimuths[i] > f.Azimuths[i-1]) {
			errs = append(errs, fmt.Sprintf("azimuth edges not increasing at %d", i))
			break
		}
	}
	for i := 1; i < len(f.Ranges); i++ {
		if !(f.Ranges[i] > f.Ranges[i-1]) {
			errs = append(errs, fmt.Sprintf("range edges not increasing at %d", i))
			break
		}
	}
	if f.Timestamp != ts.Unix() {
		errs = append(errs, fmt.Sprintf("timestamp %d, want %d", f.Timestamp, ts.Unix()))
	}
	if math.Abs(f.CenterLat) > 90 || math.Abs(f.CenterLon) > 180 {
		errs = append(errs, fmt.Sprintf("site position %.3f,%.3f out of range", f.CenterLat, f.CenterLon))
	}
	return errs
}

func report(phases ...*phase) int {
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-32s %s\n", p.name, status)
	}

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
	fmt.Println("\nScan check FAILED.")
	return 1
}
