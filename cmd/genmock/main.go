// Command genmock writes synthetic NEXRAD Level II volume scans into a
// directory laid out like the public archive, for running the service with
// RADAR_SOURCE=dir.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -dir data/radar \
//	  -stations KTLX,KFWS \
//	  -start 2024-04-26T15:00:00Z -count 12 -step 5m
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/storm-radar-service/internal/adapter/localstore"
	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/nexrad/nexradtest"
)

var baseDate = time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)

// Approximate site positions for the stations mock data is usually made for.
var sites = map[string][2]float32{
	"KTLX": {35.333, -97.278},
	"KFWS": {32.573, -97.303},
	"KINX": {36.175, -95.564},
	"KVNX": {36.741, -98.128},
}

type options struct {
	dir      string
	stations []string
	start    time.Time
	count    int
	step     time.Duration
	sweeps   int
	rays     int
	gates    int
	compress bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir := flag.String("dir", "data/radar", "output directory (RADAR_DIR)")
	stations := flag.String("stations", "KTLX", "comma-separated station identifiers")
	start := flag.String("start", baseDate.Format(time.RFC3339), "time of the first scan (RFC3339)")
	count := flag.Int("count", 12, "scans per station")
	step := flag.Duration("step", 5*time.Minute, "time between scans")
	sweeps := flag.Int("sweeps", 3, "elevation sweeps per scan")
	rays := flag.Int("rays", 360, "rays per sweep")
	gates := flag.Int("gates", 460, "reflectivity gates per ray")
	compress := flag.Bool("compress", true, "write bzip2 LDM records like the archive")
	flag.Parse()

	t0, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	opts := options{
		dir:      *dir,
		start:    t0.UTC(),
		count:    *count,
		step:     *step,
		sweeps:   *sweeps,
		rays:     *rays,
		gates:    *gates,
		compress: *compress,
	}
	for _, s := range strings.Split(*stations, ",") {
		s = domain.NormalizeStation(s)
		if s == "" {
			continue
		}
		if !domain.ValidStation(s) {
			return fmt.Errorf("invalid station %q", s)
		}
		opts.stations = append(opts.stations, s)
	}
	if opts.count <= 0 || opts.sweeps <= 0 || opts.rays <= 0 || opts.gates <= 0 {
		return fmt.Errorf("count, sweeps, rays and gates must be positive")
	}

	store := localstore.New(opts.dir)
	written := 0
	for _, station := range opts.stations {
		for i := 0; i < opts.count; i++ {
			ts := opts.start.Add(time.Duration(i) * opts.step)
			body, err := nexradtest.Encode(buildScan(opts, station, ts, i))
			if err != nil {
				return fmt.Errorf("encode %s at %s: %w", station, ts.Format(time.RFC3339), err)
			}
			key := domain.ScanKey(station, ts)
			if err := store.Put(key, body); err != nil {
				return fmt.Errorf("write %s: %w", key, err)
			}
			written++
		}
	}
	log.Printf("wrote %d scans for %d stations to %s", written, len(opts.stations), opts.dir)
	return nil
}

// buildScan renders a storm cell drifting clockwise around the site, one
// step per scan.
func buildScan(opts options, station string, ts time.Time, index int) nexradtest.Scan {
	site, ok := sites[station]
	if !ok {
		site = [2]float32{35, -97}
	}
	scan := nexradtest.Scan{
		Station:   station,
		Time:      ts,
		Lat:       site[0],
		Lon:       site[1],
		FirstGate: 2125,
		GateWidth: 250,
		Compress:  opts.compress,
	}

	cellAz := math.Mod(45+float64(index)*6, 360)
	cellGate := float64(opts.gates) * 0.4
	spacing := 360 / float64(opts.rays)

	for s := 0; s < opts.sweeps; s++ {
		sw := nexradtest.Sweep{
			ElevationAngle: 0.5 + float32(s)*0.4,
			Azimuths:       make([]float32, opts.rays),
			Reflectivity:   make([][]float64, opts.rays),
		}
		for r := 0; r < opts.rays; r++ {
			az := math.Mod(float64(r)*spacing+spacing/2, 360)
			sw.Azimuths[r] = float32(az)
			row := make([]float64, opts.gates)
			for g := range row {
				row[g] = cellReflectivity(az, float64(g), cellAz, cellGate, s)
			}
			sw.Reflectivity[r] = row
		}
		scan.Sweeps = append(scan.Sweeps, sw)
	}
	return scan
}

// cellReflectivity is a gaussian blob in (azimuth, gate) space that weakens
// with elevation. Values under 5 dBZ are left missing.
func cellReflectivity(az, gate, cellAz, cellGate float64, sweep int) float64 {
	dAz := math.Abs(az - cellAz)
	if dAz > 180 {
		dAz = 360 - dAz
	}
	d2 := (dAz/8)*(dAz/8) + ((gate-cellGate)/30)*((gate-cellGate)/30)
	v := 65*math.Exp(-d2/2) - 4*float64(sweep)
	if v < 5 {
		return math.NaN()
	}
	return math.Round(v*2) / 2
}
