package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"blurcluster/pkg/cluster"
	"blurcluster/pkg/config"
	"blurcluster/pkg/hitmap"
	"blurcluster/pkg/visualization"
)

// readoutWindow is a fixed-size detector readout used when no detector
// service is available: hit ticks are only clamped against it, so any value
// at least as large as the highest tick in the input works.
type readoutWindow int

func (w readoutWindow) ReadoutWindowSize() int { return int(w) }

func main() {
	// Parse command line arguments
	hitsFile := flag.String("hits", "", "CSV file with detector hits (plane,wire,module,tick,charge,width)")
	configFile := flag.String("config", "", "YAML configuration file (defaults are used when omitted)")
	debugDir := flag.String("debug-dir", "", "Directory for per-stage debug images (disabled when empty)")
	window := flag.Int("readout-window", 6400, "Detector readout window size in ticks")
	flag.Parse()

	// Validate inputs
	if *hitsFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	planes, err := readHits(*hitsFile)
	if err != nil {
		log.Fatalf("Failed to read hits: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("BLURRED CLUSTERING OF DETECTOR HITS")
	fmt.Println("================================")

	pipeline, err := cluster.New(cfg, nil, readoutWindow(*window))
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	// Planes are processed in a fixed order so output is reproducible.
	order := make([]int, 0, len(planes))
	for plane := range planes {
		order = append(order, plane)
	}
	sort.Ints(order)
	batches := make([][]hitmap.Hit, len(order))
	for i, plane := range order {
		batches[i] = planes[plane]
	}

	fmt.Printf("Clustering %d planes...\n", len(order))
	startTime := time.Now()
	results := cluster.RunPlanes(pipeline, batches)
	processingTime := time.Since(startTime)

	recorder := visualization.NewRecorder(*debugDir)

	totalClusters := 0
	for i, plane := range order {
		res := results[i]
		fmt.Printf("\nPlane %d: %d hits -> %d clusters\n", plane, len(batches[i]), len(res.Clusters))
		for ci, hits := range res.Clusters {
			charge := 0.0
			for _, hi := range hits {
				charge += batches[i][hi].Charge
			}
			fmt.Printf("  cluster %d: %d hits, total charge %.2f\n", ci, len(hits), charge)
		}
		totalClusters += len(res.Clusters)

		if recorder.Enabled() {
			if err := recorder.SavePlane(fmt.Sprintf("plane%d", plane), res); err != nil {
				log.Printf("Warning: failed to save debug images for plane %d: %v", plane, err)
			}
		}
	}

	fmt.Printf("\nClustering completed in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("Total clusters: %d\n", totalClusters)
	if recorder.Enabled() {
		fmt.Printf("Debug images saved to: %s\n", *debugDir)
	}
}

// readHits parses a CSV of hits, one per line, grouped by plane. Lines are
// plane,wire,module,tick,charge,width with an optional header row.
func readHits(path string) (map[int][]hitmap.Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hits file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	planes := make(map[int][]hitmap.Hit)
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse hits file: %w", err)
		}
		line++
		if line == 1 {
			// Skip a header row if the first field is not numeric.
			if _, err := strconv.Atoi(record[0]); err != nil {
				continue
			}
		}

		fields := make([]float64, len(record))
		for i, v := range record {
			fields[i], err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q: %w", line, v, err)
			}
		}

		plane := int(fields[0])
		planes[plane] = append(planes[plane], hitmap.Hit{
			Wire:     int(fields[1]),
			Module:   int(fields[2]),
			PeakTime: fields[3],
			Charge:   fields[4],
			Width:    fields[5],
		})
	}
	if len(planes) == 0 {
		return nil, fmt.Errorf("no hits found in %s", path)
	}
	return planes, nil
}
