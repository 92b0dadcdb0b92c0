package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ahroberts/tickflow/internal/feed"
	"github.com/ahroberts/tickflow/internal/storage"
)

// runImport loads OHLCV bars from a CSV file into the bar database.
// Expected columns: datetime,open,high,low,close,volume with a header row.
func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	file := fs.String("file", "", "CSV file to import")
	symbol := fs.String("symbol", "", "Symbol the bars belong to")
	layout := fs.String("time-format", time.RFC3339, "Go time layout for the datetime column")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *file == "" || *symbol == "" {
		fmt.Fprintln(os.Stderr, "Usage: tickflow import --file bars.csv --symbol SPY [--config path]")
		return 1
	}

	cfg, _, code := loadConfig(*configPath)
	if code != 0 {
		return code
	}

	bars, err := readBarsCSV(*file, *symbol, *layout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
		return 1
	}
	if len(bars) == 0 {
		fmt.Fprintf(os.Stderr, "No bars found in %s\n", *file)
		return 1
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, cfg.Data.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	if err := storage.NewBarStore(db).Insert(ctx, bars); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to insert bars: %v\n", err)
		return 1
	}

	fmt.Printf("Imported %d bars for %s into %s\n", len(bars), *symbol, cfg.Data.Database)
	return 0
}

func readBarsCSV(path, symbol, layout string) ([]feed.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	// Header row
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var bars []feed.Bar
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		dt, err := time.Parse(layout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse datetime %q: %w", line, rec[0], err)
		}

		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse column %d: %w", line, i+2, err)
			}
			vals[i] = v
		}

		bars = append(bars, feed.Bar{
			Symbol:   symbol,
			DateTime: dt.UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return bars, nil
}
