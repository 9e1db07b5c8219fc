package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrissnell/radmon/internal/log"
)

type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Format   ExportFormat
	Output   string
	Since    time.Time
	Until    time.Time
}

func main() {
	var cfg Config

	flag.StringVar(&cfg.Host, "host", "localhost", "Database host")
	flag.IntVar(&cfg.Port, "port", 5432, "Database port")
	flag.StringVar(&cfg.Database, "database", "radmon", "Database name")
	flag.StringVar(&cfg.User, "user", "postgres", "Database user")
	flag.StringVar(&cfg.Password, "password", "", "Database password")
	flag.StringVar(&cfg.SSLMode, "sslmode", "disable", "SSL mode (disable, require, etc)")
	formatStr := flag.String("format", "csv", "Export format: csv or json")
	flag.StringVar(&cfg.Output, "output", "radiation_samples", "Output file base name (extension added automatically)")
	since := flag.String("since", "", "Only export windows starting at or after this RFC3339 time")
	until := flag.String("until", "", "Only export windows starting at or before this RFC3339 time")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	format, err := ParseFormat(*formatStr)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Format = format

	if cfg.Since, err = parseBound(*since); err != nil {
		log.Fatalf("invalid -since: %v", err)
	}
	if cfg.Until, err = parseBound(*until); err != nil {
		log.Fatalf("invalid -until: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Infof("Connected to database %s@%s:%d", cfg.Database, cfg.Host, cfg.Port)

	query, args := BuildQuery(cfg.Since, cfg.Until)
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Fatalf("Failed to execute query: %v", err)
	}
	samples, err := ScanSamples(rows)
	if err != nil {
		log.Fatalf("Failed to read samples: %v", err)
	}

	filename := cfg.Output + "." + string(cfg.Format)
	file, err := os.Create(filename)
	if err != nil {
		log.Fatalf("failed to create file: %v", err)
	}

	if err := Write(file, cfg.Format, samples); err != nil {
		file.Close()
		log.Fatalf("export failed: %v", err)
	}
	if err := file.Close(); err != nil {
		log.Fatalf("failed to close %s: %v", filename, err)
	}

	log.Infow("Export completed", "records", len(samples), "file", filename)
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
