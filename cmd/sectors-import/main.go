package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/puertolima/puertolima_core/internal/db"
	"github.com/puertolima/puertolima_core/internal/sectors"
)

func main() {
	// Command-line flags
	geojsonPath := flag.String("geojson", "", "Path to sector GeoJSON file (required)")
	truncate := flag.Bool("truncate", false, "Remove existing sectors before importing")

	flag.Parse()

	// Validate required flags
	if *geojsonPath == "" {
		fmt.Println("Usage: sectors-import --geojson=<path.geojson> [--truncate]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Validate file exists
	if _, err := os.Stat(*geojsonPath); os.IsNotExist(err) {
		log.Fatalf("GeoJSON file not found: %s", *geojsonPath)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("Starting sector import...")
	log.Printf("GeoJSON file: %s", *geojsonPath)

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	startTime := time.Now()

	// Parse sector polygons
	log.Println("Step 1/3: Parsing GeoJSON feature collection...")
	features, err := sectors.ParseFeatureCollection(*geojsonPath)
	if err != nil {
		log.Fatalf("Failed to parse GeoJSON: %v", err)
	}
	if len(features) == 0 {
		log.Fatal("No usable sector features found")
	}

	store := sectors.NewPostgresStore(pool)

	// Make sure the sectors table and spatial index exist
	log.Println("Step 2/3: Ensuring sector schema...")
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Load everything in one transaction
	log.Println("Step 3/3: Writing sectors to database...")
	count, err := store.ReplaceSectors(ctx, features, *truncate)
	if err != nil {
		log.Fatalf("Failed to import sectors: %v", err)
	}

	log.Printf("Imported %d sectors in %s", count, time.Since(startTime))
}
