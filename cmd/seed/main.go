// Command seed loads a catalog YAML file into the configured database.
//
//	go run ./cmd/seed -file data/catalog.yaml
//
// Seeding upserts by name, so it is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
	"github.com/tbourn/go-printshop-assistant/internal/sysutil"
)

func main() {
	file := flag.String("file", "data/catalog.yaml", "catalog YAML file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	seed, err := loadCatalog(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("read catalog")
	}

	db, err := repo.Open(cfg.DB, false)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	st, err := repo.SeedCatalog(context.Background(), db, seed)
	if err != nil {
		log.Fatal().Err(err).Msg("seed catalog")
	}
	log.Info().
		Int("categories", st.Categories).
		Int("sub_categories", st.SubCategories).
		Int("products", st.Products).
		Int("attributes", st.Attributes).
		Int("links", st.Links).
		Msg("catalog seeded")
}

func loadCatalog(path string) (repo.CatalogSeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return repo.CatalogSeed{}, err
	}
	defer f.Close()
	return decodeCatalog(f)
}

// decodeCatalog rejects unknown keys so typos in the file do not silently
// drop data.
func decodeCatalog(r io.Reader) (repo.CatalogSeed, error) {
	var seed repo.CatalogSeed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return seed, fmt.Errorf("decode catalog: %w", err)
	}
	if len(seed.Categories) == 0 {
		return seed, errors.New("catalog has no categories")
	}
	return seed, nil
}
