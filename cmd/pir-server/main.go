package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli"

	"github.com/inspirepir/inspire/broadcast"
	"github.com/inspirepir/inspire/bucketdb"
	"github.com/inspirepir/inspire/database"
	"github.com/inspirepir/inspire/lanerouter"
	"github.com/inspirepir/inspire/pir"
	"github.com/inspirepir/inspire/server"
	"github.com/inspirepir/inspire/updater"
)

const snapshotFileName = "bucket-index.bin"

// Config is the pir-server binary's flag-to-struct wiring, following
// the teacher's cmd/headers/commands/download.go convention of one
// struct per binary populated straight from cli.Context.
type Config struct {
	Addr         string
	DataDir      string
	HotDBPath    string
	ColdDBPath   string
	ManifestPath string
}

func main() {
	app := cli.NewApp()
	app.Name = "pir-server"
	app.Usage = "serve PIR queries, the bucket index, and delta archives over HTTP"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address"},
		cli.StringFlag{Name: "datadir", Value: "./data", Usage: "directory holding the bucket index and delta archive"},
		cli.StringFlag{Name: "hot-db", Usage: "path to the hot lane's flat entry file"},
		cli.StringFlag{Name: "cold-db", Usage: "path to the cold lane's flat entry file"},
		cli.StringFlag{Name: "manifest", Usage: "path to the hot lane manifest JSON"},
	}
	app.Action = func(c *cli.Context) error {
		cfg := Config{
			Addr:         c.String("addr"),
			DataDir:      c.String("datadir"),
			HotDBPath:    c.String("hot-db"),
			ColdDBPath:   c.String("cold-db"),
			ManifestPath: c.String("manifest"),
		}
		return run(cfg)
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("pir-server: fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	idx, err := loadIndex(cfg.DataDir)
	if err != nil {
		return err
	}

	hub := broadcast.New()
	u := updater.New(idx, cfg.DataDir, 0, hub)

	srv := &server.Server{Updater: u, Broadcast: hub}

	if cfg.HotDBPath != "" {
		hotDB, err := database.Open(cfg.HotDBPath)
		if err != nil {
			return err
		}
		srv.HotBackend = pir.NewXORSubsetBackend(hotDB)
	}
	if cfg.ColdDBPath != "" {
		coldDB, err := database.Open(cfg.ColdDBPath)
		if err != nil {
			return err
		}
		srv.ColdBackend = pir.NewXORSubsetBackend(coldDB)
	}
	if cfg.ManifestPath != "" {
		manifest, err := loadManifest(cfg.ManifestPath)
		if err != nil {
			return err
		}
		srv.Router = lanerouter.New(manifest)
	}

	log.Info("pir-server: listening", "addr", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, srv.NewRouter())
}

// loadIndex reads the persisted snapshot from dataDir if one exists,
// otherwise starts from an all-zero index (a fresh deployment waiting
// for pir-updater to catch it up block by block).
func loadIndex(dataDir string) (*bucketdb.Index, error) {
	var counts [bucketdb.NumBuckets]uint16
	if dataDir == "" {
		return bucketdb.New(counts), nil
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, snapshotFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return bucketdb.New(counts), nil
		}
		return nil, err
	}
	return bucketdb.DecodeCompressed(raw)
}

// loadManifest reads the manifest.json published by pir-seeder's
// lane-builder subcommand.
func loadManifest(path string) (*lanerouter.HotLaneManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return lanerouter.DecodeManifestJSON(data)
}
