package main

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli"

	"github.com/inspirepir/inspire/broadcast"
	"github.com/inspirepir/inspire/bucketdb"
	"github.com/inspirepir/inspire/updater"
)

// Config is the pir-updater binary's flag-to-struct wiring.
type Config struct {
	DataDir   string
	FeedPath  string
	AtBlock   uint64
	WSEnabled bool
}

func main() {
	app := cli.NewApp()
	app.Name = "pir-updater"
	app.Usage = "apply bucket-count deltas to the live index as new blocks arrive"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "datadir", Value: "./data", Usage: "directory holding the bucket index and delta archive"},
		cli.StringFlag{Name: "feed", Usage: "path to a file of length-prefixed delta records, or - for stdin"},
		cli.Uint64Flag{Name: "at-block", Usage: "block number the starting snapshot was built from"},
	}
	app.Action = func(c *cli.Context) error {
		cfg := Config{
			DataDir:  c.String("datadir"),
			FeedPath: c.String("feed"),
			AtBlock:  c.Uint64("at-block"),
		}
		return run(cfg)
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("pir-updater: fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	var counts [bucketdb.NumBuckets]uint16
	idx := bucketdb.New(counts)

	hub := broadcast.New()
	u := updater.New(idx, cfg.DataDir, cfg.AtBlock, hub)

	feed, err := openFeed(cfg.FeedPath)
	if err != nil {
		return err
	}
	defer feed.Close()

	for {
		delta, err := readDelta(feed)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := u.ApplyBlock(delta); err != nil {
			return err
		}
		log.Info("pir-updater: applied block", "block", delta.BlockNumber, "updates", len(delta.Updates))
	}
}

func openFeed(path string) (*os.File, error) {
	if path == "" || path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

// readDelta reads one length-prefixed bucketdb.Delta record: a 4-byte
// little-endian length followed by that many bytes of Delta.Encode
// output.
func readDelta(r io.Reader) (bucketdb.Delta, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return bucketdb.Delta{}, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return bucketdb.Delta{}, err
	}
	return bucketdb.DecodeDelta(payload)
}
