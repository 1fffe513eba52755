package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli"

	"github.com/inspirepir/inspire/bucketdb"
	"github.com/inspirepir/inspire/client"
	"github.com/inspirepir/inspire/common"
	"github.com/inspirepir/inspire/database"
	"github.com/inspirepir/inspire/lanerouter"
	"github.com/inspirepir/inspire/pir"
	"github.com/inspirepir/inspire/publish"
)

func main() {
	app := cli.NewApp()
	app.Name = "pir-seeder"
	app.Usage = "build the bucket index and flat database from a record dump, and generate client hints"
	app.Commands = []cli.Command{
		buildCommand,
		laneBuilderCommand,
		coldLaneBuilderCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("pir-seeder: fatal", "err", err)
		os.Exit(1)
	}
}

var buildCommand = cli.Command{
	Name:  "build",
	Usage: "read a record file, build the bucket index and database, and publish both; a fresh hint set is generated and counted but not published",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "records", Required: true, Usage: "path to the flat 84-byte record dump"},
		cli.StringFlag{Name: "out", Value: "./artifacts", Usage: "local directory to publish built artifacts into"},
		cli.IntFlag{Name: "workers", Value: 1, Usage: "number of goroutines to use for hint generation"},
	},
	Action: func(c *cli.Context) error {
		return runBuild(c)
	},
}

func runBuild(c *cli.Context) error {
	records, err := readRecords(c.String("records"))
	if err != nil {
		return err
	}
	log.Info("pir-seeder: read records", "count", len(records))

	// Bucket-sort records by bucket id so the physical layout invariant
	// bucketdb.Index.CheckLayout enforces holds by construction: all of
	// a bucket's entries occupy a contiguous index range.
	sort.SliceStable(records, func(i, j int) bool {
		return bucketdb.BucketID(records[i].Address, records[i].Slot) < bucketdb.BucketID(records[j].Address, records[j].Slot)
	})

	counts := make(map[uint32]uint64, len(records))
	entries := make([]pir.Hint, len(records))
	for i, rec := range records {
		id := bucketdb.BucketID(rec.Address, rec.Slot)
		counts[id]++
		entries[i] = pir.Hint(rec.Value)
	}

	idx, err := bucketdb.NewFromCounts(counts)
	if err != nil {
		return err
	}

	publisher, err := publish.NewLocalPublisher(c.String("out"))
	if err != nil {
		return err
	}

	if err := publisher.Publish("bucket-index.bin", idx.EncodeCompressed()); err != nil {
		return err
	}

	dbBytes := make([]byte, 0, database.HeaderSize+len(entries)*pir.EntrySize)
	dbBytes = append(dbBytes, database.EncodeHeader(uint64(len(entries)))...)
	for _, e := range entries {
		dbBytes = append(dbBytes, e[:]...)
	}
	if err := publisher.Publish("database.bin", dbBytes); err != nil {
		return err
	}
	log.Info("pir-seeder: published bucket index and database", "entries", len(entries), "buckets_used", len(counts))

	source := constSource{entries: entries}
	config := pir.EthereumMainnetConfig()
	hints := pir.GenerateHintsParallel(source, config, c.Int("workers"))
	log.Info("pir-seeder: generated hints", "count", len(hints))

	return nil
}

type constSource struct {
	entries []pir.Hint
}

func (s constSource) GetEntry(idx uint64) pir.Hint {
	if idx < uint64(len(s.entries)) {
		return s.entries[idx]
	}
	return pir.Hint{}
}
func (s constSource) EntryCount() uint64 { return uint64(len(s.entries)) }

var coldLaneBuilderCommand = cli.Command{
	Name:  "cold-lane-builder",
	Usage: "build the cold lane's flat database by hashing every record's (address, slot) into its shared index space",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "records", Required: true, Usage: "path to the flat 84-byte record dump"},
		cli.Uint64Flag{Name: "total-entries", Required: true, Usage: "cold lane's total index space (hash64(addr||slot) mod total_entries)"},
		cli.StringFlag{Name: "out", Value: "./artifacts", Usage: "local directory to publish the built database into"},
	},
	Action: func(c *cli.Context) error {
		return runColdLaneBuilder(c)
	},
}

// runColdLaneBuilder places every record at its cold_index (spec.md
// §4.7) and publishes the resulting flat database. cold_index is
// probabilistic, so every (contract, slot) pair is checked for a
// collision against the whole record set before any index is
// materialized — analogous to bucketdb.NewFromCounts's uint16-overflow
// check for the bucket-index build path.
func runColdLaneBuilder(c *cli.Context) error {
	records, err := readRecords(c.String("records"))
	if err != nil {
		return err
	}
	totalEntries := c.Uint64("total-entries")
	log.Info("pir-seeder: read cold lane records", "count", len(records), "total_entries", totalEntries)

	targets := make([]lanerouter.QueryTarget, len(records))
	for i, rec := range records {
		targets[i] = lanerouter.QueryTarget{Contract: rec.Address, Slot: rec.Slot}
	}
	if err := lanerouter.DetectColdCollisions(targets, totalEntries); err != nil {
		return err
	}

	entries := make([]pir.Hint, totalEntries)
	for i, rec := range records {
		idx, ok := lanerouter.ColdIndex(targets[i].Contract, targets[i].Slot, totalEntries)
		if !ok {
			return fmt.Errorf("record %d: cold lane has zero total_entries", i)
		}
		entries[idx] = pir.Hint(rec.Value)
	}

	dbBytes := make([]byte, 0, database.HeaderSize+len(entries)*pir.EntrySize)
	dbBytes = append(dbBytes, database.EncodeHeader(uint64(len(entries)))...)
	for _, e := range entries {
		dbBytes = append(dbBytes, e[:]...)
	}

	publisher, err := publish.NewLocalPublisher(c.String("out"))
	if err != nil {
		return err
	}
	if err := publisher.Publish("cold-database.bin", dbBytes); err != nil {
		return err
	}
	log.Info("pir-seeder: published cold lane database", "records", len(records), "total_entries", totalEntries)
	return nil
}

// readRecords reads RecordLength-byte records until EOF, rejecting a
// trailing partial record.
func readRecords(path string) ([]common.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	var records []common.Record
	buf := make([]byte, common.RecordLength)
	for {
		n, err := readFullOrEOF(r, buf)
		if n == 0 && err != nil {
			break
		}
		if n != common.RecordLength {
			return nil, fmt.Errorf("truncated record: got %d of %d bytes", n, common.RecordLength)
		}
		rec, decodeErr := common.DecodeRecord(buf)
		if decodeErr != nil {
			return nil, decodeErr
		}
		records = append(records, rec)
		if err != nil {
			break
		}
	}
	return records, nil
}

func readFullOrEOF(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

var laneBuilderCommand = cli.Command{
	Name:  "lane-builder",
	Usage: "build a hot-lane manifest from a list of known high-traffic contracts",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "contracts", Required: true, Usage: "path to a tab-separated file: address, symbol, slot_count, category"},
		cli.StringFlag{Name: "out", Value: "./artifacts", Usage: "local directory to publish the manifest into"},
	},
	Action: func(c *cli.Context) error {
		return runLaneBuilder(c)
	},
}

func runLaneBuilder(c *cli.Context) error {
	f, err := os.Open(c.String("contracts"))
	if err != nil {
		return err
	}
	defer f.Close()

	var totalSlots uint64
	type entry struct {
		addr      common.Address
		symbol    string
		slotCount uint64
		category  string
	}
	var rows []entry

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var addrHex, symbol, category string
		var slotCount uint64
		if _, err := fmt.Sscanf(line, "%s %s %d %s", &addrHex, &symbol, &slotCount, &category); err != nil {
			return fmt.Errorf("parsing contract line %q: %w", line, err)
		}
		addr, err := client.ParseAddressHex(addrHex)
		if err != nil {
			return err
		}
		rows = append(rows, entry{addr: addr, symbol: symbol, slotCount: slotCount, category: category})
		totalSlots += slotCount
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	manifest := lanerouter.NewHotLaneManifest(totalSlots)
	for _, row := range rows {
		manifest.AddContract(row.addr, row.symbol, row.slotCount, row.category)
	}

	data, err := lanerouter.EncodeManifestJSON(manifest)
	if err != nil {
		return err
	}

	publisher, err := publish.NewLocalPublisher(c.String("out"))
	if err != nil {
		return err
	}
	if err := publisher.Publish("manifest.json", data); err != nil {
		return err
	}
	log.Info("pir-seeder: published hot lane manifest", "contracts", len(rows), "total_slots", totalSlots)
	return nil
}
