package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli"

	"github.com/inspirepir/inspire/client"
	"github.com/inspirepir/inspire/lanerouter"
)

// Config is the pir-client binary's flag-to-struct wiring.
type Config struct {
	ServerURL string
	HintsPath string
}

func main() {
	app := cli.NewApp()
	app.Name = "pir-client"
	app.Usage = "issue private storage queries against a pir-server and recover hint-covered entries"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "server", Value: "http://localhost:8080", Usage: "pir-server base URL"},
		cli.StringFlag{Name: "hints", Value: "./hints.json", Usage: "path to the local hint store"},
	}
	app.Commands = []cli.Command{
		{
			Name:  "balance",
			Usage: "privately fetch a known token's balance for a holder address",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "token", Required: true, Usage: "token contract address (hex)"},
				cli.Uint64Flag{Name: "balance-slot", Required: true, Usage: "token's balances-mapping slot number"},
				cli.StringFlag{Name: "holder", Required: true, Usage: "holder address (hex)"},
				cli.StringFlag{Name: "manifest", Required: true, Usage: "hot lane manifest JSON, for routing the slot to a database index"},
			},
			Action: func(c *cli.Context) error {
				return runBalance(globalConfig(c), c)
			},
		},
		{
			Name:  "query",
			Usage: "privately fetch the raw entry at a database index",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "index", Required: true, Usage: "target database index"},
			},
			Action: func(c *cli.Context) error {
				return runQuery(globalConfig(c), c)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("pir-client: fatal", "err", err)
		os.Exit(1)
	}
}

func globalConfig(c *cli.Context) Config {
	return Config{
		ServerURL: c.GlobalString("server"),
		HintsPath: c.GlobalString("hints"),
	}
}

func runQuery(cfg Config, c *cli.Context) error {
	hints, err := client.LoadHintStore(cfg.HintsPath)
	if err != nil {
		return err
	}
	pc := client.NewPirClient(hints, cfg.ServerURL)

	result, err := pc.Query(context.Background(), c.Uint64("index"))
	if err != nil {
		return err
	}
	log.Info("pir-client: recovered entry", "index", c.Uint64("index"), "query_time", result.QueryTime, "server_time_ms", result.ServerTimeMs)
	fmt.Printf("%x\n", result.Entry)
	return nil
}

func runBalance(cfg Config, c *cli.Context) error {
	hints, err := client.LoadHintStore(cfg.HintsPath)
	if err != nil {
		return err
	}

	token, err := client.ParseAddressHex(c.String("token"))
	if err != nil {
		return err
	}
	holder, err := client.ParseAddressHex(c.String("holder"))
	if err != nil {
		return err
	}
	slot := client.ComputeBalanceSlot(holder, uint32(c.Uint64("balance-slot")))

	manifest, err := loadManifest(c.String("manifest"))
	if err != nil {
		return err
	}
	router := lanerouter.New(manifest)

	routed, ok := router.Resolve(lanerouter.QueryTarget{Contract: token, Slot: slot})
	if !ok {
		return fmt.Errorf("token %s has no routable storage for this slot", c.String("token"))
	}

	pc := client.NewPirClient(hints, cfg.ServerURL)
	result, err := pc.Query(context.Background(), routed.Index)
	if err != nil {
		return err
	}
	log.Info("pir-client: recovered balance", "lane", routed.Lane, "index", routed.Index, "query_time", result.QueryTime)
	fmt.Printf("%x\n", result.Entry)
	return nil
}

func loadManifest(path string) (*lanerouter.HotLaneManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return lanerouter.DecodeManifestJSON(data)
}
