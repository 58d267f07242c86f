// Command beaconsim runs an in-process network of simulated proof-of-stake
// validator nodes: block proposal, RANDAO-seeded proposer scheduling,
// LMD-GHOST fork choice, and inter-node chain sync, all driven by a single
// slot clock. Grounded on the teacher's cmd/equa-beacon-engine/main.go
// (flag-driven config, glogger setup, signal handling, periodic stats
// ticker), adapted from flag.String/flag.Duration to urfave/cli/v2 per the
// teacher's own go.mod dependency and its cmd/geth subcommand-registration
// idiom.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/clock"
	"github.com/beaconsim/beaconsim/consensus"
	"github.com/beaconsim/beaconsim/network"
	"github.com/beaconsim/beaconsim/params"
	"github.com/beaconsim/beaconsim/proposer"
	"github.com/beaconsim/beaconsim/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	validatorsFlag = &cli.IntFlag{
		Name:  "validators",
		Value: 5,
		Usage: "number of simulated validator nodes to bootstrap",
	}
	slotDurationFlag = &cli.DurationFlag{
		Name:  "slot-duration",
		Value: 12 * time.Second,
		Usage: "wall-clock duration of one slot",
	}
	slotsPerEpochFlag = &cli.Uint64Flag{
		Name:  "slots-per-epoch",
		Value: 32,
		Usage: "number of slots per epoch",
	}
	statsIntervalFlag = &cli.DurationFlag{
		Name:  "stats-interval",
		Value: 30 * time.Second,
		Usage: "how often to log aggregate network stats",
	}
	dropRateFlag = &cli.Float64Flag{
		Name:  "drop-rate",
		Value: 0,
		Usage: "probability in [0,1] that a direct block/attestation delivery is simulated as dropped, forcing sync recovery",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0=crit .. 5=trace)",
	}
)

func main() {
	app := &cli.App{
		Name:  "beaconsim",
		Usage: "simulate a RANDAO/LMD-GHOST proof-of-stake beacon chain",
		Flags: []cli.Flag{validatorsFlag, slotDurationFlag, slotsPerEpochFlag, statsIntervalFlag, dropRateFlag, verbosityFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("beaconsim exited with error", "err", err)
	}
}

func run(c *cli.Context) error {
	glogger := log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, true))
	glogger.Verbosity(log.FromLegacyLevel(c.Int(verbosityFlag.Name)))
	log.SetDefault(log.NewLogger(glogger))

	log.Info("beaconsim starting",
		"validators", c.Int(validatorsFlag.Name),
		"slotDuration", c.Duration(slotDurationFlag.Name),
		"slotsPerEpoch", c.Uint64(slotsPerEpochFlag.Name))

	cfg := params.DefaultConfig()
	cfg.SecondsPerSlot = c.Duration(slotDurationFlag.Name)
	cfg.SlotsPerEpoch = c.Uint64(slotsPerEpochFlag.Name)

	net, nodes, err := bootstrapNetwork(cfg, c.Int(validatorsFlag.Name))
	if err != nil {
		return fmt.Errorf("bootstrap network: %w", err)
	}
	net.SetDropRate(c.Float64(dropRateFlag.Name))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	statsTicker := time.NewTicker(c.Duration(statsIntervalFlag.Name))
	defer statsTicker.Stop()

	slotClock := clock.New(cfg.SecondsPerSlot, 1)
	clockDone := make(chan struct{})
	go func() {
		slotClock.Run(ctx, net.Tick)
		close(clockDone)
	}()

	log.Info("beaconsim running", "nodes", len(nodes))

	for {
		select {
		case <-sigCh:
			log.Info("shutdown signal received")
			cancel()
			<-clockDone
			return nil
		case <-statsTicker.C:
			logNetworkStats(nodes)
		}
	}
}

// bootstrapNetwork creates count validator nodes sharing one genesis block
// and validator registry, mirroring the teacher's
// Equa.initializeGenesisValidators (every node starts with an identical
// view of the validator set so proposer scheduling agrees network-wide).
func bootstrapNetwork(cfg *params.Config, count int) (*network.Network, []*consensus.Node, error) {
	if count < 1 {
		return nil, nil, fmt.Errorf("beaconsim: need at least 1 validator, got %d", count)
	}

	type bootValidator struct {
		keys    *beaconcrypto.KeyPair
		blsKeys *beaconcrypto.BLSKeyPair
	}
	boot := make([]bootValidator, count)
	validators := make([]*types.Validator, count)
	for i := range boot {
		seed := fmt.Sprintf("beaconsim-genesis-validator-%d", i)
		keys := beaconcrypto.DeriveKeyPair([]byte(seed))
		blsKeys := beaconcrypto.DeriveBLSKeyPair([]byte(seed))
		boot[i] = bootValidator{keys: keys, blsKeys: blsKeys}
		validators[i] = &types.Validator{
			Address:          keys.Address,
			PublicKey:        keys.Public.SerializeCompressed(),
			RandaoPublicKey:  blsKeys.Public.Compress(),
			EffectiveBalance: cfg.MaxEffectiveBalance,
			Active:           true,
		}
	}

	genesis := &types.Block{Header: types.BlockHeader{
		ParentHash: types.ZeroHash,
		Height:     0,
		Proposer:   boot[0].keys.Address,
	}}
	genesis.Header.Hash = beaconcrypto.HashBlockHeader(&genesis.Header)

	active := make([]*types.Validator, len(validators))
	copy(active, validators)
	genesisSchedule := proposer.Schedule(0, cfg.SlotsPerEpoch, active, cfg.MaxEffectiveBalance, [32]byte{})

	net := network.New(time.Now().UnixNano())
	nodes := make([]*consensus.Node, count)
	for i, bv := range boot {
		id := fmt.Sprintf("node-%d", i)
		n, err := consensus.New(id, bv.keys, bv.blsKeys, cfg, genesis)
		if err != nil {
			return nil, nil, fmt.Errorf("construct %s: %w", id, err)
		}
		for _, v := range validators {
			n.RegisterValidator(v)
		}
		n.InstallEpochSchedule(genesisSchedule)
		net.AddNode(n)
		nodes[i] = n
	}

	return net, nodes, nil
}

func logNetworkStats(nodes []*consensus.Node) {
	for _, n := range nodes {
		st := n.Stats()
		snap := n.Snapshot()
		log.Info("node stats",
			"node", n.ID(),
			"head", snap.Head.Hex()[:10],
			"slotsProcessed", st.SlotsProcessed,
			"blocksProposed", st.BlocksProposed,
			"missedSlots", st.MissedSlots,
			"reorgs", st.Reorganizations)
	}
}
