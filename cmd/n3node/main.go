package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n3node/core/pkg/config"
	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/ledger"
	"github.com/n3node/core/pkg/logging"
	"github.com/n3node/core/pkg/p2p"
	"github.com/n3node/core/pkg/store"
)

// main wires the cobra root command, mirroring cmd/synnergy/main.go's
// flat rootCmd.AddCommand(...) style rather than a generated-CLI framework.
func main() {
	rootCmd := &cobra.Command{Use: "n3node"}
	rootCmd.PersistentFlags().String("env", "", "environment overlay to merge over the default config")
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chainCmd())
	rootCmd.AddCommand(mempoolCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	env, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(env)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(cfg.Logging.Level)
	return cfg, nil
}

func openChain(cfg *config.Config) (*ledger.Blockchain, error) {
	var backing store.Store
	if cfg.Storage.DBPath == "" || cfg.Storage.DBPath == ":memory:" {
		backing = store.NewMemStore()
	} else {
		bs, err := store.OpenBoltStore(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("n3node: opening store: %w", err)
		}
		backing = bs
	}

	var nextConsensus hashing.Hash160
	if cfg.Ledger.NextConsensus != "" {
		h, err := hashing.BytesToHash160([]byte(cfg.Ledger.NextConsensus))
		if err != nil {
			return nil, fmt.Errorf("n3node: parsing next_consensus: %w", err)
		}
		nextConsensus = h
	}

	capacity := cfg.Ledger.MempoolCapacity
	if capacity <= 0 {
		capacity = 50000
	}
	return ledger.New(ledger.Config{
		Store:           backing,
		MempoolCapacity: capacity,
		NextConsensus:   nextConsensus,
		GenesisTimeMS:   cfg.Ledger.GenesisTimeMS,
	})
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the full node: opens the ledger and joins the gossip network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logging.Component("n3node")

			bc, err := openChain(cfg)
			if err != nil {
				return err
			}
			log.WithFields(map[string]any{
				"height": bc.CurrentIndex(),
				"hash":   bc.CurrentHash().String(),
			}).Info("ledger ready")

			if cfg.P2P.ListenAddr != "" {
				g, err := p2p.NewGossip(cfg.P2P.ListenAddr)
				if err != nil {
					return fmt.Errorf("n3node: starting gossip: %w", err)
				}
				defer g.Close()
				log.WithField("peer_id", g.ID()).Info("p2p gossip listening")
			}

			log.Info("node running; press Ctrl+C to stop")
			select {}
		},
	}
	return cmd
}

func chainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "chain"}

	height := &cobra.Command{
		Use:   "height",
		Short: "print the current ledger height and tip hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			bc, err := openChain(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("height=%d hash=%s\n", bc.CurrentIndex(), bc.CurrentHash().String())
			return nil
		},
	}

	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "import a raw block stream and stop at the first verification failure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			bc, err := openChain(cfg)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("n3node: reading %s: %w", args[0], err)
			}
			blocks, err := ledger.DecodeBlockStream(raw)
			if err != nil {
				return fmt.Errorf("n3node: decoding block stream: %w", err)
			}
			n, err := bc.ImportBlocks(blocks)
			fmt.Printf("imported %d of %d blocks\n", n, len(blocks))
			return err
		},
	}

	cmd.AddCommand(height, imp)
	return cmd
}

func mempoolCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "mempool"}

	dump := &cobra.Command{
		Use:   "dump",
		Short: "list the highest-priority transactions currently in the mempool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			bc, err := openChain(cfg)
			if err != nil {
				return err
			}
			for _, tx := range bc.Mempool().GetTransactionsForBlock(bc.Mempool().Len()) {
				h, err := tx.Hash()
				if err != nil {
					return err
				}
				fmt.Printf("%s nonce=%d system_fee=%d network_fee=%d\n", h.String(), tx.Nonce, tx.SystemFee, tx.NetworkFee)
			}
			return nil
		},
	}

	cmd.AddCommand(dump)
	return cmd
}
