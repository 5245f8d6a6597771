package main

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/config"
	"smartreceipts/pkg/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "nfce",
	Short:         "Scan and parse Brazilian NFC-e receipts",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		applog.Setup(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func openLocal() (*store.Bolt, error) {
	return store.NewBolt(cfg.Local.BoltPath)
}
