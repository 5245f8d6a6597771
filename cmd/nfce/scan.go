package main

import (
	"errors"

	"github.com/spf13/cobra"

	"smartreceipts/pkg/ocr"
	"smartreceipts/pkg/ocr/engines"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Run the full pipeline on an image with the configured OCR engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var scanSave bool

func init() {
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "save the receipt in the local store (BOLT_PATH)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	scanner, err := engines.NewScanner(ctx, cfg.OCR)
	if err != nil {
		return err
	}
	defer scanner.Close()

	receipt, err := scanner.ScanFile(ctx, args[0])
	if err != nil {
		return errors.New(ocr.UserMessage(err) + ": " + err.Error())
	}
	if scanSave {
		st, err := openLocal()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Save(ctx, &receipt); err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), receipt)
}
