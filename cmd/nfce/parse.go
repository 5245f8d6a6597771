package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"smartreceipts/pkg/nfce"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse recognized receipt text and print it as JSON",
	Long:  `Reads OCR text from a file, or from stdin when the argument is "-" or missing.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), nfce.Parse(string(data)))
}
