// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <input> <output>",
	Short: "Convert a results file to another format",
	Long: `Export reads papers from a CSV or Excel results file and writes them to
output as CSV, JSON, YAML, or Excel. The format comes from --format or the
output file extension.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		papers, err := readResults(args[0])
		if err != nil {
			return err
		}
		if err := exportResults(cmd, papers, args[1]); err != nil {
			return err
		}
		fmt.Printf("Wrote %d papers to %s\n", len(papers), args[1])
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "", "output format: csv, json, yaml, excel, csl (default: from extension)")

	rootCmd.AddCommand(exportCmd)
}
