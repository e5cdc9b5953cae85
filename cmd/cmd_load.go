// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jcodagnone/cazipcode/dataset"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [csv]",
	Short: "Load a CSV dataset into the DuckDB database given by --db",
	Long: `
load validates every record of the CSV dataset (the positional argument, --data,
or the embedded sample; files and http(s) URLs) and stores it in the DuckDB database given by --db.
Existing postal codes are replaced.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if options.DBPath == "" {
			return errors.New("--db is required")
		}

		path := options.DataPath
		if len(args) > 0 {
			path = args[0]
		}

		codes, err := options.loadDataset(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("loading dataset: %w", err)
		}

		db, err := sql.Open("duckdb", options.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo := dataset.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(codes),
				progressbar.OptionSetDescription("Loading "+options.DBPath),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		progress := func(n int) {
			if bar != nil {
				_ = bar.Add(n)
			}
		}

		if err := repo.Insert(codes, progress); err != nil {
			return fmt.Errorf("storing postal codes: %w", err)
		}

		n, err := repo.Count()
		if err != nil {
			return fmt.Errorf("counting postal codes: %w", err)
		}

		log.Printf("Loaded %d postal codes, %d in %s", len(codes), n, options.DBPath)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
