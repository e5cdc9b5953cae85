// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/jcodagnone/cazipcode/dataset"
	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/spf13/cobra"
)

var (
	cellsResolution int
	cellsReturns    int
)

var cellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Aggregate postal codes into H3 cells, most populated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd.Context(), func(s *postalcode.Session) error {
			codes, err := s.All(cmd.Context(), postalcode.FieldNone, false)
			if err != nil {
				return err
			}

			cells, err := dataset.Density(codes, cellsResolution)
			if err != nil {
				return err
			}

			if cellsReturns > 0 && len(cells) > cellsReturns {
				cells = cells[:cellsReturns]
			}

			return writeCells(cmd.OutOrStdout(), cells, options.JSON)
		})
	},
}

func init() {
	rootCmd.AddCommand(cellsCmd)
	cellsCmd.Flags().IntVar(&cellsResolution, "res", 6, "H3 resolution, 0 to 15")
	cellsCmd.Flags().IntVar(&cellsReturns, "returns", 10, "Maximum number of cells, 0 for all")
}
