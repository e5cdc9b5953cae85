// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"

	"github.com/jcodagnone/cazipcode/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveOptions = server.Options{}
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long: `
serve exposes the search engine as a JSON API:
  GET  /api/search?<criteria>   criteria as query parameters
  POST /api/search              criteria as a JSON object
  GET  /api/postalcodes/:code   single postal code lookup
  GET  /api/random?returns=N    random postal codes
  GET  /api/resolve/:field      canonical province, city or area name
  GET  /api/health              liveness and vocabulary sizes
  GET  /metrics                 Prometheus metrics
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		engine, release, err := options.openEngine(cmd.Context())
		if err != nil {
			return err
		}

		defer func() { err = errors.Join(err, release()) }()

		return server.NewServer(engine, serveOptions).Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Address to listen on")
	serveCmd.Flags().StringSliceVar(
		&serveOptions.AllowedOrigins,
		"cors-origin",
		nil,
		"Origins allowed by CORS. Defaults to any origin",
	)
	serveCmd.Flags().Float64Var(
		&serveOptions.RateLimit,
		"rate-limit",
		0,
		"Maximum API requests per second, 0 for no limit",
	)
	serveCmd.Flags().IntVar(&serveOptions.Burst, "rate-burst", 0, "Requests allowed above the rate limit in a burst")
}
