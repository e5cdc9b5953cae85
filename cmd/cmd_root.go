// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/cazipcode/dataset"
	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/jcodagnone/cazipcode/utils/httputils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "cazip",
	Short: "Canadian postal code search",
	Long: `
cazip answers radius, prefix, name and attribute queries over a dataset of
geocoded Canadian postal codes. Queries run against the CSV dataset given by
--data (the embedded sample by default), or against a DuckDB database built
with 'cazip load' when --db is set.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return applyEnv(cmd, os.LookupEnv)
	},
}

// envPrefix prefixes the environment variables that provide defaults for
// the global flags: CAZIP_DB for --db, CAZIP_TRACE_HTTP for --trace-http.
const envPrefix = "CAZIP_"

// applyEnv sets the global flags not given on the command line from the
// environment.
func applyEnv(cmd *cobra.Command, lookup func(string) (string, bool)) error {
	var err error

	cmd.Root().PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		name := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := lookup(name); ok {
			if setErr := cmd.Root().PersistentFlags().Set(f.Name, v); setErr != nil {
				err = fmt.Errorf("invalid %s: %w", name, setErr)
			}
		}
	})

	return err
}

type cmdOptions struct {
	DataPath   string
	DBPath     string
	Threshold  float64
	Unresolved string
	JSON       bool
	TraceHTTP  bool
}

var options = &cmdOptions{}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	// a missing .env file is fine
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&options.DataPath,
		"data",
		"",
		"CSV dataset to query. Defaults to the embedded sample",
	)
	rootCmd.PersistentFlags().StringVar(
		&options.DBPath,
		"db",
		"",
		"DuckDB database to query instead of the CSV dataset",
	)
	rootCmd.PersistentFlags().Float64Var(
		&options.Threshold,
		"threshold",
		postalcode.DefaultMatchThreshold,
		"Minimum similarity for province, city and area names to match",
	)
	rootCmd.PersistentFlags().StringVar(
		&options.Unresolved,
		"unresolved",
		postalcode.UnresolvedDrop.String(),
		"What to do with names that match nothing: drop, empty or fail",
	)
	rootCmd.PersistentFlags().BoolVar(
		&options.JSON,
		"json",
		false,
		"Print results as JSON",
	)
	rootCmd.PersistentFlags().BoolVar(
		&options.TraceHTTP,
		"trace-http",
		false,
		"Display the HTTP requests and responses made to download --data",
	)
}

// loadDataset reads the dataset at location: a CSV file, an http(s) URL, or
// the embedded sample when location is empty.
func (o *cmdOptions) loadDataset(ctx context.Context, location string) ([]postalcode.PostalCode, error) {
	if !httputils.IsURL(location) {
		return dataset.Load(location)
	}

	clientOptions := httputils.ClientOptions{
		UserAgent: fmt.Sprintf("cazip/%s (+https://github.com/jcodagnone/cazipcode)", Version),
		Timeout:   5 * time.Minute,
	}
	if o.TraceHTTP {
		clientOptions.Trace = os.Stderr
	}

	log.Printf("Downloading %s", location)

	body, err := httputils.Get(ctx, httputils.NewClient(clientOptions), location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	u, err := url.Parse(location)
	if err != nil {
		return nil, err
	}

	r, err := dataset.Decompress(u.Path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	defer r.Close()

	codes, err := dataset.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	return codes, nil
}

// openSource returns the configured data source and a function releasing it.
func (o *cmdOptions) openSource(ctx context.Context) (postalcode.Source, func() error, error) {
	if o.DBPath == "" {
		codes, err := o.loadDataset(ctx, o.DataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading dataset: %w", err)
		}

		m, err := dataset.NewMemory(codes)
		if err != nil {
			return nil, nil, fmt.Errorf("indexing dataset: %w", err)
		}

		return m, func() error { return nil }, nil
	}

	if _, err := os.Stat(o.DBPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("database not found at %s - run 'cazip load' first", o.DBPath)
	}

	db, err := sql.Open("duckdb", o.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := dataset.NewRepository(db)

	n, err := repo.Count()
	if err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("counting postal codes in %s: %w", o.DBPath, err)
	}

	log.Printf("Querying %d postal codes from %s", n, o.DBPath)

	return repo, db.Close, nil
}

// openEngine builds an Engine over the configured data source.
func (o *cmdOptions) openEngine(ctx context.Context) (*postalcode.Engine, func() error, error) {
	policy, err := postalcode.ParseUnresolvedPolicy(o.Unresolved)
	if err != nil {
		return nil, nil, err
	}

	src, release, err := o.openSource(ctx)
	if err != nil {
		return nil, nil, err
	}

	engine, err := postalcode.NewEngine(ctx, src, postalcode.Options{
		MatchThreshold: o.Threshold,
		UnresolvedName: policy,
	})
	if err != nil {
		return nil, nil, errors.Join(err, release())
	}

	return engine, release, nil
}

// withSession runs fn on a session of the configured engine.
func withSession(ctx context.Context, fn func(*postalcode.Session) error) (err error) {
	engine, release, err := options.openEngine(ctx)
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, release()) }()

	session, err := engine.Open(ctx)
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, session.Close()) }()

	return fn(session)
}
