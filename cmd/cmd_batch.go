// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// BatchResult is one output line of the batch command.
type BatchResult struct {
	Line    int                     `json:"line"`
	Results []postalcode.PostalCode `json:"results,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

type batchJob struct {
	line int
	text string
}

// readBatch returns the non blank lines of r.
func readBatch(r io.Reader) ([]batchJob, error) {
	var jobs []batchJob

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		jobs = append(jobs, batchJob{line: line, text: text})
	}

	return jobs, scanner.Err()
}

func runBatchJob(ctx context.Context, s *postalcode.Session, job batchJob) (BatchResult, error) {
	ret := BatchResult{Line: job.line}

	var args map[string]any

	decoder := json.NewDecoder(bytes.NewReader([]byte(job.text)))
	decoder.UseNumber()

	if err := decoder.Decode(&args); err != nil {
		ret.Error = fmt.Sprintf("invalid JSON: %v", err)

		return ret, nil
	}

	c, err := postalcode.ParseCriteria(args)
	if err != nil {
		ret.Error = err.Error()

		return ret, nil
	}

	codes, err := s.Find(ctx, c)
	if postalcode.IsDataSourceError(err) || errors.Is(err, context.Canceled) {
		return ret, fmt.Errorf("line %d: %w", job.line, err)
	}

	if err != nil {
		ret.Error = err.Error()

		return ret, nil
	}

	ret.Results = codes

	return ret, nil
}

// runBatch runs one JSON criteria object per input line on workers
// concurrent sessions and writes one BatchResult per line, in input order.
// Invalid lines produce a result with an error; only data source failures
// abort the batch.
func runBatch(ctx context.Context, engine *postalcode.Engine, r io.Reader, w io.Writer, workers int) error {
	jobs, err := readBatch(r)
	if err != nil {
		return fmt.Errorf("reading criteria: %w", err)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	workers = min(workers, max(len(jobs), 1))

	results := make([]BatchResult, len(jobs))
	queue := make(chan int)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)

		for i := range jobs {
			select {
			case queue <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		return nil
	})

	for range workers {
		g.Go(func() (err error) {
			s, err := engine.Open(gctx)
			if err != nil {
				return err
			}

			defer func() { err = errors.Join(err, s.Close()) }()

			for i := range queue {
				if results[i], err = runBatchJob(gctx, s, jobs[i]); err != nil {
					return err
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}

		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	log.Printf("Batch completed - %d queries, %d failed", len(results), failed)

	return nil
}

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run JSON criteria read line by line from stdin",
	Long: `
batch reads one JSON criteria object per line, for example
  {"province": "on", "sort_by": "population", "ascending": false}
and prints one JSON result per line, in input order.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, release, err := options.openEngine(cmd.Context())
		if err != nil {
			return err
		}

		err = runBatch(cmd.Context(), engine, os.Stdin, cmd.OutOrStdout(), batchWorkers)

		return errors.Join(err, release())
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Concurrent sessions. Defaults to the number of CPUs")
}
