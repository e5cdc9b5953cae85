// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/spf13/cobra"
)

// flagName turns a criteria key such as "lat_greater" into "lat-greater".
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// criteriaFromFlags collects the criteria flags set on cmd.
func criteriaFromFlags(cmd *cobra.Command) (postalcode.Criteria, error) {
	values := url.Values{}

	for _, key := range postalcode.CriteriaKeys() {
		name := flagName(key)
		if !cmd.Flags().Changed(name) {
			continue
		}

		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return postalcode.Criteria{}, err
		}

		values.Set(key, v)
	}

	return postalcode.ParseCriteriaValues(values)
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search postal codes by any combination of criteria",
	Long: `
find combines every criterion in a single query. lat, lng and radius (miles)
select the codes around a point, ranked by distance unless --sort-by is given.
Province, city and area names are matched approximately.
`,
	Example: `  cazip find --lat 45.477873 --lng -75.7211 --radius 100
  cazip find --province quebec --population-greater 10000 --sort-by population --ascending=false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := criteriaFromFlags(cmd)
		if err != nil {
			return err
		}

		return withSession(cmd.Context(), func(s *postalcode.Session) error {
			codes, err := s.Find(cmd.Context(), c)
			if err != nil {
				return err
			}

			return writeCodes(cmd.OutOrStdout(), codes, options.JSON)
		})
	},
}

// rankingFlags are the ordering flags shared by the single criterion commands.
type rankingFlags struct {
	sortBy     string
	descending bool
	returns    int
}

func (r *rankingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.sortBy, "sort-by", "", "Field to sort by")
	cmd.Flags().BoolVar(&r.descending, "desc", false, "Sort in descending order")
	cmd.Flags().IntVar(&r.returns, "returns", 0, "Maximum number of results. Defaults to 5")
}

func (r *rankingFlags) ranking() (postalcode.Ranking, error) {
	f, err := postalcode.ParseField(r.sortBy)
	if err != nil {
		return postalcode.Ranking{}, err
	}

	return postalcode.Ranking{SortBy: f, Descending: r.descending, Returns: r.returns}, nil
}

type query func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error)

// runQuery ranks and prints the result of q.
func runQuery(cmd *cobra.Command, flags *rankingFlags, q query) error {
	r, err := flags.ranking()
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), func(s *postalcode.Session) error {
		codes, err := q(cmd.Context(), s, r)
		if err != nil {
			return err
		}

		return writeCodes(cmd.OutOrStdout(), codes, options.JSON)
	})
}

type textQuery func(*postalcode.Session, context.Context, string, postalcode.Ranking) ([]postalcode.PostalCode, error)

func newTextCmd(use, short string, method textQuery) *cobra.Command {
	flags := &rankingFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, flags, func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error) {
				return method(s, ctx, args[0], r)
			})
		},
	}
	flags.register(cmd)

	return cmd
}

// newNearCmd takes the point as flags; a negative longitude positional would
// parse as a shorthand flag.
func newNearCmd() *cobra.Command {
	flags := &rankingFlags{}

	var lat, lng, radius float64

	cmd := &cobra.Command{
		Use:     "near",
		Short:   "Postal codes within radius miles of a point, nearest first",
		Example: "  cazip near --lat 45.477873 --lng -75.7211 --radius 100 --returns 10",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, flags, func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error) {
				return s.Near(ctx, lat, lng, radius, r)
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the center")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude of the center")
	cmd.Flags().Float64Var(&radius, "radius", 0, "Radius in miles")

	for _, name := range []string{"lat", "lng", "radius"} {
		_ = cmd.MarkFlagRequired(name)
	}

	flags.register(cmd)

	return cmd
}

func newAreaCodeCmd() *cobra.Command {
	flags := &rankingFlags{}
	cmd := &cobra.Command{
		Use:   "area-code <code>",
		Short: "Postal codes of a telephone area code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			areaCode, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid area code %q: %w", args[0], err)
			}

			return runQuery(cmd, flags, func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error) {
				return s.ByAreaCode(ctx, areaCode, r)
			})
		},
	}
	flags.register(cmd)

	return cmd
}

// changedFloat returns the value of a float flag, or nil when it was not set.
func changedFloat(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}

	v, _ := cmd.Flags().GetFloat64(name)

	return &v
}

// changedInt returns the value of an int flag, or nil when it was not set.
func changedInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}

	v, _ := cmd.Flags().GetInt(name)

	return &v
}

func newBoxCmd() *cobra.Command {
	flags := &rankingFlags{}
	cmd := &cobra.Command{
		Use:     "box",
		Short:   "Postal codes inside a latitude, longitude and elevation box",
		Example: "  cazip box --lat-greater 45 --lat-less 46 --lng-greater -76 --lng-less -75",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := postalcode.Envelope{
				LatGreater:       changedFloat(cmd, "lat-greater"),
				LatLess:          changedFloat(cmd, "lat-less"),
				LngGreater:       changedFloat(cmd, "lng-greater"),
				LngLess:          changedFloat(cmd, "lng-less"),
				ElevationGreater: changedFloat(cmd, "elevation-greater"),
				ElevationLess:    changedFloat(cmd, "elevation-less"),
			}

			return runQuery(cmd, flags, func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error) {
				return s.ByLatLngElevation(ctx, env, r)
			})
		},
	}
	flags.register(cmd)

	for _, name := range []string{"lat-greater", "lat-less", "lng-greater", "lng-less", "elevation-greater", "elevation-less"} {
		cmd.Flags().Float64(name, 0, "Inclusive "+strings.ReplaceAll(name, "-", " ")+" bound")
	}

	return cmd
}

type rangeQuery func(*postalcode.Session, context.Context, *int, *int, postalcode.Ranking) ([]postalcode.PostalCode, error)

func newRangeCmd(use, short string, method rangeQuery) *cobra.Command {
	flags := &rankingFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			greater, less := changedInt(cmd, "greater"), changedInt(cmd, "less")

			return runQuery(cmd, flags, func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error) {
				return method(s, ctx, greater, less, r)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().Int("greater", 0, "Inclusive lower bound")
	cmd.Flags().Int("less", 0, "Inclusive upper bound")

	return cmd
}

func newTimezoneCmd() *cobra.Command {
	flags := &rankingFlags{}
	cmd := &cobra.Command{
		Use:   "timezone [hours]",
		Short: "Postal codes by timezone, in hours behind UTC",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tz *int

			if len(args) > 0 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid timezone %q: %w", args[0], err)
				}

				tz = &v
			}

			greater, less := changedInt(cmd, "greater"), changedInt(cmd, "less")

			return runQuery(cmd, flags, func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error) {
				return s.ByTimezone(ctx, tz, greater, less, r)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().Int("greater", 0, "Inclusive lower bound")
	cmd.Flags().Int("less", 0, "Inclusive upper bound")

	return cmd
}

func newDSTCmd() *cobra.Command {
	flags := &rankingFlags{}
	cmd := &cobra.Command{
		Use:   "dst <true|false>",
		Short: "Postal codes by daylight saving time observance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("invalid daylight saving flag %q: %w", args[0], err)
			}

			return runQuery(cmd, flags, func(ctx context.Context, s *postalcode.Session, r postalcode.Ranking) ([]postalcode.PostalCode, error) {
				return s.ByDayLightSavings(ctx, dst, r)
			})
		},
	}
	flags.register(cmd)

	return cmd
}

var codeCmd = &cobra.Command{
	Use:     "code <postalcode>...",
	Short:   "Look up postal codes",
	Example: "  cazip code K1A0B1 'h3a 1a0'",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *postalcode.Session) error {
			var (
				codes   []postalcode.PostalCode
				missing []string
			)

			for _, arg := range args {
				p, found, err := s.ByPostalCode(cmd.Context(), arg)
				if err != nil {
					return err
				}

				if !found {
					missing = append(missing, postalcode.NormalizeCode(arg))

					continue
				}

				codes = append(codes, p)
			}

			if err := writeCodes(cmd.OutOrStdout(), codes, options.JSON); err != nil {
				return err
			}

			if len(missing) > 0 {
				return fmt.Errorf("postal codes not found: %s", strings.Join(missing, ", "))
			}

			return nil
		})
	},
}

var randomCmd = &cobra.Command{
	Use:   "random [n]",
	Short: "Pick postal codes at random",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := postalcode.DefaultReturns

		if len(args) > 0 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid count %q: %w", args[0], err)
			}
		}

		return withSession(cmd.Context(), func(s *postalcode.Session) error {
			codes, err := s.Random(cmd.Context(), n)
			if err != nil {
				return err
			}

			return writeCodes(cmd.OutOrStdout(), codes, options.JSON)
		})
	},
}

func init() {
	for _, key := range postalcode.CriteriaKeys() {
		findCmd.Flags().String(flagName(key), "", "Criterion "+key)
	}

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(newNearCmd())
	rootCmd.AddCommand(newTextCmd("prefix <prefix>", "Postal codes starting with prefix", (*postalcode.Session).ByPrefix))
	rootCmd.AddCommand(newTextCmd("substring <text>", "Postal codes containing text", (*postalcode.Session).BySubstring))
	rootCmd.AddCommand(newTextCmd("province <name>", "Postal codes of a province, by code or name", (*postalcode.Session).ByProvince))
	rootCmd.AddCommand(newTextCmd("city <name>", "Postal codes of a city", (*postalcode.Session).ByCity))
	rootCmd.AddCommand(newTextCmd("area-name <name>", "Postal codes of a telephone area", (*postalcode.Session).ByAreaName))
	rootCmd.AddCommand(newAreaCodeCmd())
	rootCmd.AddCommand(newBoxCmd())
	rootCmd.AddCommand(newRangeCmd("population", "Postal codes by population", (*postalcode.Session).ByPopulation))
	rootCmd.AddCommand(newRangeCmd("dwellings", "Postal codes by number of dwellings", (*postalcode.Session).ByDwellings))
	rootCmd.AddCommand(newTimezoneCmd())
	rootCmd.AddCommand(newDSTCmd())
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(randomCmd)
}
