package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/service"
)

const pickPoolTTL = 6 * time.Hour

// pickCategories maps a category name to its live query.
var pickCategories = map[string]domain.ItemQuery{
	"recent": {
		IncludeItemTypes: []string{domain.ItemTypeMovie},
		SortBy:           []string{"DateCreated"},
		SortOrder:        "Descending",
		Recursive:        true,
	},
	"top-rated": {
		IncludeItemTypes: []string{domain.ItemTypeMovie},
		SortBy:           []string{"CommunityRating"},
		SortOrder:        "Descending",
		Recursive:        true,
	},
	"collections": {
		IncludeItemTypes: []string{domain.ItemTypeBoxSet},
		SortBy:           []string{"SortName"},
		SortOrder:        "Ascending",
		Recursive:        true,
	},
}

var (
	pickCount     int
	pickUnwatched bool
)

var pickCmd = &cobra.Command{
	Use:       "pick CATEGORY",
	Short:     "Pick random items from a cached category (recent, top-rated, collections)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"recent", "top-rated", "collections"},
	RunE:      runPick,
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List movie genres (cached per week)",
	RunE:  runGenres,
}

func init() {
	pickCmd.Flags().IntVarP(&pickCount, "count", "n", 10, "number of items")
	pickCmd.Flags().BoolVar(&pickUnwatched, "unwatched", false, "drop items the user has played (live check)")
}

func runPick(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	query, ok := pickCategories[args[0]]
	if !ok {
		return fmt.Errorf("unknown category %q", args[0])
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req := service.PickRequest{
		Category: args[0],
		Count:    pickCount,
		TTL:      pickPoolTTL,
		Query:    query,
	}
	if pickUnwatched {
		req.Validator = service.NewUnwatchedValidator(a.session.Client)
	}

	picker := service.NewPicker(a.session.Client, a.cache, a.scope(), service.WithPickerLogger(a.logger))
	for _, it := range picker.Pick(ctx, req) {
		if it.Year > 0 {
			fmt.Printf("%s  %s (%d)\n", it.ID, it.Name, it.Year)
		} else {
			fmt.Printf("%s  %s\n", it.ID, it.Name)
		}
	}
	return nil
}

func runGenres(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, g := range service.NewGenreCatalog(a.session.Client, a.cache, a.scope(), a.logger).Genres(ctx) {
		fmt.Println(g)
	}
	return nil
}
