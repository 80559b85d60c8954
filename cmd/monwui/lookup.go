package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var lookupLive bool

var lookupCmd = &cobra.Command{
	Use:   "lookup MOVIE_ID",
	Short: "Show the collection a movie belongs to",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

var membersCmd = &cobra.Command{
	Use:   "members COLLECTION_ID",
	Short: "List the members of a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runMembers,
}

var findCmd = &cobra.Command{
	Use:   "find NAME",
	Short: "Search cached collections by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFind,
}

func init() {
	for _, c := range []*cobra.Command{lookupCmd, membersCmd} {
		c.Flags().BoolVar(&lookupLive, "live", false, "ask the server when the cache has no answer")
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.collections().GetCollectionForMovie(ctx, args[0], lookupLive)
	if err != nil {
		return err
	}

	switch {
	case m == nil:
		fmt.Println("unknown (not indexed yet; try --live)")
	case m.IsNegative():
		fmt.Println("no collection")
	default:
		name := m.CollectionName
		if name == "" {
			name = m.CollectionID
		}
		fmt.Printf("%s (%s)\n", name, m.CollectionID)
	}
	return nil
}

func runMembers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.collections().GetMembersOfCollection(ctx, args[0], lookupLive)
	if err != nil {
		return err
	}
	if items == nil {
		fmt.Println("unknown collection (not indexed yet; try --live)")
		return nil
	}

	for _, it := range items {
		if it.Year > 0 {
			fmt.Printf("%s  %s (%d)\n", it.ID, it.Name, it.Year)
		} else {
			fmt.Printf("%s  %s\n", it.ID, it.Name)
		}
	}
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	matches := a.collections().FindCollections(ctx, strings.Join(args, " "))
	if len(matches) == 0 {
		fmt.Println("no matching collections")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("%s  %s  %d members, synced %s\n", m.CollectionID, m.Name, m.Members, humanize.Time(m.UpdatedAt))
	}
	return nil
}
