package main

import (
	"fmt"

	"statcheck/internal/catalog"
	"statcheck/internal/types"

	"github.com/spf13/cobra"
)

var tablesSearch string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the local catalog",
	RunE:  runTables,
}

func init() {
	tablesCmd.Flags().StringVar(&tablesSearch, "search", "", "filter by substring on title, keywords or id")
}

func runTables(cmd *cobra.Command, args []string) error {
	store, err := catalog.NewStore(cfg.Catalog.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	var tables []types.Table
	if tablesSearch != "" {
		tables, err = store.Search(tablesSearch)
	} else {
		tables, err = store.All()
	}
	if err != nil {
		return err
	}

	if len(tables) == 0 {
		fmt.Println("Catalog is empty. Run 'statcheck seed <topic>...' first.")
		return nil
	}

	for _, t := range tables {
		period := ""
		if t.FirstPeriod != "" || t.LastPeriod != "" {
			period = fmt.Sprintf(" (%s-%s)", t.FirstPeriod, t.LastPeriod)
		}
		fmt.Printf("%-10s %s%s\n", t.ID, t.Title, period)
	}
	fmt.Printf("\n%d tables\n", len(tables))
	return nil
}
