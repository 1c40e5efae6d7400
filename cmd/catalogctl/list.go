package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fideprep/fideprep-api/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog sections in assignment order",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawLevel, _ := cmd.Flags().GetString("level")
		rawMode, _ := cmd.Flags().GetString("mode")
		rawLang, _ := cmd.Flags().GetString("language")

		level, err := catalog.ParseLevel(rawLevel)
		if err != nil {
			return err
		}
		mode, err := catalog.ParseMode(rawMode)
		if err != nil {
			return err
		}
		lang, err := catalog.ParseLanguage(rawLang)
		if err != nil {
			return err
		}

		ctx := context.Background()
		dbh, err := openDB(ctx, cmd)
		if err != nil {
			return err
		}
		defer dbh.Close()

		secs, err := catalog.NewSQLRepo(dbh).ListSections(ctx, level, mode, lang)
		if err != nil {
			return fmt.Errorf("list sections: %w", err)
		}
		if len(secs) == 0 {
			fmt.Println("No sections found.")
			return nil
		}

		fmt.Printf("%-4s  %-24s  %-32s  %s\n", "Seq", "ID", "Title", "Content")
		fmt.Println(strings.Repeat("-", 90))
		for _, s := range secs {
			title := s.Title
			if len(title) > 32 {
				title = title[:32]
			}
			fmt.Printf("%-4d  %-24s  %-32s  %s\n", s.SequenceIndex, s.ID, title, s.Ref())
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("level", "A2", "Level: A1, A2 or B1")
	listCmd.Flags().String("mode", "Speaking", "Mode: Speaking or Listening")
	listCmd.Flags().String("language", "FR", "Language: FR, EN or DE")
}
