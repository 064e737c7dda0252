package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/example/go-tts-studio/internal/catalog"
	"github.com/spf13/cobra"
)

func newSpeakersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "speakers",
		Short: "List the available preset speakers",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			cat := catalog.New()
			if cfg.Catalog.ManifestPath != "" {
				cat, err = catalog.Load(cfg.Catalog.ManifestPath)
				if err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cat.Speakers())
			}

			for _, s := range cat.Speakers() {
				_, err = fmt.Fprintf(os.Stdout, "%-10s %-24s %s\n",
					s.Name, strings.Join(s.Languages, ","), s.Description)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the speaker list as JSON")

	return cmd
}
