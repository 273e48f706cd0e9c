package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncecere/bedrock_edge_probe/internal/config"
)

func newModelsCommand() *cobra.Command {
	var (
		configFile string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Print the configured region/model probe table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, region := range cfg.Regions {
				fmt.Fprintln(out, region.Name)
				for _, model := range region.Models {
					fmt.Fprintf(out, "  %-30s %s\n", model.Name, model.ID)
				}
			}
			fmt.Fprintf(out, "\n%d models across %d regions\n", cfg.ModelCount(), len(cfg.Regions))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to an edgeprobe YAML config file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "path to a dotenv file to load before reading config")
	return cmd
}
