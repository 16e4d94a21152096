package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/migrate"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/obscheck"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/records"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/seed"
)

func main() {
	root := &cobra.Command{
		Use:           "custodyctl",
		Short:         "Operator tooling for the SD card custody service",
		SilenceUsage:  true,
	}
	root.AddCommand(
		migrate.NewRootCommand(),
		seed.NewRootCommand(),
		records.NewRootCommand(),
		obscheck.NewRootCommand(),
	)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
