package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "engrave",
	Short: "Compiles compact music notation into LilyPond scores",
	Long:  `Compiles compact music notation into LilyPond scores`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
