package cmd

import (
	"fmt"
	"os"

	"github.com/jsphweid/engrave/lilypond"
	"github.com/jsphweid/engrave/parser"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Converts a notation file into LilyPond source",
	Long:  `Converts a notation file into LilyPond source`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return Convert(args[0], args[1])
	},
}

// Convert reads a notation file and writes the engraved LilyPond source.
func Convert(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", inPath, err)
	}
	music, err := parser.ParseMusic(string(data))
	if err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", outPath, err)
	}
	defer out.Close()
	if err := lilypond.Export(out, music); err != nil {
		return err
	}
	return out.Close()
}
