package cmd

import (
	"fmt"
	"os"

	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/parser"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input>",
	Short: "Inspects the measured structure of a notation file",
	Long:  `Inspects the measured structure of a notation file`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return inspect(args[0])
	},
}

func inspect(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	music, err := parser.ParseMusic(string(data))
	if err != nil {
		return err
	}

	for s := range music {
		sec := &music[s]
		fmt.Printf("section %d: %d staves, %d measures\n", s+1, len(sec.Staves), len(sec.Measures))
		for m := range sec.Measures {
			start, stop := sec.BeatIndexRangeOfMeasure(m)
			fmt.Printf("  measure %d: beats %d-%d%s\n", m+1, start+1, stop, describeAttrs(sec.Measures[m].Attributes))
		}
	}
	return nil
}

func describeAttrs(attrs model.MeasureAttributes) string {
	var res string
	if attrs.Time != nil {
		res += fmt.Sprintf(", time %d/%d", attrs.Time.Numerator, attrs.Time.Denominator)
	}
	if attrs.Partial != nil {
		res += fmt.Sprintf(", partial %d/%d", attrs.Partial.Numerator, attrs.Partial.Denominator)
	}
	if attrs.Key != nil {
		res += fmt.Sprintf(", key %+d", *attrs.Key)
	}
	return res
}
