package cmd

import (
	"fmt"
	"os"

	"github.com/jsphweid/engrave/apperr"
	"github.com/jsphweid/engrave/parser"
	"github.com/jsphweid/engrave/util"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <dir>",
	Short: "Creates a conversion report over a directory of notation files",
	Long:  `Creates a conversion report over a directory of notation files`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return report(args[0])
	},
}

type conversionReport struct {
	numFiles    int
	numFailed   int
	numSections int
	numMeasures int
	errorKinds  map[apperr.Kind]int
}

func report(dir string) error {
	paths := util.GatherAllNotationPaths(dir, 0)
	rep := conversionReport{errorKinds: make(map[apperr.Kind]int)}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read %s: %w", path, err)
		}
		rep.numFiles++
		music, err := parser.ParseMusic(string(data))
		if err != nil {
			rep.numFailed++
			rep.errorKinds[apperr.KindOf(err)]++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		rep.numSections += len(music)
		for s := range music {
			rep.numMeasures += len(music[s].Measures)
		}
	}

	fmt.Printf("files: %v\n", rep.numFiles)
	fmt.Printf("failed: %v\n", rep.numFailed)
	fmt.Printf("sections: %v\n", rep.numSections)
	fmt.Printf("measures: %v\n", rep.numMeasures)
	kinds := util.GetKeys(rep.errorKinds)
	slices.Sort(kinds)
	for _, kind := range kinds {
		fmt.Printf("error kind %v: %v\n", kind, rep.errorKinds[kind])
	}
	return nil
}
