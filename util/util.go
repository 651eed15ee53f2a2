package util

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jsphweid/engrave/constants"
	"golang.org/x/exp/constraints"
)

// GatherAllNotationPaths walks path and returns every notation file found,
// up to maxNum of them (0 means no limit).
func GatherAllNotationPaths(path string, maxNum int) []string {
	var res []string
	walk := func(s string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(s, constants.NotationExt) {
			if maxNum == 0 || len(res) < maxNum {
				res = append(res, s)
			}
		}
		return nil
	}
	filepath.WalkDir(path, walk)
	return res
}

func GetKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := make([]A, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
