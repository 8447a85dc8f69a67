package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/wasm-census/errors"
)

// Expand resolves command-line arguments into input files. Files are kept as
// given, in order. Directories are walked recursively for *.wasm files in
// lexical order.
func Expand(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Load(arg, err)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wasm") {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Load(arg, err)
		}
	}
	return out, nil
}
