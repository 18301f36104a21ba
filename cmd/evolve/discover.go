package main

import (
	"os"
	"path/filepath"
	"strings"
)

// discoverModules walks target and returns every Go source file that is
// not a _test.go file, one module per file, skipping the .git and .evolve
// directories and any directory whose name starts with "_". Grounded
// on internal/safety/sandbox.go's own filepath.Walk idiom for scoping a
// recursive directory scan.
func discoverModules(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	var paths []string
	err = filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			base := filepath.Base(path)
			if base == ".git" || base == ".evolve" || strings.HasPrefix(base, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// moduleName derives a Module.Name from a file path: its base name minus
// the .go extension.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".go")
}
