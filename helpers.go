package pysec

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const recursiveSuffix = "..."

// SourceFiles returns the Python files under root. A root ending in "/..."
// is walked recursively; otherwise only its direct entries are listed.
// Directories matching any of the excluded expressions are skipped.
func SourceFiles(root string, excluded []*regexp.Regexp) ([]string, error) {
	recursive := strings.HasSuffix(root, recursiveSuffix)
	dir, err := RootPath(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return []string{}, nil
	case err != nil:
		return nil, err
	case !info.IsDir():
		if isPythonFile(dir) {
			return []string{dir}, nil
		}
		return []string{}, nil
	}

	files := []string{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !recursive || isExcluded(filepath.ToSlash(path), excluded) || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isPythonFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func isPythonFile(path string) bool {
	return filepath.Ext(path) == ".py"
}

func isExcluded(str string, excluded []*regexp.Regexp) bool {
	for _, exclude := range excluded {
		if exclude != nil && exclude.MatchString(str) {
			return true
		}
	}
	return false
}

// RootPath returns the absolute root path of a scan
func RootPath(root string) (string, error) {
	root = strings.TrimSuffix(root, recursiveSuffix)
	return filepath.Abs(root)
}

// ExcludedDirsRegExp builds the regexps for a list of excluded dirs provided as strings
func ExcludedDirsRegExp(excludedDirs []string) []*regexp.Regexp {
	var exps []*regexp.Regexp
	for _, excludedDir := range excludedDirs {
		str := fmt.Sprintf(`([\\/])?%s([\\/])?`, strings.ReplaceAll(filepath.ToSlash(excludedDir), "/", `\/`))
		r := regexp.MustCompile(str)
		exps = append(exps, r)
	}
	return exps
}
