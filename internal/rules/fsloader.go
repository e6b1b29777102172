package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zabbix/zabbix-sub156/pkg/regexprule"
)

func isYAML(p string) bool {
	l := strings.ToLower(p)
	return strings.HasSuffix(l, ".yml") || strings.HasSuffix(l, ".yaml")
}

// LoadFile reads a single rule document.
func LoadFile(path string) (regexprule.Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return regexprule.Rule{}, err
	}
	r, err := regexprule.LoadRuleYAML(b)
	if err != nil {
		return regexprule.Rule{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// FileError is a rule file that could not be read or decoded.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// LoadDirSkipInvalid loads every .yml/.yaml file under root in lexical
// order. root may also name a single file. Files that fail to read or decode
// are returned as FileErrors and the walk keeps going; only a failure to walk
// root is returned as err.
func LoadDirSkipInvalid(root string) ([]regexprule.Rule, []FileError, error) {
	var (
		out []regexprule.Rule
		bad []FileError
	)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || (p != root && !isYAML(p)) {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			bad = append(bad, FileError{Path: p, Err: err})
			return nil
		}
		r, err := regexprule.LoadRuleYAML(b)
		if err != nil {
			bad = append(bad, FileError{Path: p, Err: err})
			return nil
		}
		out = append(out, r)
		return nil
	})
	return out, bad, err
}
