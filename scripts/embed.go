// Package scripts embeds the report scripts shipped with schematic. Each
// report/<name>.risor can be run with `schematic script <name>`.
package scripts

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed report/*.risor
var FS embed.FS

// ReportDir is the directory inside FS holding the report scripts.
const ReportDir = "report"

// Builtin returns the FS path of the named report script and whether it exists.
func Builtin(name string) (string, bool) {
	p := path.Join(ReportDir, name+".risor")
	if _, err := fs.Stat(FS, p); err != nil {
		return "", false
	}
	return p, true
}

// Builtins lists the names of the embedded report scripts.
func Builtins() []string {
	entries, err := fs.ReadDir(FS, ReportDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".risor"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
