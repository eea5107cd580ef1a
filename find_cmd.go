package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/muesli/gitcha"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/scriptplay/internal/script"
)

// maxScriptSize skips JSON files too large to be worth probing.
const maxScriptSize = 64 << 20

var (
	findAll bool

	scriptPatterns = []string{"*.json"}
	ignorePatterns = []string{"node_modules", "vendor", ".git"}

	findCmd = &cobra.Command{
		Use:     "find [DIR]",
		Short:   "Find scripts below a directory",
		Long:    paragraph(fmt.Sprintf("\n%s JSON files below DIR (default: the working directory) that hold a script. Files ignored by git are skipped unless --all is given.", keyword("Find"))),
		Example: paragraph("scriptplay find\nscriptplay find ~/stories --all"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runFind,
	}
)

func init() {
	findCmd.Flags().BoolVarP(&findAll, "all", "a", false, "include files ignored by git")
}

func runFind(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = expandPath(args[0])
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}

	// Switch between FindFiles and FindAllFiles to bypass .gitignore rules
	var ch chan gitcha.SearchResult
	if findAll {
		ch, err = gitcha.FindAllFilesExcept(root, scriptPatterns, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(root, scriptPatterns, ignorePatterns)
	}
	if err != nil {
		return fmt.Errorf("unable to search %s: %w", root, err)
	}

	w := cmd.OutOrStdout()
	found := 0
	for res := range ch {
		n, ok := probeScript(res)
		if !ok {
			continue
		}
		found++

		rel, err := filepath.Rel(root, res.Path)
		if err != nil {
			rel = res.Path
		}
		fmt.Fprintf(w, "%s  %s\n", keyword(rel),
			faint(plural(n, "item")+", changed "+humanize.Time(res.Info.ModTime())))
	}

	if found == 0 {
		fmt.Fprintln(w, "No scripts found in", root)
	}
	return nil
}

// probeScript reports the number of items in a script file. Files that are
// not scripts, or are empty scripts, report false.
func probeScript(res gitcha.SearchResult) (int, bool) {
	if res.Info == nil || res.Info.IsDir() || res.Info.Size() > maxScriptSize {
		return 0, false
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return 0, false
	}
	items, err := script.Decode(data)
	if err != nil || len(items) == 0 {
		return 0, false
	}
	return len(items), true
}
