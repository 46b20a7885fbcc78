package file

import (
	"path/filepath"
	"strings"
)

var markdownExtensions = map[string]bool{".md": true, ".markdown": true}

func isMarkdownSource(path string) bool {
	return markdownExtensions[strings.ToLower(filepath.Ext(path))]
}

// buildHeader assembles the optional `> ...` line preceding a rendered
// fence/inline body: title, then line range (if requested and present),
// then a link to the source. Elements are space-joined on one line; an
// empty header means none of the three options were set.
func buildHeader(sourcePath, compiledDir, title string, showLineRange, showLink bool, lineRange string) string {
	var parts []string
	if title != "" {
		parts = append(parts, `**"`+title+`"**`)
	}
	if showLineRange && lineRange != "" {
		parts = append(parts, "(lines "+lineRange+")")
	}
	if showLink {
		filename := filepath.Base(sourcePath)
		target := relativeLinkPath(sourcePath, compiledDir)
		parts = append(parts, "[link "+filename+"]("+target+")")
	}
	if len(parts) == 0 {
		return ""
	}
	return "> " + strings.Join(parts, " ") + "\n"
}

// relativeLinkPath returns the POSIX-style path from compiledDir to
// sourcePath, falling back to the bare filename when compiledDir is unset
// or the two paths don't share a common root.
func relativeLinkPath(sourcePath, compiledDir string) string {
	if compiledDir == "" {
		return filepath.Base(sourcePath)
	}
	rel, err := filepath.Rel(compiledDir, sourcePath)
	if err != nil {
		return filepath.Base(sourcePath)
	}
	return filepath.ToSlash(rel)
}
