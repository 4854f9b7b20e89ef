package hbk

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Size limits for .hbk files. The platform ships archives in the hundreds
// of megabytes; anything under a megabyte is a truncated download.
const (
	MaxArchiveSize = 1 << 30
	MinArchiveSize = 1 << 20
)

// versionPattern matches platform versions like 8.3.24 in category files.
var versionPattern = regexp.MustCompile(`8\.\d+\.\d+`)

// Parser reads .hbk documentation archives.
type Parser struct {
	logger *slog.Logger

	// maxDocuments caps how many HTML pages are parsed, zero meaning all.
	maxDocuments int
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets the parser's logger.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithMaxDocuments caps the number of HTML pages parsed per archive.
func WithMaxDocuments(n int) ParserOption {
	return func(p *Parser) {
		p.maxDocuments = n
	}
}

// NewParser creates a parser.
func NewParser(options ...ParserOption) *Parser {
	p := &Parser{
		logger: slog.Default(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// ParseFile opens and parses a .hbk archive from disk.
func (p *Parser) ParseFile(path string) (*Archive, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".hbk" && ext != ".zip" {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	if info.Size() > MaxArchiveSize {
		return nil, fmt.Errorf("archive too large: %d bytes", info.Size())
	}
	if info.Size() < MinArchiveSize {
		return nil, fmt.Errorf("archive too small: %d bytes, likely truncated or corrupt", info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	archive, err := p.ParseReader(f, info.Size())
	if err != nil {
		return nil, err
	}
	archive.Path = path
	return archive, nil
}

// ParseReader parses archive content from a reader. Used directly by tests
// and by ParseFile after its size checks.
func (p *Parser) ParseReader(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	archive := &Archive{
		Categories: make(map[string]Category),
	}
	archive.Stats.TotalEntries = len(zr.File)

	p.logger.Info("parsing archive", "entries", len(zr.File))

	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}

		kind := classifyPath(file.Name)
		switch kind {
		case kindCategories:
			archive.Stats.CategoryFiles++
			p.parseCategories(file, archive)
		case kindTemplate:
			archive.Stats.TemplateFiles++
		case kindOther:
		default:
			archive.Stats.HTMLFiles++
			p.countKind(kind, archive)
			if p.maxDocuments > 0 && archive.Stats.ParsedDocuments >= p.maxDocuments {
				continue
			}
			p.parseDocument(file, kind, archive)
		}
	}

	p.logger.Info("archive parsed",
		"html_files", archive.Stats.HTMLFiles,
		"documents", archive.Stats.ParsedDocuments,
		"categories", len(archive.Categories),
		"errors", len(archive.Errors))

	return archive, nil
}

func (p *Parser) countKind(kind fileKind, archive *Archive) {
	switch kind {
	case kindGlobalMethod:
		archive.Stats.GlobalMethods++
	case kindGlobalEvent:
		archive.Stats.GlobalEvents++
	case kindGlobalContext:
		archive.Stats.GlobalProperties++
	case kindObjectConstructor:
		archive.Stats.ObjectConstructors++
	case kindObjectEvent:
		archive.Stats.ObjectEvents++
	case kindObjectFile:
		archive.Stats.OtherObjectFiles++
	}
}

// parseDocument extracts one documentation page from the archive.
func (p *Parser) parseDocument(file *zip.File, kind fileKind, archive *Archive) {
	content, err := readZipFile(file)
	if err != nil {
		archive.Errors = append(archive.Errors, fmt.Sprintf("%s: %v", file.Name, err))
		return
	}

	doc, err := parseHTMLPage(content)
	if err != nil {
		archive.Errors = append(archive.Errors, fmt.Sprintf("%s: %v", file.Name, err))
		return
	}

	doc.Path = file.Name
	doc.Type = docTypeFor(kind)
	doc.Object = objectFromPath(file.Name)
	if doc.Name == "" {
		doc.Name = nameFromPath(file.Name)
	}

	archive.Documents = append(archive.Documents, *doc)
	archive.Stats.ParsedDocuments++
}

// parseCategories reads a __categories__ metadata file. The section name
// is the parent directory; the platform version is scraped from any line
// that mentions one.
func (p *Parser) parseCategories(file *zip.File, archive *Archive) {
	content, err := readZipFile(file)
	if err != nil {
		archive.Errors = append(archive.Errors, fmt.Sprintf("%s: %v", file.Name, err))
		return
	}

	path := strings.ReplaceAll(file.Name, "\\", "/")
	parts := strings.Split(path, "/")
	section := "unknown"
	if len(parts) > 1 {
		section = parts[len(parts)-2]
	}

	category := Category{
		Name:    section,
		Section: section,
	}

	for _, line := range strings.Split(string(content), "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "version") && !strings.Contains(lower, "версия") {
			continue
		}
		if match := versionPattern.FindString(line); match != "" {
			category.Version = match
			break
		}
	}

	archive.Categories[section] = category
	p.logger.Debug("parsed category", "section", section, "version", category.Version)
}

// FindArchives returns the .hbk files in a directory, sorted by name.
func FindArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".hbk" || ext == ".zip" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
