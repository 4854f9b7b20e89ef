// Package hbk parses .hbk archives, the zip containers the 1C platform
// ships its syntax documentation in. The parser walks the archive's
// objects/ tree, classifies each HTML page by its path, and extracts the
// structured documentation sections from the page markup.
package hbk

import "strings"

// DocType classifies a documentation page by what it describes.
type DocType string

const (
	DocGlobalMethod      DocType = "global_method"
	DocGlobalEvent       DocType = "global_event"
	DocGlobalProperty    DocType = "global_property"
	DocObjectMethod      DocType = "object_method"
	DocObjectProperty    DocType = "object_property"
	DocObjectEvent       DocType = "object_event"
	DocObjectConstructor DocType = "object_constructor"
	DocObject            DocType = "object"
)

// IsGlobal reports whether the page belongs to the global context rather
// than a concrete object.
func (t DocType) IsGlobal() bool {
	switch t {
	case DocGlobalMethod, DocGlobalEvent, DocGlobalProperty:
		return true
	}
	return false
}

// GlobalContext is the object name the platform uses for the global scope.
const GlobalContext = "Global context"

// Parameter describes one parameter of a method or constructor.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Document is one parsed documentation page.
type Document struct {
	// Name is the element name, e.g. "StrLen" or "Array".
	Name string `json:"name"`

	// Object is the owning object, or GlobalContext for global elements.
	Object string `json:"object"`

	Type DocType `json:"type"`

	// Path is the page's location inside the archive.
	Path string `json:"path"`

	// Title is the page heading, typically "Russian (English)".
	Title string `json:"title,omitempty"`

	Syntax      string      `json:"syntax,omitempty"`
	Description string      `json:"description,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty"`
	ReturnValue string      `json:"return_value,omitempty"`
	Example     string      `json:"example,omitempty"`

	// Availability lists the execution contexts the element exists in.
	Availability string `json:"availability,omitempty"`
}

// Category holds the metadata of one documentation section, taken from its
// __categories__ file.
type Category struct {
	Name    string `json:"name"`
	Section string `json:"section"`

	// Version is the platform version the section first appeared in.
	Version string `json:"version,omitempty"`
}

// Stats counts what the parser saw while walking an archive.
type Stats struct {
	TotalEntries       int `json:"total_entries"`
	HTMLFiles          int `json:"html_files"`
	ParsedDocuments    int `json:"parsed_documents"`
	CategoryFiles      int `json:"category_files"`
	TemplateFiles      int `json:"template_files"`
	GlobalMethods      int `json:"global_methods"`
	GlobalEvents       int `json:"global_events"`
	GlobalProperties   int `json:"global_properties"`
	ObjectConstructors int `json:"object_constructors"`
	ObjectEvents       int `json:"object_events"`
	OtherObjectFiles   int `json:"other_object_files"`
}

// Archive is the parsed content of one .hbk file.
type Archive struct {
	Path       string              `json:"path"`
	Documents  []Document          `json:"documents"`
	Categories map[string]Category `json:"categories"`
	Stats      Stats               `json:"stats"`

	// Errors collects non-fatal problems hit while parsing entries.
	Errors []string `json:"errors,omitempty"`
}

// fileKind is the path-based classification of an archive entry.
type fileKind int

const (
	kindOther fileKind = iota
	kindGlobalMethod
	kindGlobalEvent
	kindGlobalContext
	kindObjectConstructor
	kindObjectEvent
	kindObjectFile
	kindCategories
	kindTemplate
)

// classifyPath buckets an archive entry by its normalized path. The order
// of checks matters: global context pages win over the generic object
// buckets, and constructor and event directories win over the catch-all.
func classifyPath(path string) fileKind {
	p := strings.ReplaceAll(path, "\\", "/")

	if base := p[strings.LastIndex(p, "/")+1:]; base == "__categories__" {
		return kindCategories
	}
	if strings.HasSuffix(p, ".st") {
		return kindTemplate
	}
	if !strings.HasSuffix(p, ".html") {
		return kindOther
	}

	switch {
	case strings.Contains(p, "objects/Global context/methods"):
		return kindGlobalMethod
	case strings.Contains(p, "objects/Global context/events"):
		return kindGlobalEvent
	case strings.Contains(p, "objects/Global context"):
		return kindGlobalContext
	case strings.Contains(p, "/ctors/") || strings.Contains(p, "/ctor/"):
		return kindObjectConstructor
	case strings.Contains(p, "/events/"):
		return kindObjectEvent
	case strings.Contains(p, "objects/"):
		return kindObjectFile
	}
	return kindOther
}

// docTypeFor maps a path bucket to the documentation type recorded on the
// parsed page.
func docTypeFor(kind fileKind) DocType {
	switch kind {
	case kindGlobalMethod:
		return DocGlobalMethod
	case kindGlobalEvent:
		return DocGlobalEvent
	case kindGlobalContext:
		return DocGlobalProperty
	case kindObjectConstructor:
		return DocObjectConstructor
	case kindObjectEvent:
		return DocObjectEvent
	}
	return DocObjectMethod
}

// objectFromPath extracts the owning object name from an archive path,
// the segment right after objects/.
func objectFromPath(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	idx := strings.Index(p, "objects/")
	if idx < 0 {
		return GlobalContext
	}
	rest := p[idx+len("objects/"):]
	if slash := strings.Index(rest, "/"); slash > 0 {
		return rest[:slash]
	}
	return GlobalContext
}

// nameFromPath derives the element name from the page's file name. The
// platform appends a catalog number to file names, so trailing digits are
// stripped: "StrLen912.html" names the element "StrLen".
func nameFromPath(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	base := p[strings.LastIndex(p, "/")+1:]
	base = strings.TrimSuffix(base, ".html")

	trimmed := strings.TrimRight(base, "0123456789")
	if trimmed != "" {
		return trimmed
	}
	return base
}
