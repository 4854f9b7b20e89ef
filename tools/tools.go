// Package tools registers the 1C syntax helper tools on an MCP server.
// Each tool is a thin shell over the search engine: decode arguments,
// query, format the hits as text.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/onecsuite/syntaxhelper/hbk"
	"github.com/onecsuite/syntaxhelper/search"
	"github.com/onecsuite/syntaxhelper/server"
)

// ErrIndexEmpty is returned by every tool while no archive is indexed.
var ErrIndexEmpty = errors.New("documentation index is empty, load a .hbk archive first")

// Register adds the five syntax helper tools to the server.
func Register(srv server.Server, engine *search.Engine) {
	srv.Tool("find_1c_help",
		"Universal help search across all 1C platform elements",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query: element name, description or keywords",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results (default: 10)",
				},
			},
			"required": []string{"query"},
		},
		findHelpHandler(engine))

	srv.Tool("get_syntax_info",
		"Full technical reference for an element: syntax, parameters, return value",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"element_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the function, method or property",
				},
				"object_name": map[string]interface{}{
					"type":        "string",
					"description": "Owning object, for object members",
				},
				"include_examples": map[string]interface{}{
					"type":        "boolean",
					"description": "Include usage examples",
				},
			},
			"required": []string{"element_name"},
		},
		syntaxInfoHandler(engine))

	srv.Tool("get_quick_reference",
		"Short reference for an element: syntax and description only",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"element_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the element",
				},
				"object_name": map[string]interface{}{
					"type":        "string",
					"description": "Owning object (optional)",
				},
			},
			"required": []string{"element_name"},
		},
		quickReferenceHandler(engine))

	srv.Tool("search_by_context",
		"Search elements filtered by context: global functions or object members",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"context": map[string]interface{}{
					"type":        "string",
					"description": "Search context: global, object or all",
				},
				"object_name": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one object (for context=object)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results",
				},
			},
			"required": []string{"query", "context"},
		},
		searchByContextHandler(engine))

	srv.Tool("list_object_members",
		"List the members of a 1C object: methods, properties and events",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"object_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the 1C object",
				},
				"member_type": map[string]interface{}{
					"type":        "string",
					"description": "Member kind: all, methods, properties or events",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results",
				},
			},
			"required": []string{"object_name"},
		},
		listMembersHandler(engine))
}

type findHelpArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func findHelpHandler(engine *search.Engine) server.ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var in findHelpArgs
		if err := server.DecodeArguments(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Query) == "" {
			return nil, errors.New("query is required")
		}
		if !engine.Ready() {
			return nil, ErrIndexEmpty
		}

		results := engine.Search(in.Query, search.Options{Limit: in.Limit})
		if len(results) == 0 {
			return fmt.Sprintf("Nothing found for %q.", in.Query), nil
		}
		return formatResults(in.Query, results), nil
	}
}

type syntaxInfoArgs struct {
	ElementName     string `json:"element_name"`
	ObjectName      string `json:"object_name"`
	IncludeExamples bool   `json:"include_examples"`
}

func syntaxInfoHandler(engine *search.Engine) server.ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var in syntaxInfoArgs
		if err := server.DecodeArguments(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.ElementName) == "" {
			return nil, errors.New("element_name is required")
		}
		if !engine.Ready() {
			return nil, ErrIndexEmpty
		}

		doc, ok := engine.FindElement(in.ElementName, in.ObjectName)
		if !ok {
			return nil, fmt.Errorf("element not found: %s", qualifiedName(in.ElementName, in.ObjectName))
		}
		return formatFullReference(doc, in.IncludeExamples), nil
	}
}

type quickReferenceArgs struct {
	ElementName string `json:"element_name"`
	ObjectName  string `json:"object_name"`
}

func quickReferenceHandler(engine *search.Engine) server.ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var in quickReferenceArgs
		if err := server.DecodeArguments(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.ElementName) == "" {
			return nil, errors.New("element_name is required")
		}
		if !engine.Ready() {
			return nil, ErrIndexEmpty
		}

		doc, ok := engine.FindElement(in.ElementName, in.ObjectName)
		if !ok {
			return nil, fmt.Errorf("element not found: %s", qualifiedName(in.ElementName, in.ObjectName))
		}
		return formatQuickReference(doc), nil
	}
}

type searchByContextArgs struct {
	Query      string `json:"query"`
	Context    string `json:"context"`
	ObjectName string `json:"object_name"`
	Limit      int    `json:"limit"`
}

func searchByContextHandler(engine *search.Engine) server.ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var in searchByContextArgs
		if err := server.DecodeArguments(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Query) == "" {
			return nil, errors.New("query is required")
		}

		var searchContext search.Context
		switch strings.ToLower(in.Context) {
		case "global":
			searchContext = search.ContextGlobal
		case "object":
			searchContext = search.ContextObject
		case "all", "":
			searchContext = search.ContextAll
		default:
			return nil, fmt.Errorf("invalid context %q, expected global, object or all", in.Context)
		}

		if !engine.Ready() {
			return nil, ErrIndexEmpty
		}

		results := engine.Search(in.Query, search.Options{
			Context: searchContext,
			Object:  in.ObjectName,
			Limit:   in.Limit,
		})
		if len(results) == 0 {
			return fmt.Sprintf("Nothing found for %q in context %q.", in.Query, in.Context), nil
		}
		return formatResults(in.Query, results), nil
	}
}

type listMembersArgs struct {
	ObjectName string `json:"object_name"`
	MemberType string `json:"member_type"`
	Limit      int    `json:"limit"`
}

func listMembersHandler(engine *search.Engine) server.ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var in listMembersArgs
		if err := server.DecodeArguments(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.ObjectName) == "" {
			return nil, errors.New("object_name is required")
		}

		var memberType search.MemberType
		switch strings.ToLower(in.MemberType) {
		case "methods":
			memberType = search.MembersMethods
		case "properties":
			memberType = search.MembersProperties
		case "events":
			memberType = search.MembersEvents
		case "all", "":
			memberType = search.MembersAll
		default:
			return nil, fmt.Errorf("invalid member_type %q, expected all, methods, properties or events", in.MemberType)
		}

		if !engine.Ready() {
			return nil, ErrIndexEmpty
		}

		members := engine.ListMembers(in.ObjectName, memberType, in.Limit)
		if len(members) == 0 {
			return fmt.Sprintf("No members found for object %q.", in.ObjectName), nil
		}
		return formatMembers(in.ObjectName, members), nil
	}
}

func qualifiedName(element, object string) string {
	if object == "" {
		return element
	}
	return object + "." + element
}

func formatResults(query string, results []search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d result(s) for %q:\n", len(results), query)
	for i, r := range results {
		doc := r.Document
		fmt.Fprintf(&b, "\n%d. %s", i+1, doc.Name)
		if doc.Title != "" && doc.Title != doc.Name {
			fmt.Fprintf(&b, " - %s", doc.Title)
		}
		fmt.Fprintf(&b, "\n   Object: %s, type: %s\n", doc.Object, doc.Type)
		if doc.Syntax != "" {
			fmt.Fprintf(&b, "   Syntax: %s\n", firstLine(doc.Syntax))
		}
		if doc.Description != "" {
			fmt.Fprintf(&b, "   %s\n", firstLine(doc.Description))
		}
	}
	return b.String()
}

func formatFullReference(doc *hbk.Document, includeExamples bool) string {
	var b strings.Builder
	writeHeader(&b, doc)
	if doc.Syntax != "" {
		fmt.Fprintf(&b, "\nSyntax:\n%s\n", doc.Syntax)
	}
	if len(doc.Parameters) > 0 {
		b.WriteString("\nParameters:\n")
		for _, p := range doc.Parameters {
			fmt.Fprintf(&b, "  %s", p.Name)
			if p.Description != "" {
				fmt.Fprintf(&b, " - %s", p.Description)
			}
			b.WriteString("\n")
		}
	}
	if doc.ReturnValue != "" {
		fmt.Fprintf(&b, "\nReturn value:\n%s\n", doc.ReturnValue)
	}
	if doc.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", doc.Description)
	}
	if includeExamples && doc.Example != "" {
		fmt.Fprintf(&b, "\nExample:\n%s\n", doc.Example)
	}
	if doc.Availability != "" {
		fmt.Fprintf(&b, "\nAvailability:\n%s\n", doc.Availability)
	}
	return b.String()
}

func formatQuickReference(doc *hbk.Document) string {
	var b strings.Builder
	writeHeader(&b, doc)
	if doc.Syntax != "" {
		fmt.Fprintf(&b, "\nSyntax:\n%s\n", doc.Syntax)
	}
	if doc.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", firstLine(doc.Description))
	}
	return b.String()
}

func formatMembers(object string, members []hbk.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Members of %s (%d):\n", object, len(members))
	for _, m := range members {
		fmt.Fprintf(&b, "  [%s] %s", m.Type, m.Name)
		if m.Title != "" && m.Title != m.Name {
			fmt.Fprintf(&b, " - %s", m.Title)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeHeader(b *strings.Builder, doc *hbk.Document) {
	if doc.Title != "" {
		fmt.Fprintf(b, "%s\n", doc.Title)
	} else {
		fmt.Fprintf(b, "%s\n", doc.Name)
	}
	fmt.Fprintf(b, "Object: %s, type: %s\n", doc.Object, doc.Type)
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
