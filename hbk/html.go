package hbk

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Section headings used by the platform's help pages. Pages carry Russian
// headings; English spellings appear in bilingual builds.
var sectionHeadings = map[string]string{
	"синтаксис":             "syntax",
	"syntax":                "syntax",
	"параметры":             "parameters",
	"parameters":            "parameters",
	"описание":              "description",
	"description":           "description",
	"пример":                "example",
	"example":               "example",
	"возвращаемое значение": "return",
	"return value":          "return",
	"returned value":        "return",
	"доступность":           "availability",
	"availability":          "availability",
}

// englishNamePattern captures the Latin name from bilingual page titles
// like "СтрДлина (StrLen)".
var englishNamePattern = regexp.MustCompile(`\(([A-Za-z][A-Za-z0-9_]*)\)\s*$`)

// parseHTMLPage extracts a Document from one help page. The page layout is
// a title heading followed by chapter headings, each introducing a section
// of plain text; parameter sections additionally use rubric blocks to name
// each parameter.
func parseHTMLPage(content []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	var section string
	sectionText := map[string]*strings.Builder{}
	var currentParam *Parameter

	appendText := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if section == "parameters" && currentParam != nil {
			if currentParam.Description != "" {
				currentParam.Description += " "
			}
			currentParam.Description += text
			return
		}
		b, ok := sectionText[section]
		if !ok {
			b = &strings.Builder{}
			sectionText[section] = b
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "h1":
				doc.Title = strings.TrimSpace(nodeText(n))
				return
			case "title":
				if doc.Title == "" {
					doc.Title = strings.TrimSpace(nodeText(n))
				}
				return
			}

			class := attrValue(n, "class")
			text := strings.TrimSpace(nodeText(n))

			if class == "V8SH_pagetitle" {
				doc.Title = text
				return
			}

			// Chapter headings switch the active section.
			if class == "V8SH_chapter" || isHeadingText(text) {
				heading := strings.ToLower(strings.TrimSuffix(text, ":"))
				if name, ok := sectionHeadings[heading]; ok {
					if section == "parameters" && currentParam != nil {
						doc.Parameters = append(doc.Parameters, *currentParam)
						currentParam = nil
					}
					section = name
					return
				}
			}

			// Rubric blocks inside the parameters section name a parameter.
			if class == "V8SH_rubric" && section == "parameters" {
				if currentParam != nil {
					doc.Parameters = append(doc.Parameters, *currentParam)
				}
				currentParam = &Parameter{Name: cleanParameterName(text)}
				return
			}

			if isBlockElement(n.Data) && !hasBlockChildren(n) {
				appendText(text)
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if currentParam != nil {
		doc.Parameters = append(doc.Parameters, *currentParam)
	}

	if b, ok := sectionText["syntax"]; ok {
		doc.Syntax = b.String()
	}
	if b, ok := sectionText["description"]; ok {
		doc.Description = b.String()
	}
	if b, ok := sectionText["example"]; ok {
		doc.Example = b.String()
	}
	if b, ok := sectionText["return"]; ok {
		doc.ReturnValue = b.String()
	}
	if b, ok := sectionText["availability"]; ok {
		doc.Availability = b.String()
	}

	// Text before any heading serves as the description on minimal pages.
	if doc.Description == "" {
		if b, ok := sectionText[""]; ok {
			doc.Description = b.String()
		}
	}

	doc.Name = nameFromTitle(doc.Title)
	return doc, nil
}

// nameFromTitle prefers the Latin name from a bilingual title, falling
// back to the title itself.
func nameFromTitle(title string) string {
	if match := englishNamePattern.FindStringSubmatch(title); match != nil {
		return match[1]
	}
	return strings.TrimSpace(title)
}

// cleanParameterName strips the angle brackets and optionality note from a
// rubric like "<Строка> (обязательный)".
func cleanParameterName(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "("); idx > 0 {
		text = strings.TrimSpace(text[:idx])
	}
	text = strings.Trim(text, "<>")
	return strings.TrimSpace(text)
}

// isHeadingText recognizes a chapter heading even without its CSS class.
func isHeadingText(text string) bool {
	if !strings.HasSuffix(text, ":") {
		return false
	}
	_, ok := sectionHeadings[strings.ToLower(strings.TrimSuffix(text, ":"))]
	return ok
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "pre", "div", "li", "td", "table":
		return true
	}
	return false
}

func hasBlockChildren(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isBlockElement(c.Data) {
			return true
		}
		if hasBlockChildren(c) {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}
