package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/localrivet/wilduri"

	"github.com/onecsuite/syntaxhelper/mcp"
)

// ResourceHandler produces the content of a resource. For template
// resources, params holds the values captured from the URI.
type ResourceHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Resource represents a resource registered with the server.
type Resource struct {
	Path        string
	Description string
	MimeType    string
	Handler     ResourceHandler

	// IsTemplate indicates the path contains {parameter} segments.
	IsTemplate bool

	// Template is the parsed path used for matching request URIs.
	Template *wilduri.Template
}

// Resource registers a resource with the server. Paths containing
// {parameter} segments match any URI fitting the template and pass the
// captured values to the handler.
func (s *serverImpl) Resource(path, description, mimeType string, handler ResourceHandler) Server {
	template, err := wilduri.New(path)
	if err != nil {
		s.logger.Error("invalid resource path template", "path", path, "error", err)
		return s
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.resources[path]; !exists {
		s.resourceOrder = append(s.resourceOrder, path)
	}
	s.resources[path] = &Resource{
		Path:        path,
		Description: description,
		MimeType:    mimeType,
		Handler:     handler,
		IsTemplate:  strings.Contains(path, "{") && strings.Contains(path, "}"),
		Template:    template,
	}

	s.logger.Debug("registered resource", "path", path)
	return s
}

// ProcessResourceList processes a resources/list request. Template
// resources are listed with their raw pattern as the URI.
func (s *serverImpl) ProcessResourceList(req *mcp.Request) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make([]mcp.Resource, 0, len(s.resourceOrder))
	for _, path := range s.resourceOrder {
		r := s.resources[path]
		resources = append(resources, mcp.Resource{
			URI:         r.Path,
			Name:        r.Path,
			Description: r.Description,
			MimeType:    r.MimeType,
		})
	}

	return map[string]interface{}{
		"resources": resources,
	}, nil
}

// resourceReadParams are the params of a resources/read request.
type resourceReadParams struct {
	URI string `json:"uri"`
}

// ProcessResourceRead processes a resources/read request.
func (s *serverImpl) ProcessResourceRead(req *mcp.Request) (interface{}, error) {
	var params resourceReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, &mcp.RPCError{Code: mcp.ErrCodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	if params.URI == "" {
		return nil, &mcp.RPCError{Code: mcp.ErrCodeInvalidParams, Message: "Invalid params", Data: "missing uri"}
	}

	resource, captured, ok := s.findResource(params.URI)
	if !ok {
		return nil, &mcp.RPCError{
			Code:    mcp.ErrCodeResourceNotFound,
			Message: fmt.Sprintf("Resource not found: %s", params.URI),
		}
	}

	s.logger.Debug("reading resource", "uri", params.URI)

	result, err := resource.Handler(context.Background(), captured)
	if err != nil {
		return nil, &mcp.RPCError{Code: mcp.ErrCodeInternalError, Message: "Internal error", Data: err.Error()}
	}

	var text string
	switch v := result.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, &mcp.RPCError{Code: mcp.ErrCodeInternalError, Message: "Internal error", Data: err.Error()}
		}
		text = string(data)
	}

	return map[string]interface{}{
		"contents": []interface{}{
			map[string]interface{}{
				"uri":      params.URI,
				"mimeType": resource.MimeType,
				"text":     text,
			},
		},
	}, nil
}

// findResource locates the resource matching a URI, trying exact paths
// first and then template patterns in registration order.
func (s *serverImpl) findResource(uri string) (*Resource, map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.resources[uri]; ok && !r.IsTemplate {
		return r, make(map[string]interface{}), true
	}

	for _, path := range s.resourceOrder {
		r := s.resources[path]
		if !r.IsTemplate {
			continue
		}
		matches, matched := r.Template.Match(uri)
		if matched && matches != nil {
			params := make(map[string]interface{})
			for key, value := range matches {
				params[key] = value
			}
			return r, params, true
		}
	}

	return nil, nil, false
}
