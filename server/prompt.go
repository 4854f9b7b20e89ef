package server

import (
	"encoding/json"
	"fmt"

	"github.com/onecsuite/syntaxhelper/mcp"
)

// Prompt registers a prompt template with the server.
func (s *serverImpl) Prompt(name, description string, arguments ...mcp.PromptArgument) Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.prompts[name]; !exists {
		s.promptOrder = append(s.promptOrder, name)
	}
	s.prompts[name] = &mcp.Prompt{
		Name:        name,
		Description: description,
		Arguments:   arguments,
	}

	s.logger.Debug("registered prompt", "name", name)
	return s
}

// ProcessPromptList processes a prompts/list request.
func (s *serverImpl) ProcessPromptList(req *mcp.Request) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompts := make([]mcp.Prompt, 0, len(s.promptOrder))
	for _, name := range s.promptOrder {
		prompts = append(prompts, *s.prompts[name])
	}

	return map[string]interface{}{
		"prompts": prompts,
	}, nil
}

// promptGetParams are the params of a prompts/get request.
type promptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

// ProcessPromptGet processes a prompts/get request. The returned message
// restates the prompt description with the supplied arguments filled in.
func (s *serverImpl) ProcessPromptGet(req *mcp.Request) (interface{}, error) {
	var params promptGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, &mcp.RPCError{Code: mcp.ErrCodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}

	s.mu.RLock()
	prompt, ok := s.prompts[params.Name]
	s.mu.RUnlock()

	if !ok {
		return nil, &mcp.RPCError{
			Code:    mcp.ErrCodeMethodNotFound,
			Message: fmt.Sprintf("Prompt not found: %s", params.Name),
		}
	}

	text := prompt.Description
	for key, value := range params.Arguments {
		text += fmt.Sprintf("\n%s: %s", key, value)
	}

	return map[string]interface{}{
		"description": prompt.Description,
		"messages": []interface{}{
			map[string]interface{}{
				"role": "user",
				"content": map[string]interface{}{
					"type": "text",
					"text": text,
				},
			},
		},
	}, nil
}
