package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/bmc-uruguay/panelin-server/internal/agent/graph/tools"
	"github.com/bmc-uruguay/panelin-server/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the dynamic response system prompt and
// triggers prompt callbacks.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, nlu model.NLUResponse) (string, error) {
	// normalize the primary language; the customer base is Spanish-first
	pl := strings.ToLower(strings.TrimSpace(nlu.PrimaryLanguage))
	if pl == "" {
		pl = "spa"
	}
	switch pl {
	case "es":
		pl = "spa"
	case "en":
		pl = "eng"
	case "pt":
		pl = "por"
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"BusinessType":    config.BusinessType,
		"BusinessName":    config.BusinessName,
		"AgentName":       config.AgentName,
		"PrimaryLanguage": pl,
		"SearchTool":      tools.ToolSearchProduct,
		"DetailsTool":     tools.ToolGetProductDetails,
		"QuoteTool":       tools.ToolCalculateQuote,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
