package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/bmc-uruguay/panelin-server/internal/agent/graph/conversations"
	"github.com/bmc-uruguay/panelin-server/internal/agent/graph/parsers"
	"github.com/bmc-uruguay/panelin-server/internal/agent/graph/prompts"
	"github.com/bmc-uruguay/panelin-server/internal/agent/model"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
)

// Node names registered in the graph.
const (
	NodeInputConverter    = "input_converter"
	NodeNLUChatModel      = "nlu_chat_model"
	NodeParser            = "nlu_parser"
	NodeHumanHandoff      = "human_handoff"
	NodeResponseAssembler = "response_assembler"
	NodeResponseChatModel = "response_chat_model"
	NodeToolExecutor      = "tool_executor"
)

// NewInputConverterPreHandler resets per-query state.
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if s.ConversationID == "" {
			s.ConversationID = in.ConversationID
		}
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode creates the InputConverter node for NLU processing
func NewInputConverterNode(
	mm *conversations.MessagesManager,
	nluCfg *model.NLUModelConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		conversationCtx, err := mm.ProcessNLUMessage(ctx, input.ConversationID, input.Query)
		if err != nil {
			return nil, fmt.Errorf("error getting conversation context: %w", err)
		}

		systemPrompt, err := prompts.RenderNLUSystem(ctx, nluCfg)
		if err != nil {
			return nil, fmt.Errorf("render nlu system prompt: %w", err)
		}

		messages := []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(conversationCtx),
		}

		return messages, nil
	})
}

// NewNLUChatModelPostHandler computes and logs usage cost for the NLU model.
func NewNLUChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsageCost(out, state, modelName, NodeNLUChatModel)
		return out, nil
	}
}

// NewParserNode creates the Parser node for NLU response parsing
func NewParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (model.NLUResponse, error) {
		result, err := parsers.ParseNLUResponse(resp.Content)
		if err != nil {
			logx.Error().Err(err).Msg("Error parsing NLU response")
			return model.NLUResponse{}, err
		}
		if result == nil {
			logx.Error().Msg("Parsing returned nil result")
			return model.NLUResponse{}, fmt.Errorf("parsing returned nil result")
		}
		return *result, nil
	})
}

// NewParserPostHandler stores the NLU analysis in graph state.
func NewParserPostHandler() func(context.Context, model.NLUResponse, *model.AppState) (model.NLUResponse, error) {
	return func(ctx context.Context, out model.NLUResponse, state *model.AppState) (model.NLUResponse, error) {
		state.NLUAnalysis = &out

		logx.Debug().
			Str("conversation_id", state.ConversationID).
			Str("primary_intent", out.PrimaryIntent).
			Float64("importance_score", out.ImportanceScore).
			Msg("NLU analysis stored")
		return out, nil
	}
}

// NewHumanHandoffCondition routes high-confidence negative sentiment to a human.
func NewHumanHandoffCondition() func(context.Context, model.NLUResponse) (string, error) {
	return func(ctx context.Context, input model.NLUResponse) (string, error) {
		s := input.Sentiment
		if s.Label == "negative" && s.Confidence > 0.94 {
			logx.Debug().Str("sentiment_label", s.Label).Float64("sentiment_confidence", s.Confidence).
				Msg("Routing to human handoff - high confidence negative sentiment")
			return NodeHumanHandoff, nil
		}
		return NodeResponseAssembler, nil
	}
}

// NewHumanHandoffNode escalates negative sentiment cases to a sales advisor.
func NewHumanHandoffNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.NLUResponse) (*schema.Message, error) {
		sentiment := input.Sentiment
		logx.Warn().
			Str("sentiment_label", sentiment.Label).
			Float64("sentiment_confidence", sentiment.Confidence).
			Msg("Human intervention required for negative sentiment")

		return schema.SystemMessage("Derivamos tu consulta a un asesor comercial que te va a contactar a la brevedad."), nil
	})
}

// NewResponseAssemblerNode builds the response model context from the NLU analysis.
func NewResponseAssemblerNode(
	mm *conversations.MessagesManager,
	responsePromptConfig *model.ResponsePromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, nluResult model.NLUResponse) ([]*schema.Message, error) {
		var data model.ResponseData
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			if state.NLUAnalysis == nil {
				return fmt.Errorf("missing NLU analysis in state")
			}
			data = model.ResponseData{
				Analysis:       *state.NLUAnalysis,
				ConversationID: state.ConversationID,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		respSysPrompt, err := prompts.RenderResponseSystem(ctx, *responsePromptConfig, data.Analysis)
		if err != nil {
			return nil, fmt.Errorf("generate response prompt: %w", err)
		}

		messages, err := mm.BuildResponseContext(ctx, data.ConversationID, respSysPrompt)
		if err != nil {
			return nil, fmt.Errorf("build response context: %w", err)
		}

		return messages, nil
	})
}

// NewResponseChatModelPreHandler appends the incoming context to state and
// injects a wrap-up notice once the tool-call limit is reached.
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Gemini OpenAI-compat may omit tool_call_id on tool results;
		// recover it from the most recent assistant tool call.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please synthesize a helpful response using the information you've already gathered. "+
						"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
					maxToolCalls,
				),
			}
			state.History = append(state.History, wrapUp)
		}

		return state.History, nil
	}
}

// NewResponseChatModelPostHandler normalizes tool call IDs, accounts cost
// and persists final assistant responses.
func NewResponseChatModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsageCost(out, state, modelName, NodeResponseChatModel)

		if out != nil && len(out.ToolCalls) > 0 {
			for i := range out.ToolCalls {
				if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
					state.ToolCallIDSeq++
					out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
				}
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		}

		// Persist only final assistant messages: no pending tool calls,
		// or we hit the limit but still produced content.
		if out.Role == schema.Assistant && (len(out.ToolCalls) == 0 || state.ToolCallLimitReached) && strings.TrimSpace(out.Content) != "" {
			if err := mm.SaveResponse(ctx, state.ConversationID, out.Content); err != nil {
				logx.Error().
					Str("conversation_id", state.ConversationID).
					Err(err).
					Msg("Error saving assistant response")
			}
		}

		return out, nil
	}
}

// NewToolExecutorCondition routes to tool execution when the model asked for it.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		}

		if len(input.ToolCalls) > 0 {
			return NodeToolExecutor, nil
		}

		return compose.END, nil
	}
}

// NewToolExecutorPreHandler counts tool call rounds against the limit.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("conversation_id", state.ConversationID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("conversation_id", state.ConversationID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}

		return in, nil
	}
}

// recordUsageCost attaches token usage cost to the message Extra and
// accumulates the running total in state.
func recordUsageCost(out *schema.Message, state *model.AppState, modelName, node string) {
	if !model.CostEnabled() || out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     out.ResponseMeta.Usage.PromptTokens,
		"completion_tokens": out.ResponseMeta.Usage.CompletionTokens,
		"total_tokens":      out.ResponseMeta.Usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}

	logx.Debug().
		Str("conversation_id", state.ConversationID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
		Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	state.TotalCostUSD += totalC
	out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
}
