package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"immersive-exam-service/internal/domain"
)

// OpenAI generates questions through a chat completion with a function tool,
// so the model returns structured JSON instead of prose.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey), model: openai.GPT4oMini}
}

type generatedQuestion struct {
	Equation string  `json:"equation"`
	Text     string  `json:"text"`
	Answer   float64 `json:"answer"`
}

func (g *OpenAI) Generate(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write grade school arithmetic questions with a single numeric answer.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Write one %s arithmetic question. Submit it via the submit_question function.", difficulty),
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        "submit_question",
					Description: "Submit the generated question",
					Parameters: map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"equation": map[string]interface{}{
								"type":        "string",
								"description": "Bare equation, e.g. \"12 + 7\"",
							},
							"text": map[string]interface{}{
								"type":        "string",
								"description": "Natural language question text",
							},
							"answer": map[string]interface{}{
								"type":        "number",
								"description": "Correct numeric answer",
							},
						},
						"required": []string{"equation", "text", "answer"},
					},
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: "submit_question"},
		},
	})
	if err != nil {
		return domain.Question{}, fmt.Errorf("generate question: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return domain.Question{}, fmt.Errorf("generate question: empty completion")
	}

	var generated generatedQuestion
	arguments := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(arguments), &generated); err != nil {
		return domain.Question{}, fmt.Errorf("decode generated question: %w", err)
	}
	if strings.TrimSpace(generated.Text) == "" {
		generated.Text = fmt.Sprintf("What is %s?", generated.Equation)
	}

	return domain.Question{
		Equation:   generated.Equation,
		Text:       generated.Text,
		Answer:     generated.Answer,
		Difficulty: difficulty,
		Category:   Classify(generated.Equation),
	}, nil
}
