package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"immersive-exam-service/internal/domain"
)

// Solver produces a numeric answer for a question on behalf of an automated
// participant.
type Solver interface {
	Solve(ctx context.Context, question domain.Question) (float64, error)
}

// Arithmetic evaluates the question's equation exactly.
type Arithmetic struct{}

func (Arithmetic) Solve(_ context.Context, question domain.Question) (float64, error) {
	return evalExpression(question.Equation)
}

// OpenAISolver asks a chat model for the answer. Grade-school arithmetic
// gives models plenty of room to be wrong, which is exactly what makes bot
// participants interesting on a leaderboard.
type OpenAISolver struct {
	client *openai.Client
	model  string
}

func NewOpenAISolver(apiKey string) *OpenAISolver {
	return &OpenAISolver{client: openai.NewClient(apiKey), model: openai.GPT4oMini}
}

func (s *OpenAISolver) Solve(ctx context.Context, question domain.Question) (float64, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You solve arithmetic questions. Respond with only the numeric answer, no words.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: question.Text,
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("solve question: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("solve question: empty completion")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimSuffix(raw, ".")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse model answer %q: %w", raw, err)
	}
	return value, nil
}

// evalExpression evaluates +, -, *, / with parentheses over an equation
// string such as "(3 + 4) * 2".
func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return value, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			value += rhs
		} else {
			value -= rhs
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return value, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			value *= rhs
		} else {
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero in %q", p.input)
			}
			value /= rhs
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression %q", p.input)
	}
	if p.input[p.pos] == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis in %q", p.input)
		}
		p.pos++
		return value, nil
	}
	start := p.pos
	if p.input[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.input) && (p.input[p.pos] == '.' || (p.input[p.pos] >= '0' && p.input[p.pos] <= '9')) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at offset %d in %q", start, p.input)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
