package agent

import (
	"context"
	"testing"

	"immersive-exam-service/internal/domain"
	"immersive-exam-service/internal/generator"
)

func TestEvalExpression(t *testing.T) {
	cases := map[string]float64{
		"1 + 1":           2,
		"17 - 9":          8,
		"6 * 7":           42,
		"84 / 12":         7,
		"(3 + 4) * 2":     14,
		"2 + 3 * 4":       14,
		"(10 - 4) / 3":    2,
		"1 + 2 + 3 + 4":   10,
		"-3 + 5":          2,
		"100 / 4 / 5":     5,
		"(2 + 2) * (1+1)": 8,
	}
	for input, want := range cases {
		got, err := evalExpression(input)
		if err != nil {
			t.Fatalf("eval %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("eval %q = %v, want %v", input, got, want)
		}
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	for _, input := range []string{"", "1 +", "(1 + 2", "1 / 0", "abc", "1 2"} {
		if _, err := evalExpression(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestArithmeticSolvesGeneratedQuestions(t *testing.T) {
	gen := generator.NewArithmeticWithSeed(13)
	solver := Arithmetic{}
	for _, difficulty := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		for i := 0; i < 50; i++ {
			q, err := gen.Generate(context.Background(), difficulty)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			value, err := solver.Solve(context.Background(), q)
			if err != nil {
				t.Fatalf("solve %q: %v", q.Equation, err)
			}
			if !domain.AnswerMatches(value, q.Answer) {
				t.Fatalf("solver got %v for %q, want %v", value, q.Equation, q.Answer)
			}
		}
	}
}
