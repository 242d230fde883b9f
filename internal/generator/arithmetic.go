package generator

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"immersive-exam-service/internal/domain"
)

// Arithmetic generates grade-school arithmetic questions locally. Difficulty
// widens the operand range and unlocks more operators.
type Arithmetic struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewArithmetic() *Arithmetic {
	return NewArithmeticWithSeed(time.Now().UnixNano())
}

// NewArithmeticWithSeed allows deterministic question sets in tests.
func NewArithmeticWithSeed(seed int64) *Arithmetic {
	return &Arithmetic{rnd: rand.New(rand.NewSource(seed))}
}

const (
	minOperand = 1
	maxOperand = 20
)

func (g *Arithmetic) Generate(_ context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var equation string
	var answer float64
	switch difficulty {
	case domain.DifficultyEasy:
		if g.rnd.Intn(2) == 0 {
			equation, answer = g.addition(1)
		} else {
			equation, answer = g.subtraction(1)
		}
	case domain.DifficultyMedium:
		switch g.rnd.Intn(3) {
		case 0:
			equation, answer = g.addition(2)
		case 1:
			equation, answer = g.subtraction(2)
		default:
			equation, answer = g.multiplication(2)
		}
	case domain.DifficultyHard:
		switch g.rnd.Intn(3) {
		case 0:
			equation, answer = g.multiplication(3)
		case 1:
			equation, answer = g.division(3)
		default:
			equation, answer = g.mixed(3)
		}
	default:
		return domain.Question{}, fmt.Errorf("unknown difficulty %q", difficulty)
	}

	return domain.Question{
		Equation:   equation,
		Text:       fmt.Sprintf("What is %s?", equation),
		Answer:     answer,
		Difficulty: difficulty,
		Category:   Classify(equation),
	}, nil
}

func (g *Arithmetic) addition(scale int) (string, float64) {
	a := g.operand(scale)
	b := g.operand(scale)
	return fmt.Sprintf("%d + %d", a, b), float64(a + b)
}

// subtraction keeps results non-negative.
func (g *Arithmetic) subtraction(scale int) (string, float64) {
	a := g.operand(scale)
	b := minOperand + g.rnd.Intn(a-minOperand+1)
	return fmt.Sprintf("%d - %d", a, b), float64(a - b)
}

func (g *Arithmetic) multiplication(scale int) (string, float64) {
	limit := 12
	if limit > maxOperand*scale/10 && maxOperand*scale/10 > minOperand {
		limit = maxOperand * scale / 10
	}
	a := minOperand + g.rnd.Intn(limit)
	b := minOperand + g.rnd.Intn(limit)
	return fmt.Sprintf("%d * %d", a, b), float64(a * b)
}

// division always produces whole-number quotients.
func (g *Arithmetic) division(scale int) (string, float64) {
	divisor := 2 + g.rnd.Intn(11)
	quotient := g.operand(scale)
	return fmt.Sprintf("%d / %d", divisor*quotient, divisor), float64(quotient)
}

func (g *Arithmetic) mixed(scale int) (string, float64) {
	a := g.operand(scale)
	b := g.operand(1)
	c := g.operand(1)
	return fmt.Sprintf("(%d + %d) * %d", a, b, c), float64((a + b) * c)
}

func (g *Arithmetic) operand(scale int) int {
	return minOperand + g.rnd.Intn(maxOperand*scale-minOperand+1)
}

var fractionPattern = regexp.MustCompile(`\d+/\d+`)

// Classify buckets an equation into a category by pattern matching.
func Classify(equation string) string {
	switch {
	case strings.ContainsAny(equation, "()"):
		return "parentheses"
	case fractionPattern.MatchString(strings.ReplaceAll(equation, " ", "")):
		return "division"
	case strings.Contains(equation, "*"):
		return "multiplication"
	case strings.Contains(equation, "+") && strings.Contains(equation, "-"):
		return "mixed"
	case strings.Contains(equation, "+"):
		return "addition"
	case strings.Contains(equation, "-"):
		return "subtraction"
	default:
		return "unknown"
	}
}
