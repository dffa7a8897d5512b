package game

import (
	"fmt"
	"math/rand/v2"
)

// Operators a question can use. Selection is uniform.
var operators = [...]string{"+", "-", "*", "/", "%"}

// Question is one arithmetic challenge. Answer uses Go integer
// semantics: division and remainder truncate toward zero, and the
// remainder takes the sign of the dividend. Division questions are
// constructed so the quotient is exact, which makes truncation and
// floor agree; the distinction is observable only for "%".
type Question struct {
	First  int
	Second int
	Op     string
	Answer int
}

// String renders the question for logs, not for the wire.
func (q Question) String() string {
	return fmt.Sprintf("%d %s %d = %d", q.First, q.Op, q.Second, q.Answer)
}

// Check reports whether a submitted value answers the question.
func (q Question) Check(submitted int) bool {
	return q.Answer == submitted
}

// Generator produces questions from a private RNG. It performs no I/O
// and is fully deterministic for a fixed seed, so tests can script
// entire matches.
type Generator struct {
	rng *rand.Rand
	min int
	max int
}

// NewGenerator creates a generator drawing operands from [min, max].
// A zero seed picks a random one.
func NewGenerator(min, max int, seed uint64) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed)),
		min: min,
		max: max,
	}
}

// operand returns a uniform integer in [min, max].
func (g *Generator) operand() int {
	return g.min + g.rng.IntN(g.max-g.min+1)
}

// nonZeroOperand resamples until the value is usable as a divisor.
func (g *Generator) nonZeroOperand() int {
	for {
		if v := g.operand(); v != 0 {
			return v
		}
	}
}

// Generate produces the next question. For "/" the first operand is
// built as a multiple of the second so the quotient is integral; for
// "%" only the divisor is constrained to be non-zero.
func (g *Generator) Generate() Question {
	op := operators[g.rng.IntN(len(operators))]

	var first, second int
	switch op {
	case "/":
		second = g.nonZeroOperand()
		first = second * g.operand()
	case "%":
		second = g.nonZeroOperand()
		first = g.operand()
	default:
		first = g.operand()
		second = g.operand()
	}

	var answer int
	switch op {
	case "+":
		answer = first + second
	case "-":
		answer = first - second
	case "*":
		answer = first * second
	case "/":
		answer = first / second
	case "%":
		answer = first % second
	}

	return Question{First: first, Second: second, Op: op, Answer: answer}
}
