// Package prompt provides the operator input port used by the auth flow and
// the upload selector.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned when the operator input is exhausted.
var ErrNoInput = errors.New("no input available")

// Prompter asks the operator a question and returns the answer line.
type Prompter interface {
	Prompt(question string) (string, error)
}

// Console reads answers line by line from a reader (normally os.Stdin) and
// prints questions to a writer (normally os.Stdout).
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a Console prompter.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Prompt prints the question on its own line and blocks until a line is read.
// The returned answer has surrounding whitespace removed.
func (c *Console) Prompt(question string) (string, error) {
	if question != "" {
		if _, err := fmt.Fprintln(c.out, question); err != nil {
			return "", err
		}
	}

	line, err := c.in.ReadString('\n')
	if err != nil {
		// A final line without a newline is still an answer.
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// Scripted answers prompts from a fixed sequence. It records every question
// it was asked.
type Scripted struct {
	Answers []string
	Asked   []string
}

// NewScripted creates a Scripted prompter with the given answers.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{Answers: answers}
}

// Prompt returns the next scripted answer, or ErrNoInput once they run out.
func (s *Scripted) Prompt(question string) (string, error) {
	s.Asked = append(s.Asked, question)
	if len(s.Answers) == 0 {
		return "", ErrNoInput
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}
