package framework

import (
	"context"
	"strings"
)

// Prompter is the human-in-the-loop gate consulted before files are written.
type Prompter interface {
	// Ask prints question and blocks until the user answers.
	Ask(ctx context.Context, question string) (string, error)
}

// Answer is a parsed yes/no reply.
type Answer int

const (
	AnswerInvalid Answer = iota
	AnswerYes
	AnswerNo
)

// ParseAnswer accepts yes/y and no/n in any case.
func ParseAnswer(reply string) Answer {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "yes", "y":
		return AnswerYes
	case "no", "n":
		return AnswerNo
	default:
		return AnswerInvalid
	}
}

// Confirm asks a yes/no question. Anything but yes counts as a refusal.
func Confirm(ctx context.Context, p Prompter, question string) (bool, error) {
	reply, err := p.Ask(ctx, question+" (yes/no): ")
	if err != nil {
		return false, err
	}
	return ParseAnswer(reply) == AnswerYes, nil
}
