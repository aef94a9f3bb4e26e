package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promptFunc func(ctx context.Context, question string) (string, error)

func (f promptFunc) Ask(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

func TestParseAnswer(t *testing.T) {
	for reply, want := range map[string]Answer{
		"yes": AnswerYes, " Y ": AnswerYes, "YES": AnswerYes,
		"no": AnswerNo, "n": AnswerNo,
		"": AnswerInvalid, "maybe": AnswerInvalid,
	} {
		assert.Equal(t, want, ParseAnswer(reply), reply)
	}
}

func TestConfirm(t *testing.T) {
	var asked string
	ok, err := Confirm(context.Background(), promptFunc(func(_ context.Context, q string) (string, error) {
		asked = q
		return "y", nil
	}), "Apply?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Apply? (yes/no): ", asked)

	ok, err = Confirm(context.Background(), promptFunc(func(context.Context, string) (string, error) {
		return "whatever", nil
	}), "Apply?")
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("closed")
	_, err = Confirm(context.Background(), promptFunc(func(context.Context, string) (string, error) {
		return "", boom
	}), "Apply?")
	assert.ErrorIs(t, err, boom)
}
