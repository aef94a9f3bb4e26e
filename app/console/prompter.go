package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/lexcodex/gitagent/framework"
)

// ErrInterrupted is returned when the user aborts a prompt with ctrl+c.
var ErrInterrupted = errors.New("prompt interrupted")

// NewPrompter returns a bubbletea prompt when in is a terminal and a plain
// line reader otherwise (pipes, CI).
func NewPrompter(in *os.File, out io.Writer) framework.Prompter {
	if in != nil && (isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd())) {
		return &TeaPrompter{In: in, Out: out}
	}
	var r io.Reader = os.Stdin
	if in != nil {
		r = in
	}
	return NewLinePrompter(r, out)
}

// LinePrompter reads one line per question.
type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	if out == nil {
		out = os.Stdout
	}
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the next input line without its line
// ending. A final line without newline is still returned; io.EOF is only
// reported once nothing is left.
func (p *LinePrompter) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, question)
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// TeaPrompter asks each question in a one-line bubbletea program.
type TeaPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p *TeaPrompter) Ask(ctx context.Context, question string) (string, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}
	final, err := tea.NewProgram(newInputModel(question), opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	m, ok := final.(inputModel)
	if !ok {
		return "", fmt.Errorf("unexpected prompt model %T", final)
	}
	if m.aborted {
		return "", ErrInterrupted
	}
	return m.input.Value(), nil
}

// inputModel is a single text input that quits on enter.
type inputModel struct {
	question string
	input    textinput.Model
	done     bool
	aborted  bool
}

func newInputModel(question string) inputModel {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()
	return inputModel{question: strings.TrimSpace(question), input: input}
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.aborted {
		return promptStyle.Render(m.question) + " " + m.input.Value() + "\n"
	}
	return promptStyle.Render(m.question) + "\n" + m.input.View() + "\n"
}
