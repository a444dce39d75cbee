package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// LineInput reads one line per call. Stdout is where output must go so that it
// does not garble the line being edited.
type LineInput interface {
	ReadLine(prompt string) (string, error)
	Stdout() io.Writer
	Close() error
}

type basicLineInput struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewBasicLineInput reads plain lines from in, echoing prompts to out.
func NewBasicLineInput(in io.Reader, out io.Writer) LineInput {
	return &basicLineInput{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (b *basicLineInput) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *basicLineInput) Stdout() io.Writer { return b.out }

func (b *basicLineInput) Close() error { return nil }

type readlineInput struct {
	instance *readline.Instance
}

func newReadlineInput(historyPath string) (*readlineInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
		AutoComplete:      commandCompleter(),
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{instance: instance}, nil
}

func (r *readlineInput) ReadLine(prompt string) (string, error) {
	r.instance.SetPrompt(prompt)
	return r.instance.Readline()
}

func (r *readlineInput) Stdout() io.Writer { return r.instance.Stdout() }

func (r *readlineInput) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// IsTerminal reports whether stdin is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// NewLineInput 终端下使用 readline（带历史文件），否则退回按行读取
// NewLineInput uses readline with a history file on a terminal and falls back to
// plain line reads otherwise. The returned error only reports why readline was
// not used; the input is always usable.
func NewLineInput(historyPath string) (LineInput, error) {
	if !IsTerminal() {
		return NewBasicLineInput(os.Stdin, os.Stdout), nil
	}
	readlineReader, err := newReadlineInput(historyPath)
	if err == nil {
		return readlineReader, nil
	}
	return NewBasicLineInput(os.Stdin, os.Stdout), err
}

func commandCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c.name))
	}
	return readline.NewPrefixCompleter(items...)
}

// ReadAll is used when stdin is not a TTY (pipe/redirect): read until EOF as one message.
func ReadAll(in io.Reader) (string, error) {
	lines, err := readInput(bufio.NewReader(in))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func readInput(rd *bufio.Reader) ([]string, error) {
	readLine := func() (string, error) {
		var line []byte
		for {
			b, err := rd.ReadByte()
			if err != nil {
				if len(line) > 0 {
					return string(line), nil
				}
				return "", err
			}
			if b == '\n' {
				return string(line), nil
			}
			line = append(line, b)
		}
	}

	var lines []string
	for {
		line, err := readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("stdin closed")
	}
	return lines, nil
}
