package terminal

import (
	"bufio"
	"io"
	"strings"
)

// Command is a slash command typed at the prompt
type Command string

const (
	CmdNone  Command = ""
	CmdExit  Command = "/exit"
	CmdCopy  Command = "/copy"
	CmdClear Command = "/clear"
	CmdHelp  Command = "/help"
)

// Input reads submissions from the terminal
type Input struct {
	reader *bufio.Reader
}

// NewInput creates an input reader over r
func NewInput(r io.Reader) *Input {
	return &Input{reader: bufio.NewReader(r)}
}

// ReadLine reads a line of input from the user. A trailing backslash
// continues the submission on the next line.
func (in *Input) ReadLine() (string, error) {
	var lines []string

	for {
		line, err := in.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if len(lines) > 0 {
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.HasSuffix(line, `\`) && err == nil {
			lines = append(lines, strings.TrimSuffix(line, `\`))
			continue
		}

		lines = append(lines, line)
		return strings.Join(lines, "\n"), nil
	}
}

// ParseCommand reports which command, if any, the input is
func ParseCommand(input string) Command {
	switch strings.TrimSpace(input) {
	case "/exit", "/quit", "exit", "quit":
		return CmdExit
	case "/copy":
		return CmdCopy
	case "/clear":
		return CmdClear
	case "/help":
		return CmdHelp
	default:
		return CmdNone
	}
}
