package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// terminalFD reports the descriptor of in when it is an interactive terminal.
func terminalFD(in io.Reader) (int, bool) {
	f, ok := in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// readLine reads one line and trims the line terminator. A final line without
// a newline is returned; io.EOF is reported only when nothing was read.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Shell) ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt+": ")
	line, err := readLine(s.in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askDefault shows the current value and keeps it when the answer is empty.
func (s *Shell) askDefault(prompt, current string) (string, error) {
	answer, err := s.ask(fmt.Sprintf("%s [%s]", prompt, current))
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

// askSecret reads without echo on a terminal and falls back to a plain line
// when input is piped.
func (s *Shell) askSecret(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt+": ")
	if s.interactive {
		pw, err := readPassword(s.fd)
		fmt.Fprintln(s.out)
		if err != nil {
			return "", err
		}
		defer wipe(pw)
		return string(pw), nil
	}
	return readLine(s.in)
}

// askMultiline collects lines until an empty one.
func (s *Shell) askMultiline(prompt string) (string, error) {
	fmt.Fprintln(s.out, prompt+" (empty line to finish)")
	var lines []string
	for {
		line, err := readLine(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Shell) confirm(prompt string) (bool, error) {
	answer, err := s.ask(prompt + " [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
