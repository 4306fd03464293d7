package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

const (
	emailLabel    = "Enter your Garmin Connect email: "
	passwordLabel = "Enter your Garmin Connect password: "
)

// Prompter asks the user for credentials. Passwords are read without echo
// when the input is a terminal.
type Prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

func (p *Prompter) Email() (string, error) {
	fmt.Fprint(p.out, emailLabel)
	line, err := p.readLine()
	if err != nil {
		return "", errors.Wrap(err, "could not read email")
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) Password() (string, error) {
	fmt.Fprint(p.out, passwordLabel)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", errors.Wrap(err, "could not read password")
		}
		return string(data), nil
	}

	line, err := p.readLine()
	if err != nil {
		return "", errors.Wrap(err, "could not read password")
	}
	return line, nil
}

// readLine returns one line without its line ending. EOF on an empty line
// yields "".
func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
