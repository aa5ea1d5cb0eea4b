package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

func isInteractive(stdin *os.File) bool {
	if stdin == nil {
		return false
	}
	return isatty.IsTerminal(stdin.Fd()) || isatty.IsCygwinTerminal(stdin.Fd())
}

// promptPassword reads one line from stdin with terminal echo turned off.
func promptPassword(stdin *os.File, stdout io.Writer, label string) (string, error) {
	if stdin == nil {
		return "", errors.New("stdin unavailable")
	}
	fmt.Fprint(stdout, label)
	defer fmt.Fprintln(stdout)

	restore, err := disableEcho(stdin)
	if err != nil {
		return "", err
	}
	defer restore()

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
