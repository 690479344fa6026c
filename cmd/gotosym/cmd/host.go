package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"gotosym/internal/nav"
)

// termHost implements nav.Host on the terminal: choices print to
// stdout, selection reads from stdin, and navigation launches $EDITOR
// at the location (or prints path:line:col when no editor is set).
type termHost struct {
	in *bufio.Reader
}

func newTermHost() *termHost {
	return &termHost{in: bufio.NewReader(os.Stdin)}
}

func (h *termHost) Notify(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func (h *termHost) Pick(choices []nav.Choice) (int, bool) {
	for i, c := range choices {
		fmt.Printf("%3d  %-32s %s\n", i+1, c.Label, c.Detail)
	}
	fmt.Fprint(os.Stderr, "select symbol (empty to cancel): ")

	line, err := h.in.ReadString('\n')
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(choices) {
		return 0, false
	}
	return n - 1, true
}

func (h *termHost) OpenLocation(path string, line, col int) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		fmt.Printf("%s:%d:%d\n", path, line, col)
		return nil
	}

	// +line is understood by vi, vim, nano, and friends
	cmd := exec.Command(editor, fmt.Sprintf("+%d", line), path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// termStatus renders transient scan status on stderr, clearing the
// line when the message is empty.
func termStatus(message string) {
	if message == "" {
		fmt.Fprint(os.Stderr, "\r\x1b[K")
		return
	}
	fmt.Fprintf(os.Stderr, "\r\x1b[K%s", message)
}
