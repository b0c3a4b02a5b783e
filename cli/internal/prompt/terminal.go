// Package prompt asks the user for values on the terminal using liner line
// editing.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned when the user presses Ctrl-C or closes input.
var ErrAborted = errors.New("prompt aborted")

// Terminal prompts on the controlling terminal. The liner state is created
// on first use so commands that never prompt leave the terminal untouched.
type Terminal struct {
	out      io.Writer
	state    *liner.State
	readLine func(prompt string) (string, error)
}

// NewTerminal returns a Terminal that writes help text and option lists to out.
func NewTerminal(out io.Writer) *Terminal {
	if out == nil {
		out = os.Stdout
	}
	t := &Terminal{out: out}
	t.readLine = t.linerPrompt
	return t
}

func (t *Terminal) linerPrompt(p string) (string, error) {
	if t.state == nil {
		t.state = liner.NewLiner()
		t.state.SetCtrlCAborts(true)
	}
	line, err := t.state.Prompt(p)
	if err == liner.ErrPromptAborted || err == io.EOF {
		return "", ErrAborted
	}
	return line, err
}

// Close restores the terminal mode.
func (t *Terminal) Close() error {
	if t.state == nil {
		return nil
	}
	err := t.state.Close()
	t.state = nil
	return err
}

// Text reads one line. An empty answer returns def. def is shown masked
// since the only caller passes a credential.
func (t *Terminal) Text(label, def, help string) (string, error) {
	if help != "" {
		fmt.Fprintln(t.out, help)
	}
	p := label
	if def != "" {
		p += " [" + Mask(def) + "]"
	}
	line, err := t.readLine(p + ": ")
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Select shows the options matching filter as a numbered list and reads a
// choice. The answer may be a number, an exact option, or a new filter.
// Enter accepts the only remaining match.
func (t *Terminal) Select(label string, options []string, filter string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("nothing to select")
	}
	for {
		matches := Filter(options, filter)
		if len(matches) == 0 {
			fmt.Fprintf(t.out, "No option matches %q.\n", filter)
			filter = ""
			continue
		}
		for i, m := range matches {
			fmt.Fprintf(t.out, "%3d) %s\n", i+1, m)
		}
		p := label + " (number, name, or filter)"
		if filter != "" {
			p += " [" + filter + "]"
		}
		line, err := t.readLine(p + ": ")
		if err != nil {
			return "", err
		}
		choice, next, ok := Choose(options, matches, line)
		if ok {
			return choice, nil
		}
		filter = next
	}
}

// Filter returns the options containing filter, case-insensitively, in order.
func Filter(options []string, filter string) []string {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return options
	}
	var out []string
	for _, o := range options {
		if strings.Contains(strings.ToLower(o), filter) {
			out = append(out, o)
		}
	}
	return out
}

// Choose interprets input against the displayed matches. It returns the
// choice and true, or the filter to apply next and false.
func Choose(options, matches []string, input string) (choice, nextFilter string, ok bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		if len(matches) == 1 {
			return matches[0], "", true
		}
		return "", "", false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(matches) {
			return matches[n-1], "", true
		}
		return "", "", false
	}
	for _, o := range options {
		if o == input {
			return o, "", true
		}
	}
	return "", input, false
}

// Mask hides all but the last four characters of a secret.
func Mask(s string) string {
	const visible = 4
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", 4) + s[len(s)-visible:]
}
