package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

var errAborted = errors.New("aborted")

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func required(what string) promptui.ValidateFunc {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

// ask prompts for one value. Outside a terminal it fails with a hint naming
// the flag to pass instead.
func (e *Env) ask(label, flag, def string, mask bool, validate promptui.ValidateFunc) (string, error) {
	if !e.Interactive {
		return "", fmt.Errorf("%s is required in non-interactive mode (use --%s)", strings.ToLower(label), flag)
	}

	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
		Stdin:    e.Stdin,
		Stdout:   nopWriteCloser{e.Stdout},
	}
	if mask {
		p.Mask = '*'
	}

	value, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// choose prompts for one of items and returns its index
func (e *Env) choose(label, flag string, items []string) (int, error) {
	if !e.Interactive {
		return -1, fmt.Errorf("%s is required in non-interactive mode (use --%s)", strings.ToLower(label), flag)
	}

	s := promptui.Select{
		Label:  label,
		Items:  items,
		Stdin:  e.Stdin,
		Stdout: nopWriteCloser{e.Stdout},
	}

	i, _, err := s.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return -1, errAborted
		}
		return -1, err
	}
	return i, nil
}
