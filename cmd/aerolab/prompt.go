package main

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// accessible switches huh to plain line prompts for screen readers and
// dumb terminals.
func accessible() bool {
	return os.Getenv("ACCESSIBLE") != "" || os.Getenv("TERM") == "dumb"
}

func promptSecret(title string) (string, error) {
	var v string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&v),
		),
	).WithAccessible(accessible())
	if err := form.Run(); err != nil {
		return "", err
	}
	return v, nil
}

func promptDescription() (string, error) {
	var v string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Describe the experiment").
				Description("What should be optimized, under which constraints.").
				Value(&v).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("description cannot be empty")
					}
					return nil
				}),
		),
	).WithAccessible(accessible())
	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}
