package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mrdg/samplerbox/audio"
	"github.com/mrdg/samplerbox/dub"
)

type env struct {
	engine *audio.Engine
}

func (e *env) eval(input string) (string, error) {
	command, err := dub.Parse(input)
	if err != nil {
		return "", err
	}
	name := string(command.Name)
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity
			if len(command.Args) < arity-1 || len(command.Args) > arity {
				return "", fmt.Errorf("%s: wrong number of arguments: want %v or %v, got %v",
					cmd.name, arity-1, arity, len(command.Args))
			}
		} else if len(command.Args) != cmd.arity {
			return "", fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(command.Args))
		}
		result, err := cmd.run(e, command.Args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, nil
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

// runScript evaluates every non-empty line of the file at path, stopping at
// the first error. Lines starting with # are comments.
func runScript(e *env, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := e.eval(line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return scanner.Err()
}

// repl reads commands from the terminal until EOF or until ctx is done.
func repl(ctx context.Context, env *env) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer stop()

	for {
		line, err := rl.Readline()
		if err == io.EOF || errors.Is(err, readline.ErrInterrupt) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			fmt.Fprintln(rl.Stderr(), err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if result, err := env.eval(line); err != nil {
			fmt.Fprintln(rl.Stderr(), err)
		} else if result != "" {
			fmt.Fprintln(rl.Stdout(), result)
		}
	}
}
