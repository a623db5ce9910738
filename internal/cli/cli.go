// Package cli is the interactive terminal front end: argument checks, the
// menu loop and the help screen.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"example.com/fairplay/internal/game"
	"example.com/fairplay/internal/logger"
	"example.com/fairplay/internal/render"
	"example.com/fairplay/internal/rules"
)

const usageError = `Error: Incorrect number of moves or duplicate moves found. ` +
	`Please provide an odd number (3 or more) of unique moves, e.g. "rps rock paper scissors".`

// Options are the seams tests use; zero values mean production behaviour.
type Options struct {
	Randomness game.Randomness
	Renderer   render.Renderer
	Log        *slog.Logger
}

func Run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return RunWith(ctx, argv, stdin, stdout, stderr, Options{})
}

func RunWith(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer, opts Options) int {
	fs := flag.NewFlagSet("rps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noColor := fs.Bool("no-color", false, "disable colours in the help table")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: rps [-no-color] [--] move1 move2 move3 [...]")
		fmt.Fprintln(stderr, "options are only read before the first move; moves may start with '-'")
		fs.PrintDefaults()
	}
	options, moves := splitArgs(argv)
	if err := fs.Parse(options); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := rules.Validate(moves); err != nil {
		fmt.Fprintln(stderr, usageError)
		fmt.Fprintf(stderr, "(%v)\n", err)
		return 1
	}

	log := opts.Log
	if log == nil {
		log = logger.New(os.Getenv("LOG_FORMAT"), envOr("LOG_LEVEL", "warn"), stderr)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.TableRenderer{NoColor: *noColor}
	}

	sess, err := game.NewSession("local", moves, opts.Randomness)
	if err != nil {
		// only a dead entropy source gets here
		log.Error("cannot start round", "err", err)
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	out := bufio.NewWriter(stdout)
	defer func() { _ = out.Flush() }()

	g := &Game{
		sess:     sess,
		renderer: renderer,
		in:       bufio.NewScanner(stdin),
		out:      out,
		log:      log,
	}
	if err := g.Run(ctx); err != nil {
		_ = out.Flush()
		if errors.Is(err, context.Canceled) {
			log.Debug("interrupted")
			return 130
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// splitArgs takes the leading options off argv. Anything else, including a
// label such as "-1", starts the move list; "--" ends the options explicitly.
func splitArgs(argv []string) (options, moves []string) {
	for i, a := range argv {
		switch {
		case a == "--":
			return argv[:i], argv[i+1:]
		case isOption(a):
			continue
		default:
			return argv[:i], argv[i:]
		}
	}
	return argv, nil
}

func isOption(a string) bool {
	name := strings.TrimLeft(a, "-")
	if name == a || len(a)-len(name) > 2 {
		return false
	}
	name, _, _ = strings.Cut(name, "=")
	switch name {
	case "no-color", "h", "help":
		return true
	}
	return false
}

// Game drives one session through the terminal. Each loop iteration does a
// single blocking read.
type Game struct {
	sess     *game.Session
	renderer render.Renderer
	in       *bufio.Scanner
	out      *bufio.Writer
	log      *slog.Logger
}

// Run returns context.Canceled when ctx ends while waiting for input.
func (g *Game) Run(ctx context.Context) error {
	fmt.Fprintf(g.out, "HMAC: %s\n", g.sess.Digest())
	g.printMenu()

	readCtx, stop := context.WithCancel(ctx)
	defer stop()
	lines := readLines(readCtx, g.in)

	for {
		fmt.Fprint(g.out, "Enter your move: ")
		if err := g.out.Flush(); err != nil {
			return err
		}

		var l line
		select {
		case <-ctx.Done():
			fmt.Fprintln(g.out)
			return ctx.Err()
		case got, ok := <-lines:
			if !ok {
				fmt.Fprintln(g.out)
				return nil
			}
			l = got
		}
		if l.err != nil {
			return l.err
		}
		input := strings.TrimSpace(l.text)

		switch input {
		case "0":
			g.log.Debug("user exit")
			return nil
		case "?":
			if err := g.printHelp(); err != nil {
				return err
			}
			continue
		}

		idx, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintln(g.out, "Invalid input. Please try again.")
			continue
		}

		res, err := g.sess.Play(idx)
		if errors.Is(err, game.ErrIndexOutOfRange) {
			fmt.Fprintln(g.out, "Invalid input. Please try again.")
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(g.out, "Your move: %s\n", res.UserMove)
		fmt.Fprintf(g.out, "Computer move: %s\n", res.ComputerMove)
		fmt.Fprintln(g.out, res.Message())
		fmt.Fprintf(g.out, "HMAC key: %s\n", res.KeyHex())
		return nil
	}
}

type line struct {
	text string
	err  error
}

// readLines feeds scanned lines to the game loop so a blocked read never
// holds up cancellation. The channel closes at EOF; a read error is sent
// first.
func readLines(ctx context.Context, sc *bufio.Scanner) <-chan line {
	ch := make(chan line)
	go func() {
		defer close(ch)
		for sc.Scan() {
			select {
			case ch <- line{text: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case ch <- line{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

func (g *Game) printMenu() {
	fmt.Fprintln(g.out, "Available moves:")
	for _, it := range g.sess.Menu() {
		fmt.Fprintf(g.out, "%s - %s\n", it.Key, it.Label)
	}
}

func (g *Game) printHelp() error {
	table, err := g.sess.Help()
	if err != nil {
		return err
	}

	fmt.Fprintln(g.out, "Help - Results from the user's point of view:")
	fmt.Fprintln(g.out, "Win: Your move beats the computer's move.")
	fmt.Fprintln(g.out, "Lose: Your move is beaten by the computer's move.")
	fmt.Fprintln(g.out, "Draw: Both you and the computer have made the same move.")
	fmt.Fprintln(g.out)
	return g.renderer.RenderRules(g.out, table)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
