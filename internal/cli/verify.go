package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"example.com/fairplay/internal/commit"
)

// RunVerify checks a revealed key against a published HMAC.
// Exit codes: 0 match, 1 mismatch, 2 bad input.
func RunVerify(argv []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	key := fs.String("key", "", "revealed HMAC key (hex)")
	move := fs.String("move", "", "computer move as printed after the round")
	digest := fs.String("hmac", "", "HMAC printed before the round (hex)")

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *key == "" || *move == "" || *digest == "" {
		fmt.Fprintln(stderr, "verify: -key, -move and -hmac are required")
		fs.Usage()
		return 2
	}

	ok, err := commit.Verify(*key, *move, *digest)
	if err != nil {
		fmt.Fprintln(stderr, "verify:", err)
		return 2
	}
	if !ok {
		fmt.Fprintln(stdout, "MISMATCH")
		return 1
	}
	fmt.Fprintln(stdout, "OK")
	return 0
}
