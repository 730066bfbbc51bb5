package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/decaf-lang/dscan/pkg/cli"
	"github.com/decaf-lang/dscan/pkg/config"
	"github.com/decaf-lang/dscan/pkg/display"
	"github.com/decaf-lang/dscan/pkg/lexer"
	"github.com/decaf-lang/dscan/pkg/rules"
	"github.com/decaf-lang/dscan/pkg/token"
	"github.com/decaf-lang/dscan/pkg/util"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := cli.NewApp("dscan")
	app.Synopsis = "[options] <filename.decaf>"
	app.Description = "A lexical analyzer for the Decaf language. Prints one line per token with its line and column span."
	app.Authors = []string{"the dscan authors"}
	app.Since = 2025
	app.Stdout, app.Stderr = stdout, stderr

	var (
		std   string
		color string
		rich  bool
		dump  bool
	)

	flags := app.FlagSet
	flags.String(&std, "std", "", "P1", "Specify language standard (P1, decaf)", "std")
	flags.String(&color, "color", "", "auto", "Color diagnostics: auto, always or never.", "when")
	flags.Bool(&rich, "rich", "r", false, "Report illegal characters as source-anchored errors on stderr.")
	flags.Bool(&dump, "dump", "d", false, "Dump each token's full structure instead of the listing.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(flags)

	exitCode := 0
	app.Action = func(inputFiles []string) error {
		if len(inputFiles) != 1 {
			fmt.Fprintln(stdout, "Usage: dscan <filename.decaf>")
			exitCode = 1
			return nil
		}

		// Standard first, then $DSCAN_FLAGS, then the command line
		if err := cfg.ApplyStd(std); err != nil {
			fmt.Fprintf(stderr, "dscan: error: %v\n", err)
			exitCode = 1
			return nil
		}
		if env := os.Getenv("DSCAN_FLAGS"); env != "" {
			fmt.Fprintf(stderr, "dscan: info: applying DSCAN_FLAGS '%s'\n", env)
			cfg.ProcessFlags(env)
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		useColor, err := colorMode(color, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "dscan: error: %v\n", err)
			exitCode = 1
			return nil
		}

		path := inputFiles[0]
		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(stdout, "File '%s' not found.\n", path)
			return nil
		}
		if err != nil {
			fmt.Fprintf(stderr, "dscan: error: could not read file '%s': %v\n", path, err)
			exitCode = 1
			return nil
		}

		source := []rune(string(content))
		rep := util.NewReporter(stderr, util.SourceFileRecord{Name: path, Content: source}, cfg, useColor)
		seq := diagnose(lexer.NewLexer(source, rules.NewTable(cfg)).All(), rep, rich)

		if dump {
			dumpTokens(stdout, seq)
			return nil
		}
		if _, err := display.Write(stdout, seq); err != nil {
			fmt.Fprintf(stderr, "dscan: error: %v\n", err)
			exitCode = 1
		}
		return nil
	}

	if err := app.Run(args); err != nil {
		return 1
	}
	return exitCode
}

func colorMode(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "auto":
		return cli.IsTerminal(w), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	}
	return false, fmt.Errorf("invalid --color value '%s'. Supported: 'auto', 'always', 'never'", mode)
}

// diagnose reports warnings for the items of seq as they pass through. With
// rich set, illegal characters become errors on the reporter and are dropped
// from the listing.
func diagnose(seq iter.Seq2[token.Token, error], rep *util.Reporter, rich bool) iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		warnedCR := false
		for tok, err := range seq {
			var ice *lexer.IllegalCharError
			if errors.As(err, &ice) {
				at := token.Token{Type: token.Illegal, Offset: ice.Offset, Line: ice.Line, Column: ice.Column, EndColumn: ice.Column, Len: 1}
				switch ice.Char {
				case '"':
					rep.Warn(config.WarnUnterminated, at, "'\"' does not start a complete string literal")
				case '\'':
					rep.Warn(config.WarnUnterminated, at, "'\\'' does not start a complete character literal")
				case '\r':
					if !warnedCR {
						warnedCR = true
						rep.Warn(config.WarnCarriageReturn, at, "carriage return in source (use -Fcrlf or -std=decaf)")
					}
				}
				if rich {
					rep.Error(at, "illegal character '%c'", ice.Char)
					continue
				}
			} else if tok.Overflow {
				rep.Warn(config.WarnOverflow, tok, "integer constant %s does not fit in 64 bits", tok.Text)
			}
			if !yield(tok, err) {
				return
			}
		}
	}
}

func dumpTokens(w io.Writer, seq iter.Seq2[token.Token, error]) {
	dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	for tok, err := range seq {
		var ice *lexer.IllegalCharError
		if errors.As(err, &ice) {
			fmt.Fprintln(w, display.Illegal(ice))
			continue
		}
		dumper.Fdump(w, tok)
	}
}
