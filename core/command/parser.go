// Package command defines the contract between the history engine and
// application commands: the fixed-arity option parser, the backup
// cursor commands use to capture and restore state, and the registry
// the engine dispatches through.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownOption   = errors.New("unknown option")
	ErrMissingOption   = errors.New("missing required option")
	ErrMissingArgument = errors.New("missing option argument")
	ErrNotParsed       = errors.New("option not present in last parse")
)

// Handle identifies a registered option.
type Handle int

type option struct {
	name     string
	help     string
	required bool
	arity    int
	seen     bool
	args     []string
}

// Parser parses command lines of the form
//
//	<name> -opt a b -flag ...
//
// where each option consumes a fixed number of arguments. A help
// option (-h) is registered automatically; when present, required
// options are not enforced.
type Parser struct {
	name   string
	about  string
	opts   []*option
	byName map[string]Handle
	help   Handle
}

// NewParser creates a parser for the named command.
func NewParser(name, about string) *Parser {
	p := &Parser{
		name:   name,
		about:  about,
		byName: make(map[string]Handle),
	}
	p.help = p.AddOption("h", "Show this help message\nUse -h or --h to display", false, 0)
	return p
}

// AddOption registers an option taking arity arguments and returns its
// handle. Option names are matched without their leading dashes.
func (p *Parser) AddOption(name, help string, required bool, arity int) Handle {
	h := Handle(len(p.opts))
	p.opts = append(p.opts, &option{
		name:     name,
		help:     help,
		required: required,
		arity:    arity,
	})
	p.byName[name] = h
	return h
}

// Parse clears any prior parse state and parses line. The first
// whitespace-delimited token is the command name and is skipped.
func (p *Parser) Parse(line string) error {
	p.reset()

	tokens := strings.Fields(line)
	if len(tokens) > 0 {
		tokens = tokens[1:]
	}

	for i := 0; i < len(tokens); {
		consumed, err := p.parseOption(tokens[i:])
		if err != nil {
			return err
		}
		i += consumed
	}

	if p.HelpRequested() {
		return nil
	}
	return p.checkRequired()
}

func (p *Parser) reset() {
	for _, opt := range p.opts {
		opt.seen = false
		opt.args = nil
	}
}

func (p *Parser) parseOption(tokens []string) (int, error) {
	name := strings.TrimLeft(tokens[0], "-")
	h, ok := p.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOption, tokens[0])
	}

	opt := p.opts[h]
	if len(tokens)-1 < opt.arity {
		return 0, fmt.Errorf("%w: -%s expects %d argument(s), found %d",
			ErrMissingArgument, opt.name, opt.arity, len(tokens)-1)
	}

	opt.seen = true
	opt.args = tokens[1 : 1+opt.arity]
	return 1 + opt.arity, nil
}

func (p *Parser) checkRequired() error {
	for _, opt := range p.opts {
		if opt.required && !opt.seen {
			return fmt.Errorf("%w: -%s", ErrMissingOption, opt.name)
		}
	}
	return nil
}

// Seen reports whether the option was present in the last parse.
func (p *Parser) Seen(h Handle) bool {
	return p.opts[h].seen
}

// HelpRequested reports whether the help option was present in the
// last parse.
func (p *Parser) HelpRequested() bool {
	return p.Seen(p.help)
}

// Arg returns the i-th argument of the option from the last parse.
func (p *Parser) Arg(h Handle, i int) (string, error) {
	opt := p.opts[h]
	if !opt.seen {
		return "", fmt.Errorf("%w: -%s", ErrNotParsed, opt.name)
	}
	return opt.args[i], nil
}

// IntArg returns the i-th argument of the option parsed as an integer.
func (p *Parser) IntArg(h Handle, i int) (int64, error) {
	raw, err := p.Arg(h, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("option -%s argument %d: %w", p.opts[h].name, i, err)
	}
	return v, nil
}

// Help returns the formatted help text for the command.
func (p *Parser) Help() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", p.name, p.about)
	for _, opt := range p.opts {
		required := ""
		if opt.required {
			required = " (required)"
		}
		fmt.Fprintf(&b, "  -%s%s\n", opt.name, required)
		for _, line := range strings.Split(opt.help, "\n") {
			fmt.Fprintf(&b, "      %s\n", line)
		}
	}
	return b.String()
}
