// Package cli parses the dscan command line and renders its usage and help
// pages. Flags may be spelled "--name", "-name" or "-name=value", and a
// shorthand may carry its value attached ("-cnever"). Warning and feature
// switches are declared as groups so "-Wfoo" and "-Wno-foo" come in pairs.
package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v stringValue) Set(s string) error { *v.p = s; return nil }
func (v stringValue) String() string     { return *v.p }

// boolValue treats a bare flag as true.
type boolValue struct{ p *bool }

func (v boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s'", s)
	}
	*v.p = b
	return nil
}

func (v boolValue) String() string { return strconv.FormatBool(*v.p) }

type intValue struct{ p *int }

func (v intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer '%s'", s)
	}
	*v.p = n
	return nil
}

func (v intValue) String() string { return strconv.Itoa(*v.p) }

type durationValue struct{ p *time.Duration }

func (v durationValue) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration '%s'", s)
	}
	*v.p = d
	return nil
}

func (v durationValue) String() string { return v.p.String() }

type Flag struct {
	Name        string
	Shorthand   string
	Usage       string
	DefValue    string
	Placeholder string
	Value       Value
	grouped     bool
}

func (fl *Flag) isBool() bool {
	_, ok := fl.Value.(boolValue)
	return ok
}

func (fl *Flag) label() string {
	var b strings.Builder
	if fl.Shorthand != "" {
		fmt.Fprintf(&b, "-%s, ", fl.Shorthand)
	}
	b.WriteString("--" + fl.Name)
	if !fl.isBool() && fl.Placeholder != "" {
		b.WriteString("=" + fl.Placeholder)
	}
	return b.String()
}

// FlagGroupEntry is one switch of a group. After Parse, Enabled holds whether
// "-<prefix><name>" was given and Disabled whether "-<prefix>no-<name>" was.
type FlagGroupEntry struct {
	Name     string
	Usage    string
	Default  bool
	Enabled  *bool
	Disabled *bool
}

// Explicit reports whether the entry was switched on the command line and to
// which state. The disable switch wins when both were given.
func (e FlagGroupEntry) Explicit() (enabled, set bool) {
	switch {
	case e.Disabled != nil && *e.Disabled:
		return false, true
	case e.Enabled != nil && *e.Enabled:
		return true, true
	}
	return false, false
}

type FlagGroup struct {
	Title   string // help page heading, e.g. "Warning Flags"
	Kind    string // e.g. "warning"
	Prefix  string // e.g. "W"
	Entries []FlagGroupEntry
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []FlagGroup
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

// Args returns the positional arguments left after Parse.
func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, placeholder string) {
	*p = value
	f.Var(stringValue{p}, name, shorthand, usage, value, placeholder)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage string) {
	*p = value
	f.Var(intValue{p}, name, shorthand, usage, strconv.Itoa(value), "n")
}

func (f *FlagSet) Duration(p *time.Duration, name, shorthand string, value time.Duration, usage string) {
	*p = value
	f.Var(durationValue{p}, name, shorthand, usage, value.String(), "duration")
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, placeholder string) *Flag {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, DefValue: defValue, Placeholder: placeholder, Value: value}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
	return flag
}

// AddFlagGroup defines the enable and disable switch of every entry of g.
func (f *FlagSet) AddFlagGroup(g FlagGroup) {
	for _, e := range g.Entries {
		*e.Enabled, *e.Disabled = false, false
		f.Var(boolValue{e.Enabled}, g.Prefix+e.Name, "", e.Usage, "false", "").grouped = true
		f.Var(boolValue{e.Disabled}, g.Prefix+"no-"+e.Name, "", "Disable '"+e.Name+"'", "false", "").grouped = true
	}
	f.groups = append(f.groups, g)
}

// UnknownFlagError is returned by Parse for a flag that was never defined.
// Suggestion holds the closest defined flag, if any resembles it.
type UnknownFlagError struct {
	Flag       string
	Suggestion string
}

func (e *UnknownFlagError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown flag: %s (did you mean '-%s'?)", e.Flag, e.Suggestion)
	}
	return fmt.Sprintf("unknown flag: %s", e.Flag)
}

func (f *FlagSet) suggest(name string) string {
	ranks := fuzzy.RankFindFold(name, slices.Sorted(maps.Keys(f.flags)))
	if len(ranks) == 0 {
		return ""
	}
	sort.Stable(ranks)
	return ranks[0].Target
}

// Parse consumes flags from arguments. Everything that is not a flag, and
// everything after "--", is kept as a positional argument.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}

		flag, value, hasValue, err := f.resolve(arg)
		if err != nil {
			return err
		}
		if !hasValue && !flag.isBool() {
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = arguments[i]
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

// resolve finds the flag arg names and any value attached to it.
func (f *FlagSet) resolve(arg string) (*Flag, string, bool, error) {
	name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	if name == "" {
		return nil, "", false, fmt.Errorf("empty flag name: %s", arg)
	}
	if flag, ok := f.flags[name]; ok {
		return flag, value, hasValue, nil
	}
	if arg[1] != '-' {
		if flag, ok := f.shorthands[arg[1:2]]; ok {
			rest := arg[2:]
			switch {
			case rest == "":
				return flag, "", false, nil
			case !flag.isBool():
				return flag, strings.TrimPrefix(rest, "="), true, nil
			}
		}
	}
	return nil, "", false, &UnknownFlagError{Flag: arg, Suggestion: f.suggest(name)}
}

// options returns the non-group flags sorted by name.
func (f *FlagSet) options() []*Flag {
	var opts []*Flag
	for _, fl := range f.flags {
		if !fl.grouped {
			opts = append(opts, fl)
		}
	}
	slices.SortFunc(opts, func(a, b *Flag) int { return strings.Compare(a.Name, b.Name) })
	return opts
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
	help        bool
}

func NewApp(name string) *App {
	app := &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	app.FlagSet.Bool(&app.help, "help", "h", false, "Display this information")
	return app
}

// Run parses arguments and calls Action with the positional ones. A parse
// error is printed with the usage page and returned.
func (a *App) Run(arguments []string) error {
	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\n", a.Name, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if a.help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action == nil {
		return nil
	}
	return a.Action(a.FlagSet.Args())
}

func (a *App) writeUsage(w io.Writer) {
	p := newPage(terminalWidth(w))
	fmt.Fprintf(&p.sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	a.writeOptions(p)
	fmt.Fprintf(&p.sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, p.sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	p := newPage(terminalWidth(w))
	for _, g := range a.FlagSet.groups {
		p.fit(fmt.Sprintf("-%sno-<%s>", g.Prefix, g.Kind), "")
		for _, e := range g.Entries {
			p.fit(e.Name, e.Usage)
		}
	}

	years := strconv.Itoa(time.Now().Year())
	if a.Since != 0 && a.Since < time.Now().Year() {
		years = fmt.Sprintf("%d-%s", a.Since, years)
	}
	fmt.Fprintf(&p.sb, "\n%sCopyright (c) %s: %s and contributors\n", indent(1), years, strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&p.sb, "%sFor more details refer to %s\n", indent(1), a.Repository)
	}
	if a.Synopsis != "" {
		p.section("Synopsis")
		p.text(a.Name + " " + a.Synopsis)
	}
	if a.Description != "" {
		p.section("Description")
		p.text(a.Description)
	}
	a.writeOptions(p)

	for _, g := range a.FlagSet.groups {
		p.section(g.Title)
		p.entry(fmt.Sprintf("-%s<%s>", g.Prefix, g.Kind), "Enable a specific "+g.Kind, "")
		p.entry(fmt.Sprintf("-%sno-<%s>", g.Prefix, g.Kind), "Disable a specific "+g.Kind, "")
		for _, e := range g.Entries {
			state := "[off]"
			if e.Default {
				state = "[on]"
			}
			p.entry(e.Name, e.Usage, state)
		}
	}
	io.WriteString(w, p.sb.String())
}

func (a *App) writeOptions(p *page) {
	opts := a.FlagSet.options()
	if len(opts) == 0 {
		return
	}
	for _, fl := range opts {
		p.fit(fl.label(), fl.Usage)
	}
	p.section("Options")
	for _, fl := range opts {
		note := ""
		if !fl.isBool() && fl.DefValue != "" {
			note = "(default " + fl.DefValue + ")"
		}
		p.entry(fl.label(), fl.Usage, note)
	}
}

func indent(level int) string { return strings.Repeat(" ", 4*level) }

// page lays out two-column entries: a left label column and a usage column
// wrapped to the terminal, with an optional note after the usage.
type page struct {
	sb    strings.Builder
	width int
	left  int
	usage int
}

func newPage(width int) *page { return &page{width: width} }

// fit widens the columns so label and usage line up with every other entry.
func (p *page) fit(label, usage string) {
	p.left = max(p.left, len(label))
	p.usage = max(p.usage, len(usage))
}

func (p *page) section(title string) {
	fmt.Fprintf(&p.sb, "\n%s%s\n", indent(1), title)
}

func (p *page) text(s string) {
	for _, line := range wrapText(s, max(p.width-len(indent(2)), 20)) {
		fmt.Fprintf(&p.sb, "%s%s\n", indent(2), line)
	}
}

func (p *page) entry(label, usage, note string) {
	avail := max(p.width-len(indent(2))-p.left-1, 10)
	if note != "" {
		avail = max(avail-len(note)-2, 10)
	}
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}

	if note != "" {
		fmt.Fprintf(&p.sb, "%s%-*s %-*s  %s\n", indent(2), p.left, label, min(p.usage, avail), first, note)
	} else {
		fmt.Fprintf(&p.sb, "%s%-*s %s\n", indent(2), p.left, label, first)
	}
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(&p.sb, "%s%s %s\n", indent(2), strings.Repeat(" ", p.left), line)
	}
}

// IsTerminal reports whether w is a terminal, for deciding on colored output.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth is the width of w if it is a terminal, else 80 columns.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

// wrapText breaks text into lines of at most maxWidth bytes, splitting at
// spaces. A single word longer than maxWidth gets a line of its own.
func wrapText(text string, maxWidth int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > maxWidth {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
