package config

import (
	"fmt"
	"strings"

	"github.com/decaf-lang/dscan/pkg/cli"
)

type Feature int

const (
	FeatComments Feature = iota
	FeatSingleCharIdent
	FeatFuncKeyword
	FeatCRLF
	FeatCount
)

type Warning int

const (
	WarnOverflow Warning = iota
	WarnUnterminated
	WarnCarriageReturn
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	StdName    string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		StdName:    "P1",
	}

	features := map[Feature]Info{
		FeatComments:        {"comments", true, "Recognize '//' and '/* */' comments."},
		FeatSingleCharIdent: {"single-char-ident", true, "Always scan one-letter words as identifiers, even if reserved."},
		FeatFuncKeyword:     {"func-keyword", false, "Reserve 'func' as the T_FUNC keyword."},
		FeatCRLF:            {"crlf", false, "Treat '\\r' as whitespace so CRLF sources scan cleanly."},
	}

	warnings := map[Warning]Info{
		WarnOverflow:       {"overflow", true, "Warn when an integer constant does not fit in 64 bits."},
		WarnUnterminated:   {"unterminated", true, "Warn when an illegal quote probably starts an unterminated literal."},
		WarnCarriageReturn: {"carriage-return", true, "Warn when the source contains '\\r' characters."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// standard is the preset a -std name selects. Features and warnings it does
// not name keep their current state.
type standard struct {
	features map[Feature]bool
	warnings map[Warning]bool
}

// P1 reproduces the course reference scanner; decaf is the cleaned-up dialect.
var standards = map[string]standard{
	"P1": {
		features: map[Feature]bool{FeatComments: true, FeatSingleCharIdent: true, FeatFuncKeyword: false, FeatCRLF: false},
		warnings: map[Warning]bool{WarnCarriageReturn: true},
	},
	"decaf": {
		features: map[Feature]bool{FeatComments: true, FeatSingleCharIdent: false, FeatFuncKeyword: true, FeatCRLF: true},
		warnings: map[Warning]bool{WarnCarriageReturn: false},
	},
}

// ApplyStd switches c to the preset of the named standard.
func (c *Config) ApplyStd(stdName string) error {
	std, ok := standards[stdName]
	if !ok {
		return fmt.Errorf("unsupported standard '%s'. Supported: 'P1', 'decaf'", stdName)
	}
	for ft, on := range std.features {
		c.SetFeature(ft, on)
	}
	for wt, on := range std.warnings {
		c.SetWarning(wt, on)
	}
	c.StdName = stdName
	return nil
}

// applyFlag applies one "-W[no-]name" or "-F[no-]name" switch. A name with
// neither prefix is taken as a warning; unknown names are ignored.
func (c *Config) applyFlag(flag string) {
	s := strings.TrimPrefix(flag, "-")
	feature := strings.HasPrefix(s, "F")
	if feature || strings.HasPrefix(s, "W") {
		s = s[1:]
	}
	name, off := strings.CutPrefix(s, "no-")

	switch {
	case feature:
		if ft, ok := c.FeatureMap[name]; ok {
			c.SetFeature(ft, !off)
		}
	case name == "all":
		for wt := range WarnCount {
			c.SetWarning(wt, !off)
		}
	default:
		if wt, ok := c.WarningMap[name]; ok {
			c.SetWarning(wt, !off)
		}
	}
}

// ProcessFlags applies a whitespace separated flag string such as
// "-Wall -Fno-comments". "-Wall"/"-Wno-all" go first so the individual
// flags can override them.
func (c *Config) ProcessFlags(flagStr string) {
	flags := strings.Fields(flagStr)
	isAll := func(flag string) bool {
		name := strings.TrimPrefix(flag, "-")
		return name == "Wall" || name == "Wno-all"
	}
	for _, flag := range flags {
		if isAll(flag) {
			c.applyFlag(flag)
		}
	}
	for _, flag := range flags {
		if !isAll(flag) {
			c.applyFlag(flag)
		}
	}
}

// SetupFlagGroups registers the -W and -F switches, in table order, on fs.
// The returned entries are read back by ApplyFlagGroups after parsing.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	entry := func(info Info) cli.FlagGroupEntry {
		return cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Default: info.Enabled, Enabled: new(bool), Disabled: new(bool)}
	}
	for i := Warning(0); i < WarnCount; i++ {
		warningFlags = append(warningFlags, entry(c.Warnings[i]))
	}
	for i := Feature(0); i < FeatCount; i++ {
		featureFlags = append(featureFlags, entry(c.Features[i]))
	}

	fs.AddFlagGroup(cli.FlagGroup{Title: "Warning Flags", Kind: "warning", Prefix: "W", Entries: warningFlags})
	fs.AddFlagGroup(cli.FlagGroup{Title: "Feature Flags", Kind: "feature", Prefix: "F", Entries: featureFlags})
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the switches given on the command line, as recorded
// in the entries from SetupFlagGroups, onto c.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, e := range warningFlags {
		if on, set := e.Explicit(); set {
			c.SetWarning(Warning(i), on)
		}
	}
	for i, e := range featureFlags {
		if on, set := e.Explicit(); set {
			c.SetFeature(Feature(i), on)
		}
	}
}
