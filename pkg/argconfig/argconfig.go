// Package argconfig implements a configurable parser for named argument
// records.
//
// Model-building entry points accept a sequence of tagged arguments rather
// than long positional parameter lists. A [Config] maps the contents of
// those arguments onto typed slots (integers, floats, strings, objects and
// string sets) that can be retrieved after processing, and enforces syntax
// rules such as required arguments, forbidden arguments, mutually exclusive
// arguments and dependencies between arguments.
//
//	cfg := argconfig.New("PlotOn")
//	cfg.DefineInt("lineColor", "LineColor", 0, 1)
//	cfg.DefineString("cutSpec", "CutSpec", 0, "")
//	cfg.Require("LineColor")
//	cfg.Process(args...)
//	if !cfg.OK() {
//	    return fmt.Errorf("missing arguments: %s", cfg.MissingArgs())
//	}
//	color := cfg.GetInt("lineColor")
package argconfig

import (
	"fmt"
	"slices"
	"strings"
)

// Arg is one named argument record. Name identifies the argument; the
// slices carry the typed payload slots the argument was constructed with.
type Arg struct {
	Name    string
	Ints    []int
	Doubles []float64
	Strings []string
	Objects []any
	Sets    [][]string
}

type intSlot struct {
	argName string
	slot    int
	value   int
}

type doubleSlot struct {
	argName string
	slot    int
	value   float64
}

type stringSlot struct {
	argName string
	slot    int
	value   string
	append  bool
}

type objectSlot struct {
	argName string
	slot    int
	value   any
}

type setSlot struct {
	argName string
	slot    int
	value   []string
}

// Config is a parser for [Arg] records. Define typed slots and syntax rules
// first, then call [Config.Process]; afterwards [Config.OK] reports whether
// all rules were satisfied and the typed getters return the harvested
// values (or the registered defaults).
type Config struct {
	owner string

	ints    map[string]*intSlot
	doubles map[string]*doubleSlot
	strings map[string]*stringSlot
	objects map[string]*objectSlot
	sets    map[string]*setSlot

	required  map[string]struct{}
	forbidden map[string]struct{}
	mutex     map[string][]string
	deps      map[string]string

	processed map[string]struct{}
	errs      []string

	// AllowUndefined suppresses errors for argument names no slot or rule
	// refers to. Off by default: unknown arguments are usually typos.
	AllowUndefined bool
}

// New creates a parser. The owner name is used as a prefix for every
// diagnostic generated by this parser, typically the method whose
// arguments are being processed.
func New(owner string) *Config {
	return &Config{
		owner:     owner,
		ints:      make(map[string]*intSlot),
		doubles:   make(map[string]*doubleSlot),
		strings:   make(map[string]*stringSlot),
		objects:   make(map[string]*objectSlot),
		sets:      make(map[string]*setSlot),
		required:  make(map[string]struct{}),
		forbidden: make(map[string]struct{}),
		mutex:     make(map[string][]string),
		deps:      make(map[string]string),
		processed: make(map[string]struct{}),
	}
}

// DefineInt registers property name mapped to integer slot slot of the
// argument named argName, with default def when the argument is absent.
func (c *Config) DefineInt(name, argName string, slot, def int) {
	if _, dup := c.ints[name]; dup {
		c.errs = append(c.errs, fmt.Sprintf("%s: int property %q already defined", c.owner, name))
		return
	}
	c.ints[name] = &intSlot{argName: argName, slot: slot, value: def}
}

// DefineDouble registers property name mapped to float slot slot of the
// argument named argName, with default def.
func (c *Config) DefineDouble(name, argName string, slot int, def float64) {
	if _, dup := c.doubles[name]; dup {
		c.errs = append(c.errs, fmt.Sprintf("%s: double property %q already defined", c.owner, name))
		return
	}
	c.doubles[name] = &doubleSlot{argName: argName, slot: slot, value: def}
}

// DefineString registers property name mapped to string slot slot of the
// argument named argName. If appendMode is true, values from multiple
// matching arguments are concatenated with commas; otherwise the last
// processed value wins.
func (c *Config) DefineString(name, argName string, slot int, def string, appendMode bool) {
	if _, dup := c.strings[name]; dup {
		c.errs = append(c.errs, fmt.Sprintf("%s: string property %q already defined", c.owner, name))
		return
	}
	c.strings[name] = &stringSlot{argName: argName, slot: slot, value: def, append: appendMode}
}

// DefineObject registers property name mapped to object slot slot of the
// argument named argName.
func (c *Config) DefineObject(name, argName string, slot int, def any) {
	if _, dup := c.objects[name]; dup {
		c.errs = append(c.errs, fmt.Sprintf("%s: object property %q already defined", c.owner, name))
		return
	}
	c.objects[name] = &objectSlot{argName: argName, slot: slot, value: def}
}

// DefineSet registers property name mapped to string-set slot slot of the
// argument named argName.
func (c *Config) DefineSet(name, argName string, slot int, def []string) {
	if _, dup := c.sets[name]; dup {
		c.errs = append(c.errs, fmt.Sprintf("%s: set property %q already defined", c.owner, name))
		return
	}
	c.sets[name] = &setSlot{argName: argName, slot: slot, value: slices.Clone(def)}
}

// Require marks argName as required: parsing fails unless it is processed.
func (c *Config) Require(argName string) {
	c.required[argName] = struct{}{}
}

// Forbid marks argName as forbidden: processing it is an error.
func (c *Config) Forbid(argName string) {
	c.forbidden[argName] = struct{}{}
}

// DefineMutex declares the given argument names mutually exclusive:
// processing one of them forbids all the others.
func (c *Config) DefineMutex(argNames ...string) {
	for _, a := range argNames {
		for _, b := range argNames {
			if a != b {
				c.mutex[a] = append(c.mutex[a], b)
			}
		}
	}
}

// DefineDependency declares that processing refArg requires neededArg to be
// processed as well for parsing to succeed.
func (c *Config) DefineDependency(refArg, neededArg string) {
	c.deps[refArg] = neededArg
}

// Process consumes the given argument records in order, populating slots
// and tracking rule violations. It may be called multiple times; state
// accumulates across calls.
func (c *Config) Process(args ...Arg) {
	for _, arg := range args {
		c.process(arg)
	}
}

func (c *Config) process(arg Arg) {
	if _, bad := c.forbidden[arg.Name]; bad {
		c.errs = append(c.errs, fmt.Sprintf("%s: argument %q not allowed in this context", c.owner, arg.Name))
		return
	}
	for _, other := range c.mutex[arg.Name] {
		c.forbidden[other] = struct{}{}
	}
	delete(c.required, arg.Name)
	c.processed[arg.Name] = struct{}{}

	known := false
	for _, s := range c.ints {
		if s.argName == arg.Name {
			known = true
			if s.slot < len(arg.Ints) {
				s.value = arg.Ints[s.slot]
			}
		}
	}
	for _, s := range c.doubles {
		if s.argName == arg.Name {
			known = true
			if s.slot < len(arg.Doubles) {
				s.value = arg.Doubles[s.slot]
			}
		}
	}
	for _, s := range c.strings {
		if s.argName == arg.Name {
			known = true
			if s.slot < len(arg.Strings) {
				if s.append && s.value != "" {
					s.value += "," + arg.Strings[s.slot]
				} else {
					s.value = arg.Strings[s.slot]
				}
			}
		}
	}
	for _, s := range c.objects {
		if s.argName == arg.Name {
			known = true
			if s.slot < len(arg.Objects) {
				s.value = arg.Objects[s.slot]
			}
		}
	}
	for _, s := range c.sets {
		if s.argName == arg.Name {
			known = true
			if s.slot < len(arg.Sets) {
				s.value = slices.Clone(arg.Sets[s.slot])
			}
		}
	}

	if !known && !c.AllowUndefined {
		if _, ruled := c.deps[arg.Name]; !ruled {
			c.errs = append(c.errs, fmt.Sprintf("%s: unrecognized argument %q", c.owner, arg.Name))
		}
	}
}

// HasProcessed reports whether an argument with the given name was seen.
func (c *Config) HasProcessed(argName string) bool {
	_, ok := c.processed[argName]
	return ok
}

// OK reports overall parsing success: no violations were recorded, every
// required argument was processed, and every dependency of a processed
// argument was satisfied.
func (c *Config) OK() bool {
	if len(c.errs) > 0 || len(c.required) > 0 {
		return false
	}
	for ref, needed := range c.deps {
		if c.HasProcessed(ref) && !c.HasProcessed(needed) {
			return false
		}
	}
	return true
}

// Errs returns the diagnostics recorded so far, including missing required
// arguments and unsatisfied dependencies.
func (c *Config) Errs() []string {
	out := slices.Clone(c.errs)
	if missing := c.MissingArgs(); missing != "" {
		out = append(out, fmt.Sprintf("%s: missing required arguments: %s", c.owner, missing))
	}
	for ref, needed := range c.deps {
		if c.HasProcessed(ref) && !c.HasProcessed(needed) {
			out = append(out, fmt.Sprintf("%s: argument %q requires %q to be given", c.owner, ref, needed))
		}
	}
	return out
}

// MissingArgs returns a comma-separated list of required arguments that
// were not processed, or the empty string if none are missing.
func (c *Config) MissingArgs() string {
	if len(c.required) == 0 {
		return ""
	}
	missing := make([]string, 0, len(c.required))
	for name := range c.required {
		missing = append(missing, name)
	}
	slices.Sort(missing)
	return strings.Join(missing, ", ")
}

// GetInt returns the value of an integer property, or its default.
func (c *Config) GetInt(name string) int {
	if s, ok := c.ints[name]; ok {
		return s.value
	}
	return 0
}

// GetDouble returns the value of a float property, or its default.
func (c *Config) GetDouble(name string) float64 {
	if s, ok := c.doubles[name]; ok {
		return s.value
	}
	return 0
}

// GetString returns the value of a string property, or its default.
func (c *Config) GetString(name string) string {
	if s, ok := c.strings[name]; ok {
		return s.value
	}
	return ""
}

// GetObject returns the value of an object property, or its default.
func (c *Config) GetObject(name string) any {
	if s, ok := c.objects[name]; ok {
		return s.value
	}
	return nil
}

// GetSet returns the value of a set property, or its default.
func (c *Config) GetSet(name string) []string {
	if s, ok := c.sets[name]; ok {
		return slices.Clone(s.value)
	}
	return nil
}
