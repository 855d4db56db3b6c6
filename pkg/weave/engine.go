package weave

import (
	"fmt"

	"github.com/apex/log"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Strategy selects the ClassWeaver implementation.
type Strategy string

const (
	StrategyInPlace  Strategy = "in-place"
	StrategySubclass Strategy = "subclass"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyInPlace, StrategySubclass:
		return Strategy(s), nil
	case "":
		return StrategyInPlace, nil
	}
	return "", errors.Errorf("unknown weaving strategy %q (want %q or %q)", s, StrategyInPlace, StrategySubclass)
}

// Options configure an Engine.
type Options struct {
	Config   Config
	Strategy Strategy
	// Classes are glob patterns over internal class names; a class matching
	// one is woven even if it does not implement the proxy interface.
	Classes []string
	// ExcludeMethods are glob patterns over method names never intercepted.
	ExcludeMethods []string
	Logger         log.Interface
}

// Engine decides which classes and methods to weave and runs a strategy over
// them. It is safe for concurrent use on distinct classes.
type Engine struct {
	cfg      Config
	strategy Strategy
	classes  []glob.Glob
	exclude  []glob.Glob
	log      log.Interface
}

// Generated is a class produced by weaving, such as a proxy subclass.
type Generated struct {
	Name  string
	Bytes []byte
}

// Result is the outcome of weaving one class.
type Result struct {
	Class string
	Woven bool
	// Bytes is the class as it should be written out.
	Bytes     []byte
	Generated []Generated
	// Methods lists the signatures of the intercepted methods.
	Methods []string
	// Skipped lists selected methods left as they were, such as the
	// handler accessors.
	Skipped []string
}

// New returns an engine for opts.
func New(opts Options) (*Engine, error) {
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      opts.Config.withDefaults(),
		strategy: strategy,
		log:      opts.Logger,
	}
	if e.log == nil {
		e.log = log.Log
	}
	for _, p := range opts.Classes {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid class pattern %q", p)
		}
		e.classes = append(e.classes, g)
	}
	for _, p := range opts.ExcludeMethods {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid method pattern %q", p)
		}
		e.exclude = append(e.exclude, g)
	}
	return e, nil
}

// Config returns the runtime names the engine weaves against.
func (e *Engine) Config() Config { return e.cfg }

// Logger returns the logger the engine reports to.
func (e *Engine) Logger() log.Interface { return e.log }

// IsCandidate reports whether t should be woven.
func (e *Engine) IsCandidate(t *typedef.Type) bool {
	if t.IsInterface() || t.AccessFlags&(classfile.AccAnnotation|classfile.AccEnum) != 0 {
		return false
	}
	if t.Implements(e.cfg.ProxyInterface) {
		return true
	}
	for _, g := range e.classes {
		if g.Match(t.Name) {
			return true
		}
	}
	return false
}

// SelectMethods returns the methods of t that are intercepted.
func (e *Engine) SelectMethods(t *typedef.Type) []*typedef.Method {
	var selected []*typedef.Method
	for _, m := range t.Methods {
		if m.IsStatic() || m.IsPrivate() || m.IsConstructor() || m.Name == typedef.StaticInitializerName {
			continue
		}
		if m.IsSynthetic() || m.AccessFlags&(classfile.AccBridge|classfile.AccNative) != 0 {
			continue
		}
		if e.strategy == StrategySubclass && m.IsFinal() {
			continue
		}
		if e.excluded(m.Name) {
			continue
		}
		selected = append(selected, m)
	}
	return selected
}

func (e *Engine) excluded(name string) bool {
	for _, g := range e.exclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// NewClassWeaver returns the configured strategy for t.
func (e *Engine) NewClassWeaver(t *typedef.Type) (ClassWeaver, error) {
	l := e.log.WithField("class", t.Name)
	switch e.strategy {
	case StrategySubclass:
		return NewSubclassWeaver(e.cfg, t, l)
	default:
		return NewInPlaceClassWeaver(e.cfg, t, l)
	}
}

// WeaveType weaves t if it is a candidate. Methods are transplanted and
// rewritten one by one, then the class is finished; any error aborts the
// whole class.
func (e *Engine) WeaveType(t *typedef.Type) (*Result, error) {
	res := &Result{Class: t.Name}
	if !e.IsCandidate(t) {
		return res, nil
	}
	if Woven(t) {
		e.log.WithField("class", t.Name).Info("already woven, skipping")
		return res, nil
	}

	cw, err := e.NewClassWeaver(t)
	if err != nil {
		return nil, errors.Wrapf(err, "weaving %s", t.Name)
	}
	for _, m := range e.SelectMethods(t) {
		mw, err := cw.MethodWeaver(m)
		if err != nil {
			return nil, errors.Wrapf(err, "weaving %s", t.Name)
		}
		if err := mw.Weave(); err != nil {
			return nil, errors.Wrapf(err, "weaving %s", m)
		}
		if mw.Woven {
			res.Methods = append(res.Methods, mw.Signature)
		} else {
			res.Skipped = append(res.Skipped, mw.Signature)
		}
	}
	if err := cw.Finish(); err != nil {
		return nil, errors.Wrapf(err, "finishing %s", t.Name)
	}
	res.Woven = true

	if proxy := cw.ProxyType(); proxy != t {
		data, err := proxy.Bytes()
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s", proxy.Name)
		}
		res.Generated = append(res.Generated, Generated{Name: proxy.Name, Bytes: data})
	}

	e.log.WithFields(log.Fields{
		"class":    t.Name,
		"strategy": e.strategy,
		"methods":  len(res.Methods),
	}).Debug("class woven")
	return res, nil
}

// WeaveClass parses, weaves and re-encodes one class file. Classes that are
// not woven are returned byte for byte.
func (e *Engine) WeaveClass(data []byte) (*Result, error) {
	t, err := typedef.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing class")
	}
	res, err := e.WeaveType(t)
	if err != nil {
		return nil, err
	}
	if !res.Woven || e.strategy == StrategySubclass {
		res.Bytes = data
		return res, nil
	}
	if res.Bytes, err = t.Bytes(); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", t.Name)
	}
	return res, nil
}

func (r *Result) String() string {
	if !r.Woven {
		return r.Class + ": unchanged"
	}
	return fmt.Sprintf("%s: %d methods woven, %d generated classes", r.Class, len(r.Methods), len(r.Generated))
}
