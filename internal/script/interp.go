package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/builtin"
	"github.com/midbel/remind/internal/buffer"
	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/eval"
	"github.com/midbel/remind/internal/ifstack"
	"github.com/midbel/remind/internal/logging"
	"github.com/midbel/remind/internal/omit"
	"github.com/midbel/remind/internal/symtab"
	"github.com/midbel/remind/internal/trigger"
	"github.com/midbel/remind/internal/tzadjust"
	"github.com/midbel/remind/internal/value"
)

// Occurrence is one resolved, substituted reminder ready for output,
// extending buffer.Entry with the fields the plain/simple-cal/JSON
// emitters need that the sort buffer itself doesn't care about.
type Occurrence struct {
	buffer.Entry
	Tags     []string
	Info     map[string]string
	Type     trigger.RemType
	Duration int // minutes, NoDuration if unset
	Once     bool

	LineStart              int // first physical line, before continuation-joining
	DurationDays           int
	PassthruPayload        string
	TDelta                 int
	TRep                   int
	IfDepth                int
	NonConst               bool
	ColorR, ColorG, ColorB int // trigger.NoColor if unset
}

// Interpreter holds the shared tables one script run wires together:
// arena, symbol tables, OMIT calendar, trigger resolver and the output
// buffer, mirroring the "process-local singleton" model.
type Interpreter struct {
	Arena    *ast.Arena
	Globals  *symtab.Globals
	Sys      *symtab.SysTable
	Funcs    *symtab.Funcs
	Builtins *builtin.Table
	Omit     *omit.Calendar
	Resolver *trigger.Resolver
	Buffer   *buffer.Buffer
	IfStack  *ifstack.Stack
	Clock    *tzadjust.Clock
	TZ       *tzadjust.Adjuster
	Eval     *eval.Eval

	StringCap      int
	CalMode        bool
	IgnoreOnce     bool
	MaxOccurrences int

	// ExprTimeout is the wall-clock budget for all expression
	// evaluation one directive can trigger; zero disables it.
	ExprTimeout time.Duration

	OnceDate int32 // trigger.NoDate if no ONCE file loaded

	Log zerolog.Logger

	candidateTrig value.Value
	candidateOK   bool

	warnings []error
}

// New builds an interpreter with today's date/time fixed at (today,
// todayMinutes).
func New(today, todayMinutes int32, hostZone *time.Location, log zerolog.Logger) *Interpreter {
	arena := ast.NewArena()
	g := symtab.NewGlobals()
	sys := symtab.NewSysTable()
	funcs := symtab.NewFuncs()
	clock := &tzadjust.Clock{Today: today, TodayMinutes: todayMinutes}

	it := &Interpreter{
		Arena:     arena,
		Globals:   g,
		Sys:       sys,
		Funcs:     funcs,
		Omit:      omit.New(),
		IfStack:   ifstack.New(),
		Clock:     clock,
		TZ:        tzadjust.New(clock, hostZone),
		StringCap: value.DefaultStringCap,
		OnceDate:  trigger.NoDate,
		Log:       log,
	}
	it.Builtins = builtin.Standard(it.trigdateHook)
	it.Buffer = buffer.New(buffer.DefaultOptions)
	it.Resolver = trigger.NewResolver(it.Omit)
	it.Resolver.HostZone = hostZone
	it.Resolver.OmitFuncFor = it.omitFuncFor
	it.Eval = eval.New(arena, g, sys, funcs)
	it.Eval.StringCap = it.StringCap
	it.registerSysVars()
	it.registerDefined()
	return it
}

// registerDefined overrides builtin.Standard's placeholder "defined"
// descriptor with a real new-style implementation bound to this
// interpreter's Globals: it must inspect the raw argument node rather
// than its evaluated value, since evaluating an undefined Variable
// node itself raises NoSuchVar before defined() ever gets a chance to
// answer "no".
func (it *Interpreter) registerDefined() {
	it.Builtins.Register(&ast.Builtin{
		Name: "defined", MinArgs: 1, MaxArgs: 1, NewStyle: true, NewFunc: it.builtinDefined,
	})
}

func (it *Interpreter) builtinDefined(e ast.Evaluator, node ast.Ref, locals []value.Value) (value.Value, bool, error) {
	kids := it.Arena.Children(node)
	if len(kids) != 1 {
		return value.NewErr(), false, errs.New(errs.TooFewArgs, "defined expects 1 argument")
	}
	n := it.Arena.Node(kids[0])
	if n.Tag == ast.Variable || n.Tag == ast.ShortVar {
		if _, ok := it.Globals.Lookup(n.Name); ok {
			return value.NewInt(1), false, nil
		}
		return value.NewInt(0), false, nil
	}
	if _, _, err := e.EvalChild(kids[0], locals); err != nil {
		return value.NewInt(0), false, nil
	}
	return value.NewInt(1), false, nil
}

func (it *Interpreter) trigdateHook() (value.Value, bool) {
	return it.candidateTrig, it.candidateOK
}

func (it *Interpreter) registerSysVars() {
	today := func() value.Value { return value.NewDate(it.Clock.Today) }
	now := func() value.Value { return value.NewTime(int(it.Clock.TodayMinutes)) }
	// the "$" sigil is syntax consumed by the parser; table names are bare
	it.Sys.Register(&symtab.SysVar{Name: "t", Kind: symtab.SysAccessor, Get: today})
	it.Sys.Register(&symtab.SysVar{Name: "today", Kind: symtab.SysAccessor, Get: today})
	it.Sys.Register(&symtab.SysVar{Name: "now", Kind: symtab.SysAccessor, Get: now})
	it.Sys.Register(&symtab.SysVar{Name: "tmin", Kind: symtab.SysAccessor, Get: now})
}

// Warnings returns the non-fatal diagnostics accumulated while Run
// walked the script: IF blocks left open at end of file, a SATISFY
// expression that never reads the candidate date, and errors of kind
// Expired. Any other directive error (an unmatched ELSE or ENDIF, a
// parse error, a failed INCLUDE, ...) is not recorded here; RunReader
// stops at it and returns it.
func (it *Interpreter) Warnings() []error { return it.warnings }

func (it *Interpreter) warnf(file string, line int, kind errs.Kind, format string, args ...any) {
	e := errAt(file, line, kind, format, args...)
	it.warnings = append(it.warnings, e)
	logger := logging.WithSource(it.Log, file, line)
	logger.Warn().Str("kind", kind.String()).Msg(e.Error())
}

// errAt builds a positioned *errs.Error in one call, since errs.At
// attaches position to an already-built Error rather than taking a
// format string itself.
func errAt(file string, line int, kind errs.Kind, format string, args ...any) *errs.Error {
	return errs.At(errs.New(kind, format, args...), file, line)
}

// Run reads path line by line, dispatching every directive, and
// returns the occurrences due today in buffer order.
func (it *Interpreter) Run(path string) ([]Occurrence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := it.RunReader(f, path); err != nil {
		return nil, err
	}
	return it.Occurrences(), nil
}

// Occurrences returns every queued occurrence in the buffer's sort
// order, unwrapped back from buffer.Entry.Payload.
func (it *Interpreter) Occurrences() []Occurrence {
	sorted := it.Buffer.Sorted()
	out := make([]Occurrence, 0, len(sorted))
	for _, e := range sorted {
		if occ, ok := e.Payload.(*Occurrence); ok {
			occ.Entry = e
			out = append(out, *occ)
		}
	}
	return out
}

// RunReader walks every line of r (attributed to file for diagnostics),
// dispatching directives into the shared tables/buffer.
func (it *Interpreter) RunReader(r io.Reader, file string) error {
	mark := it.IfStack.PushFile()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		startLineNo := lineNo
		raw := scanner.Text()
		for strings.HasSuffix(raw, "\\") && scanner.Scan() {
			lineNo++
			raw = raw[:len(raw)-1] + " " + scanner.Text()
		}
		line := classify(raw, file, lineNo)
		line.LineStart = startLineNo
		if err := it.dispatch(line); err != nil {
			if kind := errs.KindOf(err); errs.Silent(kind) {
				it.warnf(file, lineNo, kind, "%v", err)
				continue
			}
			return fmt.Errorf("%s:%d: %w", file, lineNo, err)
		}
	}
	if unmatched := it.IfStack.PopFile(mark); unmatched > 0 {
		it.warnf(file, lineNo, errs.Generic, "%d unmatched IF left open at end of file", unmatched)
	}
	return scanner.Err()
}

func (it *Interpreter) dispatch(line Line) error {
	it.Eval.ArmTimeout(it.ExprTimeout)
	if it.IfStack.ShouldIgnoreLine() {
		switch line.Kind {
		case KindIf, KindElse, KindEndif:
			// control directives themselves must still be processed
			// even inside a false branch, so nesting stays balanced.
		default:
			return nil
		}
	}
	switch line.Kind {
	case KindBlank, KindComment, KindBanner:
		return nil
	case KindRem:
		return it.handleRem(line)
	case KindOmit:
		return it.handleOmit(line)
	case KindPushOmit:
		it.Omit.Push(line.File, line.LineNo)
		return nil
	case KindPopOmit:
		if _, _, ok := it.Omit.Pop(); !ok {
			return errAt(line.File, line.LineNo, errs.Generic, "POP-OMIT-CONTEXT without matching PUSH-OMIT-CONTEXT")
		}
		return nil
	case KindSet:
		return it.handleSet(line)
	case KindUnset:
		return it.handleUnset(line)
	case KindPreserve:
		return it.handlePreserve(line)
	case KindFset:
		return it.handleFset(line)
	case KindIf:
		return it.handleIf(line)
	case KindElse:
		if err := it.IfStack.EncounterElse(); err != nil {
			return errAt(line.File, line.LineNo, errs.Generic, "%v", err)
		}
		return nil
	case KindEndif:
		if err := it.IfStack.EncounterEndif(); err != nil {
			return errAt(line.File, line.LineNo, errs.Generic, "%v", err)
		}
		return nil
	case KindReturn:
		it.IfStack.Return()
		return nil
	case KindInclude:
		return it.handleInclude(line)
	default:
		return errAt(line.File, line.LineNo, errs.Parse, "unrecognized directive: %s", strings.Fields(line.Raw))
	}
}

func (it *Interpreter) handleInclude(line Line) error {
	if len(line.Fields) == 0 {
		return errAt(line.File, line.LineNo, errs.Parse, "INCLUDE requires a path")
	}
	path := strings.Trim(line.Fields[0], "'\"")
	f, err := os.Open(path)
	if err != nil {
		return errAt(line.File, line.LineNo, errs.Generic, "INCLUDE %s: %v", path, err)
	}
	defer f.Close()
	return it.RunReader(f, path)
}
