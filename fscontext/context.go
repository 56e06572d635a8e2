/*
Package fscontext implements a mount configuration context: a small state
machine collecting the source and the options for creating a filesystem
instance, driven by text commands.

Commands are written one per line:

	s /dev/sda1              set the source
	o noatime                option without value
	o cell=grand.central.org option with value
	x create                 create the filesystem instance

Options are kept in an indexed array in the order they were given.
Standard options which only toggle superblock flags are tagged there, and
are also reflected in Context.Flags.
*/
package fscontext

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/npillmayer/iarray"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'iarray.fscontext'.
func tracer() tracing.Trace {
	return tracing.Select("iarray.fscontext")
}

var (
	// ErrInvalid signals a malformed command or a rejected parameter.
	ErrInvalid = errors.New("fscontext: invalid argument")
	// ErrBusy signals a command which is not allowed in the current phase.
	ErrBusy = errors.New("fscontext: busy")
	// ErrNotSupported signals an unknown 'x' command.
	ErrNotSupported = errors.New("fscontext: operation not supported")
)

// maxLine bounds the length of a command line.
const maxLine = 4095

// Phase is the lifecycle position of a Context.
type Phase uint8

// Phases of a context.
const (
	CreateParams   Phase = iota // loading parameters for a new instance
	Creating                    // creating the instance
	AwaitingMount               // instance created, ready for mounting
	AwaitingReconf              // waiting to load reconfiguration parameters
	ReconfParams                // loading parameters for reconfiguration
	Failed                      // creation or initialization failed
)

func (p Phase) String() string {
	switch p {
	case CreateParams:
		return "create-params"
	case Creating:
		return "creating"
	case AwaitingMount:
		return "awaiting-mount"
	case AwaitingReconf:
		return "awaiting-reconf"
	case ReconfParams:
		return "reconf-params"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Option is a single mount option.
type Option struct {
	Key      string
	Value    string
	HasValue bool
}

func (o Option) String() string {
	if o.HasValue {
		return o.Key + "=" + o.Value
	}
	return o.Key
}

// Params is a snapshot of the parameters collected by a context.
type Params struct {
	Source  string
	Flags   Flags
	Options []Option
}

// FSType describes the filesystem a context configures.
type FSType struct {
	Name string
	// ParseOption may reject options not handled as superblock flags.
	// If nil, all options are accepted.
	ParseOption func(Option) error
	// InitReconf prepares a reconfiguration context before its first
	// parameter is loaded. May be nil.
	InitReconf func() error
	// GetTree creates the filesystem instance. It is called with the
	// context locked and must not call back into the context.
	GetTree func(Params) error
}

// Context collects mount parameters. All methods are safe for concurrent
// use.
type Context struct {
	mu     sync.Mutex
	fstype FSType
	phase  Phase
	source string
	flags  Flags
	params *iarray.Array // Option pointers by sequence number
	seq    uint64
}

// Open creates a context for a new instance of a filesystem.
func Open(fstype FSType) (*Context, error) {
	return newContext(fstype, CreateParams)
}

// Pick creates a context for reconfiguring an existing instance. It is
// initialized on the first command written to it.
func Pick(fstype FSType) (*Context, error) {
	return newContext(fstype, AwaitingReconf)
}

func newContext(fstype FSType, phase Phase) (*Context, error) {
	if fstype.GetTree == nil {
		return nil, fmt.Errorf("%w: filesystem type %q without GetTree", ErrInvalid, fstype.Name)
	}
	params, err := iarray.New(iarray.Config{})
	if err != nil {
		return nil, err
	}
	tracer().Debugf("fscontext: new context for %q in phase %s", fstype.Name, phase)
	return &Context{fstype: fstype, phase: phase, params: params}, nil
}

// Phase returns the current phase.
func (fc *Context) Phase() Phase {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.phase
}

// Write executes a single command line.
func (fc *Context) Write(line string) error {
	line = strings.TrimSuffix(line, "\n")
	if len(line) < 3 || len(line) > maxLine {
		return fmt.Errorf("%w: command of length %d", ErrInvalid, len(line))
	}
	cmd, data := line[0], line[2:]
	if line[1] != ' ' || (cmd != 's' && cmd != 'o' && cmd != 'x') {
		return fmt.Errorf("%w: bad command %q", ErrInvalid, line)
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.phase == AwaitingReconf {
		if fc.fstype.InitReconf != nil {
			if err := fc.fstype.InitReconf(); err != nil {
				fc.phase = Failed
				return err
			}
		}
		fc.phase = ReconfParams
	}
	switch cmd {
	case 's':
		if !fc.loading() {
			return fc.wrongPhase(line)
		}
		return fc.setSource(data)
	case 'o':
		if !fc.loading() {
			return fc.wrongPhase(line)
		}
		return fc.parseOption(data)
	}
	if data != "create" {
		return fmt.Errorf("%w: %q", ErrNotSupported, data)
	}
	if fc.phase != CreateParams {
		return fc.wrongPhase(line)
	}
	return fc.create()
}

// Create is short for writing "x create".
func (fc *Context) Create() error {
	return fc.Write("x create")
}

func (fc *Context) loading() bool {
	return fc.phase == CreateParams || fc.phase == ReconfParams
}

func (fc *Context) wrongPhase(line string) error {
	return fmt.Errorf("%w: %q in phase %s", ErrBusy, line, fc.phase)
}

func (fc *Context) setSource(source string) error {
	if fc.source != "" {
		return fmt.Errorf("%w: multiple sources not supported", ErrInvalid)
	}
	if source == "" {
		return fmt.Errorf("%w: empty source", ErrInvalid)
	}
	fc.source = source
	return nil
}

func (fc *Context) parseOption(data string) error {
	opt := Option{Key: data}
	if k, v, found := strings.Cut(data, "="); found {
		opt = Option{Key: k, Value: v, HasValue: true}
	}
	if opt.Key == "" {
		return fmt.Errorf("%w: option without key", ErrInvalid)
	}
	flag, isFlag, err := parseFlagOption(opt)
	if err != nil {
		return err
	}
	if !isFlag && fc.fstype.ParseOption != nil {
		if err := fc.fstype.ParseOption(opt); err != nil {
			return fmt.Errorf("%w: option %s: %v", ErrInvalid, opt, err)
		}
	}
	seq := fc.seq
	if err := fc.params.Insert(seq, 0, iarray.Pointer(&opt)); err != nil {
		return err
	}
	fc.seq++
	if isFlag {
		fc.flags = flag.apply(fc.flags)
		fc.params.SetTag(seq, flagTag)
	}
	tracer().Debugf("fscontext: option #%d %s", seq, opt)
	return nil
}

func (fc *Context) create() error {
	fc.phase = Creating
	if err := fc.fstype.GetTree(fc.snapshot()); err != nil {
		fc.phase = Failed
		tracer().Infof("fscontext: creating %q failed: %v", fc.fstype.Name, err)
		return err
	}
	fc.phase = AwaitingMount
	return nil
}

func (fc *Context) snapshot() Params {
	p := Params{Source: fc.source, Flags: fc.flags}
	for _, e := range fc.params.All(0, math.MaxUint64) {
		p.Options = append(p.Options, *e.Ref().(*Option))
	}
	return p
}

// Params returns the parameters collected so far.
func (fc *Context) Params() Params {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.snapshot()
}

// FlagOptions returns the options which were interpreted as superblock
// flags, in the order they were given.
func (fc *Context) FlagOptions() []Option {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	var opts []Option
	for _, e := range fc.params.Tagged(flagTag, 0, math.MaxUint64) {
		opts = append(opts, *e.Ref().(*Option))
	}
	return opts
}

// Decode decodes the options into out, which must be a pointer to a
// struct or a map. Struct fields are matched by their `mount` tag or their
// name; values are converted as needed. Options without a value decode
// as true.
func (fc *Context) Decode(out any) error {
	params := fc.Params()
	m := make(map[string]any, len(params.Options)+1)
	for _, opt := range params.Options {
		if opt.HasValue {
			m[opt.Key] = opt.Value
		} else {
			m[opt.Key] = true
		}
	}
	if params.Source != "" {
		m["source"] = params.Source
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mount",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Close releases the parameters. The context must not be used afterwards.
func (fc *Context) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.params.Destroy()
	fc.source = ""
	fc.seq = 0
}
