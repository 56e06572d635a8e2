package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/npillmayer/iarray"
	"github.com/npillmayer/iarray/html"
)

var errUsage = errors.New("usage")

// session executes script lines against one array.
type session struct {
	a        *iarray.Array
	out      io.Writer
	pointers map[string]*string // pointer entries by name
	index    *color.Color
	entry    *color.Color
	failure  *color.Color
}

func newSession(out io.Writer, limit int64) (*session, error) {
	a, err := iarray.New(iarray.Config{MemoryLimit: limit})
	if err != nil {
		return nil, err
	}
	return &session{
		a:        a,
		out:      out,
		pointers: make(map[string]*string),
		index:    color.New(color.FgYellow),
		entry:    color.New(color.FgGreen),
		failure:  color.New(color.FgRed, color.Bold),
	}, nil
}

func (s *session) runFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.run(f)
}

// run executes all lines of r. Operation errors are reported and
// execution continues; malformed lines stop it.
func (s *session) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		err := s.exec(line)
		if errors.Is(err, errUsage) {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		if err != nil {
			s.failure.Fprintf(s.out, "line %d: %v\n", lineno, err)
		}
	}
	return scanner.Err()
}

func (s *session) exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if len(args) == 0 {
		return nil
	}
	p := parser{args: args[1:]}
	switch op := args[0]; op {
	case "store":
		index, e := p.uint(), s.entryArg(&p)
		if err := p.done(op); err != nil {
			return err
		}
		old, err := s.a.Store(index, e)
		s.report(index, old)
		return err
	case "store-order", "insert":
		index, order, e := p.uint(), uint(p.uint()), s.entryArg(&p)
		if err := p.done(op); err != nil {
			return err
		}
		if op == "insert" {
			return s.a.Insert(index, order, e)
		}
		old, err := s.a.StoreOrder(index, order, e)
		s.report(index, old)
		return err
	case "erase":
		index := p.uint()
		if err := p.done(op); err != nil {
			return err
		}
		s.report(index, s.a.Erase(index))
	case "cas":
		index, old, next := p.uint(), s.entryArg(&p), s.entryArg(&p)
		if err := p.done(op); err != nil {
			return err
		}
		curr, err := s.a.CompareAndSwap(index, old, next)
		s.report(index, curr)
		return err
	case "tag", "untag":
		index, t := p.uint(), p.tag()
		if err := p.done(op); err != nil {
			return err
		}
		if op == "tag" {
			s.a.SetTag(index, t)
		} else {
			s.a.ClearTag(index, t)
		}
	case "load":
		index := p.uint()
		if err := p.done(op); err != nil {
			return err
		}
		first, last, e := s.a.Span(index)
		s.reportSpan(first, last, e)
	case "find":
		from, last := p.uint(), p.uint()
		f := iarray.AnyEntry
		if len(p.args) > 0 {
			f = iarray.WithTag(p.tag())
		}
		if err := p.done(op); err != nil {
			return err
		}
		if index, e, ok := s.a.Find(from, last, f); ok {
			s.report(index, e)
		} else {
			fmt.Fprintln(s.out, "not found")
		}
	case "range":
		first, last := p.uint(), p.uint()
		if err := p.done(op); err != nil {
			return err
		}
		for index, e := range s.a.All(first, last) {
			s.report(index, e)
		}
	case "dump":
		return s.a.Dump(s.out)
	case "dot":
		return s.a.Dot(s.out)
	case "html":
		first, last := uint64(0), ^uint64(0)
		if len(p.args) > 0 {
			first, last = p.uint(), p.uint()
		}
		if err := p.done(op); err != nil {
			return err
		}
		if err := html.WriteTable(s.out, s.a, first, last); err != nil {
			return err
		}
		fmt.Fprintln(s.out)
	case "check":
		if err := s.a.Check(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "ok")
	case "stats":
		st := s.a.Stats()
		fmt.Fprintf(s.out, "nodes %d, reserved %d, chunks %d\n", st.Live, st.Reserved, st.Chunks)
	default:
		return fmt.Errorf("%w: unknown operation %q", errUsage, op)
	}
	return nil
}

func (s *session) report(index uint64, e iarray.Entry) {
	s.index.Fprintf(s.out, "%d", index)
	fmt.Fprint(s.out, ": ")
	s.entry.Fprintln(s.out, e.String())
}

func (s *session) reportSpan(first, last uint64, e iarray.Entry) {
	if first == last {
		s.report(first, e)
		return
	}
	s.index.Fprintf(s.out, "%d-%d", first, last)
	fmt.Fprint(s.out, ": ")
	s.entry.Fprintln(s.out, e.String())
}

// entryArg parses an entry argument: an integer, '-' for empty, or
// 'ptr:<name>' for a pointer entry. Equal names give equal pointers.
func (s *session) entryArg(p *parser) iarray.Entry {
	arg := p.next()
	switch {
	case arg == "-":
		return iarray.Empty
	case strings.HasPrefix(arg, "ptr:"):
		name := strings.TrimPrefix(arg, "ptr:")
		ptr, ok := s.pointers[name]
		if !ok {
			ptr = &name
			s.pointers[name] = ptr
		}
		return iarray.Pointer(ptr)
	}
	v, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		p.fail(err)
	}
	return iarray.Value(v)
}

// parser consumes operation arguments, remembering the first error.
type parser struct {
	args []string
	err  error
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) next() string {
	if len(p.args) == 0 {
		p.fail(errors.New("missing argument"))
		return "0"
	}
	arg := p.args[0]
	p.args = p.args[1:]
	return arg
}

func (p *parser) uint() uint64 {
	v, err := strconv.ParseUint(p.next(), 0, 64)
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *parser) tag() iarray.Tag {
	v := p.uint()
	if v >= uint64(iarray.MaxTags) {
		p.fail(fmt.Errorf("tag %d out of range", v))
		return iarray.Tag0
	}
	return iarray.Tag(v)
}

func (p *parser) done(op string) error {
	if p.err == nil && len(p.args) > 0 {
		p.fail(fmt.Errorf("%d extra arguments", len(p.args)))
	}
	if p.err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, op, p.err)
	}
	return nil
}
