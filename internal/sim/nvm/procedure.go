package nvm

import (
	"fmt"
	"strings"
)

// Procedure is a named block of commands. Procedures are created first and
// defined afterwards so that they can call themselves.
type Procedure struct {
	Name     string
	Params   []string
	Reporter bool

	code    []Command
	defined bool
}

// NewProcedure declares a command procedure.
func NewProcedure(name string, params ...string) *Procedure {
	return &Procedure{Name: strings.ToUpper(name), Params: upper(params)}
}

// NewReporter declares a reporter procedure; its body must end in Report.
func NewReporter(name string, params ...string) *Procedure {
	p := NewProcedure(name, params...)
	p.Reporter = true
	return p
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}

// Define assembles body into the procedure's code. A Call that is the last
// statement of a command procedure becomes a tail call that reuses the
// current frame.
func (p *Procedure) Define(body ...Instr) *Procedure {
	a := &assembler{}
	if n := len(body); n > 0 && !p.Reporter {
		if c, ok := body[n-1].(callInstr); ok {
			c.tail = true
			body = append(append([]Instr(nil), body[:n-1]...), c)
		}
	}
	a.emitAll(body)
	if p.Reporter {
		a.add(Command{Name: "END", Perform: func(c *Context) error {
			return fmt.Errorf("reached end of reporter procedure %s without REPORT", p.Name)
		}})
	} else {
		a.add(Command{Name: "RETURN", Perform: func(c *Context) error {
			c.returnFromProcedure()
			return nil
		}})
	}
	p.code = a.code
	p.defined = true
	return p
}

// Len is the number of assembled commands.
func (p *Procedure) Len() int { return len(p.code) }

func (p *Procedure) String() string {
	var b strings.Builder
	for i, cmd := range p.code {
		fmt.Fprintf(&b, "%s[%d] %s\n", p.Name, i, cmd.Name)
	}
	return b.String()
}

type assembler struct {
	code  []Command
	inAsk int
}

func (a *assembler) pc() int { return len(a.code) }

func (a *assembler) add(cmd Command) int {
	a.code = append(a.code, cmd)
	return len(a.code) - 1
}

// reserve adds a placeholder to be filled in once forward addresses are
// known.
func (a *assembler) reserve() int { return a.add(Command{}) }

func (a *assembler) set(at int, cmd Command) { a.code[at] = cmd }

func (a *assembler) emitAll(body []Instr) {
	for _, in := range body {
		in.emit(a)
	}
}

func gotoCmd(addr int) Command {
	return Command{Name: "GOTO", Perform: func(c *Context) error {
		c.Goto(addr)
		return nil
	}}
}
