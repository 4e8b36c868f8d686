package archway

import (
	"fmt"
	"strings"
)

// AddTerms parses the textual query grammar and appends the resulting
// terms to q, consuming "%e" placeholders from args in order:
//
//	term      := op? access? ref
//	op        := "+" (All, default) | "?" (Any) | "!" (None) | "~" (Opt)
//	access    := "&" (write) | "" (read)
//	ref       := entity | pair
//	entity    := identifier | "%e" (substituted from argument)
//	pair      := "(" ref "," ref ")"
//	terms     := term (";" term)*
//
// Opt has its own operator, "~", so that a bare "?" always reads as Any.
func (q *QueryBuilder) AddTerms(text string, args ...Entity) (*QueryBuilder, error) {
	p := &grammarParser{world: q.world, src: text}
	p.args = args
	for {
		p.skipSpace()
		if p.atEnd() {
			break
		}
		t, err := p.parseTerm()
		if err != nil {
			return q, err
		}
		q.terms = append(q.terms, t)
		p.skipSpace()
		if p.atEnd() {
			break
		}
		if p.peek() != ';' {
			return q, fmt.Errorf("%w: expected ';' at offset %d", ErrMalformedQueryText, p.pos)
		}
		p.pos++
	}
	return q, nil
}

type grammarParser struct {
	world  *World
	src    string
	pos    int
	args   []Entity
	argIdx int
}

func (p *grammarParser) atEnd() bool { return p.pos >= len(p.src) }
func (p *grammarParser) peek() byte  { return p.src[p.pos] }

func (p *grammarParser) skipSpace() {
	for !p.atEnd() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *grammarParser) parseTerm() (Term, error) {
	op := OpAll
	p.skipSpace()
	if !p.atEnd() {
		switch p.peek() {
		case '+':
			op, p.pos = OpAll, p.pos+1
		case '?':
			op, p.pos = OpAny, p.pos+1
		case '!':
			op, p.pos = OpNone, p.pos+1
		case '~':
			op, p.pos = OpOpt, p.pos+1
		}
	}
	p.skipSpace()
	access := AccessRead
	if !p.atEnd() && p.peek() == '&' {
		access, p.pos = AccessWrite, p.pos+1
	}
	p.skipSpace()
	id, err := p.parseRef()
	if err != nil {
		return Term{}, err
	}
	return Term{Op: op, Access: access, ID: id, Source: IDBad}, nil
}

func (p *grammarParser) parseRef() (Entity, error) {
	p.skipSpace()
	if p.atEnd() {
		return IDBad, fmt.Errorf("%w: unexpected end of input", ErrMalformedQueryText)
	}
	if p.peek() == '(' {
		p.pos++
		first, err := p.parseRef()
		if err != nil {
			return IDBad, err
		}
		p.skipSpace()
		if p.atEnd() || p.peek() != ',' {
			return IDBad, fmt.Errorf("%w: expected ',' inside pair", ErrMalformedQueryText)
		}
		p.pos++
		second, err := p.parseRef()
		if err != nil {
			return IDBad, err
		}
		p.skipSpace()
		if p.atEnd() || p.peek() != ')' {
			return IDBad, fmt.Errorf("%w: expected ')' closing pair", ErrMalformedQueryText)
		}
		p.pos++
		return Pair(first, second), nil
	}
	if p.peek() == '*' {
		p.pos++
		return All, nil
	}
	if strings.HasPrefix(p.src[p.pos:], "%e") {
		p.pos += 2
		if p.argIdx >= len(p.args) {
			return IDBad, fmt.Errorf("%w: not enough %%e substitution arguments", ErrMalformedQueryText)
		}
		e := p.args[p.argIdx]
		p.argIdx++
		return e, nil
	}
	start := p.pos
	for !p.atEnd() && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return IDBad, fmt.Errorf("%w: expected identifier at offset %d", ErrMalformedQueryText, p.pos)
	}
	name := p.src[start:p.pos]
	if name == "All" {
		return All, nil
	}
	if e, ok := p.world.GetByName(name); ok {
		return e, nil
	}
	return IDBad, fmt.Errorf("%w: unknown identifier %q", ErrUnknownQueryID, name)
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
