package astdfl

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseFile parses a complete DFL source file (spec.md §6): the
// attacktree/faulttree/objectgraph/formulas sections, in any order, each
// optional.
func ParseFile(src string) (*ParsedFile, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	return p.parseFile()
}

// ParseExpr parses a single standalone boolean-formula expression, used for
// node conditions (`cond=(...)`) where no query wrapper is present.
func ParseExpr(src string) (Expr, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur().text)
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func newParser(src string) (*parser, error) {
	lx := newLexer(src)
	var toks []token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}
	return &parser{toks: toks}, nil
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("astdfl: line %d: %s", p.cur().line, fmt.Sprintf(format, args...))
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, p.errorf("expected %s, got %q", what, p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) identLower() (string, bool) {
	if p.cur().kind != tokIdent {
		return "", false
	}
	return strings.ToLower(p.cur().text), true
}

// --- file-level sections --------------------------------------------------

func (p *parser) parseFile() (*ParsedFile, error) {
	out := &ParsedFile{}
	for p.cur().kind != tokEOF {
		kw, ok := p.identLower()
		if !ok {
			return nil, p.errorf("expected section keyword, got %q", p.cur().text)
		}
		switch kw {
		case "attacktree":
			p.advance()
			stmts, err := p.parseTreeSection()
			if err != nil {
				return nil, err
			}
			out.AttackStmts = stmts
		case "faulttree":
			p.advance()
			stmts, err := p.parseTreeSection()
			if err != nil {
				return nil, err
			}
			out.FaultStmts = stmts
		case "objectgraph":
			p.advance()
			stmts, err := p.parseObjectSection()
			if err != nil {
				return nil, err
			}
			out.ObjectStmts = stmts
		case "formulas":
			p.advance()
			qs, err := p.parseFormulasSection()
			if err != nil {
				return nil, err
			}
			out.FormulaStmts = qs
		default:
			return nil, p.errorf("unknown section %q", kw)
		}
	}
	return out, nil
}

func (p *parser) parseTreeSection() ([]TreeStmt, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var stmts []TreeStmt
	for p.cur().kind != tokRBrace {
		st, err := p.parseTreeStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	p.advance() // }
	return stmts, nil
}

// parseTreeStmt parses one of:
//
//	toplevel X;
//	N and A B C;
//	N or A B C;
//	N prob=<r> impact=<r> objects=[...] cond=(<expr>);
func (p *parser) parseTreeStmt() (TreeStmt, error) {
	kw, _ := p.identLower()
	if kw == "toplevel" {
		p.advance()
		name, err := p.expect(tokIdent, "node name")
		if err != nil {
			return TreeStmt{}, err
		}
		if _, err := p.expect(tokSemicolon, "';'"); err != nil {
			return TreeStmt{}, err
		}
		return TreeStmt{Name: name.text, Toplevel: true}, nil
	}

	nameTok, err := p.expect(tokIdent, "node name")
	if err != nil {
		return TreeStmt{}, err
	}
	st := TreeStmt{Name: nameTok.text}

	next, _ := p.identLower()
	switch next {
	case "and", "or":
		p.advance()
		if next == "and" {
			st.Gate = GateAnd
		} else {
			st.Gate = GateOr
		}
		for p.cur().kind == tokIdent {
			st.Children = append(st.Children, p.advance().text)
		}
		if _, err := p.expect(tokSemicolon, "';'"); err != nil {
			return TreeStmt{}, err
		}
		return st, nil
	default:
		st.HasAttrs = true
		for {
			attr, ok := p.identLower()
			if !ok {
				break
			}
			p.advance()
			if _, err := p.expect(tokEquals, "'='"); err != nil {
				return TreeStmt{}, err
			}
			switch attr {
			case "prob":
				r, err := p.parseRatToken()
				if err != nil {
					return TreeStmt{}, err
				}
				st.Prob = r
			case "impact":
				r, err := p.parseRatToken()
				if err != nil {
					return TreeStmt{}, err
				}
				st.Impact = r
			case "objects":
				names, err := p.parseIdentList()
				if err != nil {
					return TreeStmt{}, err
				}
				st.Objects = names
			case "cond":
				if _, err := p.expect(tokLParen, "'('"); err != nil {
					return TreeStmt{}, err
				}
				e, err := p.parseExpr()
				if err != nil {
					return TreeStmt{}, err
				}
				if _, err := p.expect(tokRParen, "')'"); err != nil {
					return TreeStmt{}, err
				}
				st.Cond = e
			default:
				return TreeStmt{}, p.errorf("unknown node attribute %q", attr)
			}
			if p.cur().kind == tokSemicolon {
				break
			}
		}
		if _, err := p.expect(tokSemicolon, "';'"); err != nil {
			return TreeStmt{}, err
		}
		return st, nil
	}
}

func (p *parser) parseObjectSection() ([]ObjectStmt, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var stmts []ObjectStmt
	for p.cur().kind != tokRBrace {
		st, err := p.parseObjectStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	p.advance()
	return stmts, nil
}

// parseObjectStmt parses:
//
//	O has A B;
//	O properties=[p1, p2];
func (p *parser) parseObjectStmt() (ObjectStmt, error) {
	nameTok, err := p.expect(tokIdent, "object name")
	if err != nil {
		return ObjectStmt{}, err
	}
	st := ObjectStmt{Name: nameTok.text}

	kw, _ := p.identLower()
	switch kw {
	case "has":
		p.advance()
		for p.cur().kind == tokIdent {
			st.HasEdges = append(st.HasEdges, p.advance().text)
		}
	case "properties":
		p.advance()
		if _, err := p.expect(tokEquals, "'='"); err != nil {
			return ObjectStmt{}, err
		}
		names, err := p.parseIdentList()
		if err != nil {
			return ObjectStmt{}, err
		}
		st.HasProps = true
		st.Properties = names
	default:
		return ObjectStmt{}, p.errorf("expected 'has' or 'properties', got %q", p.cur().text)
	}

	if _, err := p.expect(tokSemicolon, "';'"); err != nil {
		return ObjectStmt{}, err
	}
	return st, nil
}

func (p *parser) parseFormulasSection() ([]Query, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var qs []Query
	for p.cur().kind != tokRBrace {
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
		if _, err := p.expect(tokSemicolon, "';'"); err != nil {
			return nil, err
		}
	}
	p.advance()
	return qs, nil
}

// --- queries ---------------------------------------------------------------

var layer3Keywords = map[string]Layer3Kind{
	"mostriskya":   MostRiskyA,
	"mostriskyf":   MostRiskyF,
	"optimalconf":  OptimalConf,
	"maxtotalrisk": MaxTotalRisk,
	"mintotalrisk": MinTotalRisk,
}

func (p *parser) parseQuery() (Query, error) {
	if kw, ok := p.identLower(); ok {
		if kind, isL3 := layer3Keywords[kw]; isL3 {
			p.advance()
			if _, err := p.expect(tokLParen, "'('"); err != nil {
				return nil, err
			}
			obj, err := p.expect(tokIdent, "object name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			var ev []BoolMapping
			if p.cur().kind == tokLBracket {
				var err error
				ev, _, err = p.parseEvidenceBracket()
				if err != nil {
					return nil, err
				}
			}
			return Layer3Query{Kind: kind, Object: obj.text, Evidence: ev}, nil
		}
	}

	cfg := Configuration{}
	if p.cur().kind == tokLBrace {
		c, err := p.parseConfig()
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if containsProbFormula(e) {
		return Layer2Query{Config: cfg, Formula: e}, nil
	}
	return Layer1Query{Config: cfg, Formula: e}, nil
}

func (p *parser) parseConfig() (Configuration, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	cfg := Configuration{}
	for p.cur().kind != tokRBrace {
		name, err := p.expect(tokIdent, "property name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseBoolLiteral()
		if err != nil {
			return nil, err
		}
		cfg[name.text] = val
		if p.cur().kind == tokComma {
			p.advance()
		}
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func containsProbFormula(e Expr) bool {
	switch n := e.(type) {
	case ProbFormula:
		return true
	case Not:
		return containsProbFormula(n.X)
	case And:
		return containsProbFormula(n.L) || containsProbFormula(n.R)
	case Or:
		return containsProbFormula(n.L) || containsProbFormula(n.R)
	case Implies:
		return containsProbFormula(n.L) || containsProbFormula(n.R)
	case Equiv:
		return containsProbFormula(n.L) || containsProbFormula(n.R)
	case Nequiv:
		return containsProbFormula(n.L) || containsProbFormula(n.R)
	case WithBoolEvidence:
		return containsProbFormula(n.Body)
	case WithProbEvidence:
		return true
	case MRS:
		return containsProbFormula(n.Body)
	default:
		return false
	}
}

// --- expression grammar ------------------------------------------------
//
// parseExpr := equiv
// equiv     := implies (('=='|'!=') implies)*
// implies   := or ('=>' implies)?            (right-assoc)
// or        := and ('||' and)*
// and       := unary ('&&' unary)*
// unary     := '!' unary | postfix
// postfix   := primary ('[' evidence ']')*
// primary   := 'mrs' '(' expr ')'
//            | 'p' '(' expr ')' relop number
//            | '(' expr ')'
//            | ident

func (p *parser) parseExpr() (Expr, error) {
	return p.parseEquiv()
}

func (p *parser) parseEquiv() (Expr, error) {
	l, err := p.parseImplies()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokEqEq || p.cur().kind == tokNotEq {
		op := p.advance().kind
		r, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		if op == tokEqEq {
			l = Equiv{L: l, R: r}
		} else {
			l = Nequiv{L: l, R: r}
		}
	}
	return l, nil
}

func (p *parser) parseImplies() (Expr, error) {
	l, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokArrow {
		p.advance()
		r, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		return Implies{L: l, R: r}, nil
	}
	return l, nil
}

func (p *parser) parseOr() (Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOrOr {
		p.advance()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = Or{L: l, R: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (Expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokAndAnd {
		p.advance()
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = And{L: l, R: r}
	}
	return l, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur().kind == tokNot {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokLBracket {
		boolEv, probEv, err := p.parseEvidenceBracket()
		if err != nil {
			return nil, err
		}
		if probEv != nil {
			e = WithProbEvidence{Body: e, Evidence: probEv}
		} else {
			e = WithBoolEvidence{Body: e, Evidence: boolEv}
		}
	}
	return e, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	kw, _ := p.identLower()
	switch kw {
	case "mrs":
		p.advance()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return MRS{Body: body}, nil
	case "p":
		p.advance()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		rel, err := p.parseRelop()
		if err != nil {
			return nil, err
		}
		threshold, err := p.parseRatToken()
		if err != nil {
			return nil, err
		}
		var ev []ProbMapping
		if p.cur().kind == tokLBracket {
			_, probEv, err := p.parseEvidenceBracket()
			if err != nil {
				return nil, err
			}
			ev = probEv
		}
		return ProbFormula{Body: body, Relation: rel, Threshold: threshold, Evidence: ev}, nil
	}

	if p.cur().kind == tokLParen {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	}

	if p.cur().kind == tokIdent {
		name := p.advance().text
		return NodeAtom{Name: name}, nil
	}

	return nil, p.errorf("unexpected token %q in expression", p.cur().text)
}

func (p *parser) parseRelop() (string, error) {
	switch p.cur().kind {
	case tokLt:
		p.advance()
		return "<", nil
	case tokLe:
		p.advance()
		return "<=", nil
	case tokEqEq:
		p.advance()
		return "==", nil
	case tokGe:
		p.advance()
		return ">=", nil
	case tokGt:
		p.advance()
		return ">", nil
	case tokNotEq:
		p.advance()
		return "!=", nil
	default:
		return "", p.errorf("expected a comparison operator, got %q", p.cur().text)
	}
}

// --- evidence brackets ---------------------------------------------------

// parseEvidenceBracket parses `[x:1, y:0]` (boolean) or `[x=0.8, y=0.2]`
// (probabilistic), detecting the kind from the first separator seen.
// For a non-empty bracket exactly one of the two return slices is
// non-nil; an empty bracket returns two nil slices.
func (p *parser) parseEvidenceBracket() ([]BoolMapping, []ProbMapping, error) {
	if _, err := p.expect(tokLBracket, "'['"); err != nil {
		return nil, nil, err
	}
	var boolEv []BoolMapping
	var probEv []ProbMapping
	isProb := false
	first := true
	for p.cur().kind != tokRBracket {
		name, err := p.expect(tokIdent, "evidence name")
		if err != nil {
			return nil, nil, err
		}
		switch p.cur().kind {
		case tokColon:
			if first {
				isProb = false
			} else if isProb {
				return nil, nil, p.errorf("mixed boolean/probabilistic evidence in one bracket")
			}
			p.advance()
			v, err := p.parseBoolLiteral()
			if err != nil {
				return nil, nil, err
			}
			boolEv = append(boolEv, BoolMapping{Name: name.text, Value: v})
		case tokEquals:
			if first {
				isProb = true
			} else if !isProb {
				return nil, nil, p.errorf("mixed boolean/probabilistic evidence in one bracket")
			}
			p.advance()
			r, err := p.parseRatToken()
			if err != nil {
				return nil, nil, err
			}
			probEv = append(probEv, ProbMapping{Name: name.text, Value: r})
		default:
			return nil, nil, p.errorf("expected ':' or '=' in evidence entry, got %q", p.cur().text)
		}
		first = false
		if p.cur().kind == tokComma {
			p.advance()
		}
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, nil, err
	}
	if isProb {
		return nil, probEv, nil
	}
	return boolEv, nil, nil
}

// --- small literal helpers ------------------------------------------------

func (p *parser) parseBoolLiteral() (bool, error) {
	switch p.cur().kind {
	case tokNumber:
		t := p.advance().text
		switch t {
		case "0":
			return false, nil
		case "1":
			return true, nil
		default:
			return false, p.errorf("expected 0 or 1, got %q", t)
		}
	case tokIdent:
		t := strings.ToLower(p.advance().text)
		switch t {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, p.errorf("expected a boolean literal, got %q", t)
		}
	default:
		return false, p.errorf("expected a boolean literal, got %q", p.cur().text)
	}
}

func (p *parser) parseRatToken() (*big.Rat, error) {
	t, err := p.expect(tokNumber, "a number")
	if err != nil {
		return nil, err
	}
	r, parseErr := parseRat(t.text)
	if parseErr != nil {
		return nil, p.errorf("%s", parseErr.Error())
	}
	return r, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	if _, err := p.expect(tokLBracket, "'['"); err != nil {
		return nil, err
	}
	var names []string
	for p.cur().kind != tokRBracket {
		name, err := p.expect(tokIdent, "identifier")
		if err != nil {
			return nil, err
		}
		names = append(names, name.text)
		if p.cur().kind == tokComma {
			p.advance()
		}
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return names, nil
}
