package tools

import (
	"strconv"
	"strings"

	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/lexer"
	"github.com/lookbusy1344/minilang/pool"
	"github.com/lookbusy1344/minilang/token"
)

// FormatOptions controls Format's output.
type FormatOptions struct {
	IndentSize int
}

// DefaultFormatOptions returns a four-space indent.
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{IndentSize: 4}
}

// noSpaceBefore is the set of token kinds that never get a leading
// space, regardless of what preceded them.
func noSpaceBefore(k token.Kind) bool {
	switch k {
	case token.SEMI, token.COMMA, token.RPAREN, token.COLON:
		return true
	default:
		return false
	}
}

func renderToken(tok token.Token, p *pool.Pool) string {
	switch tok.Kind {
	case token.ID:
		return p.Ident(int(tok.Payload)).Name
	case token.GOTOLABEL:
		return p.Label(int(tok.Payload)).Name
	case token.INTCONST:
		return strconv.FormatUint(uint64(tok.Payload), 10)
	case token.REALCONST:
		s := strconv.FormatFloat(p.Real(int(tok.Payload)), 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case token.STRINGCONST:
		return `"` + p.String(int(tok.Payload)) + `"`
	default:
		return tok.Kind.String()
	}
}

// Format re-lexes source and re-prints it with a canonical indentation
// style: one statement per line, brace-depth indentation, `label:` and
// the opening `program {` on their own lines.
func Format(source, filename string, opts *FormatOptions) (string, *diag.Error) {
	if opts == nil {
		opts = DefaultFormatOptions()
	}
	p := pool.New()
	l := lexer.New(source, filename, p)

	var sb strings.Builder
	indent := 0
	atLineStart := true
	havePrev := false

	writeIndent := func() {
		if atLineStart {
			sb.WriteString(strings.Repeat(" ", indent*opts.IndentSize))
			atLineStart = false
		}
	}

	for {
		tok, err := l.Next()
		if err != nil {
			return "", err
		}
		if tok.Kind == token.EOF {
			break
		}

		if tok.Kind == token.RBRACE {
			if indent > 0 {
				indent--
			}
			writeIndent()
			sb.WriteString("}\n")
			atLineStart = true
			havePrev = false
			continue
		}

		writeIndent()
		if havePrev && !noSpaceBefore(tok.Kind) {
			sb.WriteString(" ")
		}
		sb.WriteString(renderToken(tok, p))
		havePrev = true

		switch tok.Kind {
		case token.LBRACE:
			sb.WriteString("\n")
			indent++
			atLineStart = true
			havePrev = false
		case token.SEMI, token.COLON:
			sb.WriteString("\n")
			atLineStart = true
			havePrev = false
		}
	}

	return sb.String(), nil
}
