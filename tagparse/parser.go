package tagparse

import "fmt"

// DiagnosticKind classifies a non-fatal parse problem.
type DiagnosticKind string

const (
	// DiagMalformedTag is a tag construct the tokenizer could not lex.
	DiagMalformedTag DiagnosticKind = "malformed_tag"

	// DiagUnclosedTag is a block tag with no matching close tag.
	DiagUnclosedTag DiagnosticKind = "unclosed_tag"

	// DiagStrayCloseTag is a close tag with no preceding open tag.
	DiagStrayCloseTag DiagnosticKind = "stray_close_tag"

	// DiagMissingContent is a content-requiring tag written self-closing.
	DiagMissingContent DiagnosticKind = "missing_content"
)

// Diagnostic reports one non-fatal problem found while parsing. The
// affected source always passes through as literal text.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Pos     Position       `json:"pos"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at line %d col %d: %s", d.Kind, d.Pos.Line, d.Pos.Column, d.Message)
}

// Result is the output of a parse: the operations in scan order and any
// diagnostics. A parse never fails outright.
type Result struct {
	Operations  []*Operation `json:"operations"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// HasOperations reports whether any operations were recognized.
func (r *Result) HasOperations() bool {
	return len(r.Operations) > 0
}

// OperationsOfType returns the operations matching the given type, in
// scan order.
func (r *Result) OperationsOfType(typ OperationType) []*Operation {
	var ops []*Operation
	for _, op := range r.Operations {
		if op.Type == typ {
			ops = append(ops, op)
		}
	}
	return ops
}

// Parse extracts operations from the input text. Malformed, unmatched, and
// unknown tags are treated as literal text; the first two also produce
// diagnostics. Tags do not nest: the content of a block tag is captured
// verbatim up to the first close tag with the same identifier.
func Parse(input string) *Result {
	p := &parser{
		input:  input,
		tokens: Tokenize(input),
		result: &Result{},
	}
	p.run()
	return p.result
}

type parser struct {
	input  string
	tokens []Token
	pos    int
	result *Result
}

func (p *parser) diag(kind DiagnosticKind, pos Position, format string, args ...any) {
	p.result.Diagnostics = append(p.result.Diagnostics, Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func (p *parser) run() {
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		switch tok.Type {
		case TokenTagOpen:
			p.parseTag()
		case TokenTagEndOpen:
			// A close tag with no open counterpart. Unknown identifiers
			// are literal text like their open form; known ones are a
			// real mistake worth reporting. Skip the group either way.
			ident := p.tokens[p.pos+1].Text
			if _, known := LookupTag(ident); known {
				p.diag(DiagStrayCloseTag, tok.Pos, "close tag %q has no matching open tag", ident)
			}
			p.pos += 3
		case TokenInvalid:
			p.diag(DiagMalformedTag, tok.Pos, "malformed tag construct %q", clip(tok.Text, 40))
			p.pos++
		default:
			p.pos++
		}
	}
}

// parseTag consumes one opening tag group and, for block tags, scans
// forward for the matching close tag. p.tokens[p.pos] is TokenTagOpen.
func (p *parser) parseTag() {
	open := p.tokens[p.pos]
	ident, attrs, termIdx := p.readOpenGroup()
	term := p.tokens[termIdx]

	spec, known := LookupTag(ident)
	if !known {
		// Forward compatibility: unknown identifiers are literal text.
		p.pos = termIdx + 1
		return
	}

	if term.Type == TokenTagSelfClose {
		if spec.RequiresContent {
			p.diag(DiagMissingContent, open.Pos, "tag %q requires content but is self-closing", ident)
			p.pos = termIdx + 1
			return
		}
		p.emit(spec, ident, attrs, nil, open.Pos.Offset, term.End())
		p.pos = termIdx + 1
		return
	}

	// Block form: find the matching close tag for this identifier.
	closeIdx := p.findCloseTag(termIdx+1, ident)
	if closeIdx < 0 {
		p.diag(DiagUnclosedTag, open.Pos, "tag %q is never closed", ident)
		// Recover by reprocessing the tokens after the open group, so a
		// single unclosed tag does not swallow the rest of the document.
		p.pos = termIdx + 1
		return
	}

	closeEnd := p.tokens[closeIdx+2] // TagEndOpen Ident TagClose
	content := p.input[term.End():p.tokens[closeIdx].Pos.Offset]
	p.emit(spec, ident, attrs, &content, open.Pos.Offset, closeEnd.End())
	p.pos = closeIdx + 3
}

// readOpenGroup reads the Ident and Attr tokens following the TagOpen at
// p.pos and returns the index of the group's terminator token. The
// tokenizer guarantees the group shape, so no validation is needed here.
func (p *parser) readOpenGroup() (ident string, attrs map[string]string, termIdx int) {
	i := p.pos + 1
	ident = p.tokens[i].Text
	i++
	for p.tokens[i].Type == TokenAttr {
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[p.tokens[i].Key] = p.tokens[i].Value
		i++
	}
	return ident, attrs, i
}

// findCloseTag returns the index of the first TokenTagEndOpen for the
// given identifier at or after start, or -1. Tokens in between, including
// tag constructs for other identifiers, belong to the block's content.
func (p *parser) findCloseTag(start int, ident string) int {
	for i := start; i < len(p.tokens); i++ {
		// The tokenizer only emits complete close groups, so i+1 and i+2
		// are valid whenever tokens[i] is TokenTagEndOpen.
		if p.tokens[i].Type == TokenTagEndOpen && p.tokens[i+1].Text == ident {
			return i
		}
	}
	return -1
}

func (p *parser) emit(spec TagSpec, ident string, attrs map[string]string, content *string, start, end int) {
	p.result.Operations = append(p.result.Operations, &Operation{
		Type:    spec.Type,
		Tag:     ident,
		Attrs:   attrs,
		Content: content,
		Span: Span{
			Start: start,
			End:   end,
			Text:  p.input[start:end],
		},
	})
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
