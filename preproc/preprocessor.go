// Package preproc reduces notation source with macros into a flat text with
// no macros, keeping a map from each output character to its origin so that
// later stages can point diagnostics back at the source.
package preproc

import (
	"bytes"

	"github.com/jsphweid/engrave/apperr"
)

// DefaultMaxMacroLength bounds the growth of the expanded text and of each
// macro body, checked at every append so nested references cannot blow up
// exponentially.
const DefaultMaxMacroLength = 65535

// Text is the preprocessor output.
type Text struct {
	Main   Macro             // the flat preprocessed text
	Macros map[string]*Macro // currently active macros by name
	All    []*Macro          // every macro ever defined, shadowed ones included
}

type preprocessor struct {
	src    []byte     // whitespace-stripped input
	pos    []Position // origin of each byte of src
	maxLen int
	res    Text
}

// Process expands macros in text with the default size limit.
func Process(text string) (*Text, error) {
	return ProcessWithLimit(text, DefaultMaxMacroLength)
}

// ProcessWithLimit expands macros in text, bounding every expanded text to
// maxMacroLength characters.
func ProcessWithLimit(text string, maxMacroLength int) (*Text, error) {
	p := &preprocessor{maxLen: maxMacroLength}
	p.res.Macros = make(map[string]*Macro)
	p.removeWhitespaces(text)
	if err := p.process(); err != nil {
		return nil, err
	}
	// EOF mark, so that positions can be resolved one past the last character
	p.res.Main.Positions = append(p.res.Main.Positions, Position{})
	return &p.res, nil
}

// removeWhitespaces strips CR, LF, spaces and tabs while tracking the
// line/column of every retained character. A tab advances the column by 4.
func (p *preprocessor) removeWhitespaces(text string) {
	p.src = make([]byte, 0, len(text))
	line, column := 1, 1
	for i := 0; i < len(text); i++ {
		switch ch := text[i]; ch {
		case '\r':
		case '\n':
			line++
			column = 1
		case ' ':
			column++
		case '\t':
			column += 4
		default:
			p.src = append(p.src, ch)
			p.pos = append(p.pos, SourcePos(line, column))
			column++
		}
	}
}

func (p *preprocessor) process() error {
	cur := 0
	for cur < len(p.src) {
		idx := bytes.IndexAny(p.src[cur:], "!*")
		if idx < 0 {
			return p.appendText(&p.res.Main, cur, len(p.src))
		}
		if err := p.appendText(&p.res.Main, cur, cur+idx); err != nil {
			return err
		}
		cur += idx
		if p.src[cur] == '!' {
			next, err := p.consumeMacroDef(cur)
			if err != nil {
				return err
			}
			cur = next
		} else {
			nameLo, nameHi, next, err := p.consumeMacroRef(cur, len(p.src))
			if err != nil {
				return err
			}
			if err := p.appendMacro(&p.res.Main, nameLo, nameHi); err != nil {
				return err
			}
			cur = next
		}
	}
	return nil
}

func mapDescription(m *Macro) string {
	if m.Name == "" {
		return "Preprocessed text"
	}
	return "Macro '" + m.Name + "'"
}

// appendText copies src[lo:hi] into m, carrying positions over.
func (p *preprocessor) appendText(m *Macro, lo, hi int) error {
	if len(m.Content)+(hi-lo) > p.maxLen {
		return apperr.Newf(apperr.MacroExpansionTooLarge,
			"%s expands exceeding the character limit of %d, %s",
			mapDescription(m), p.maxLen, p.pos[lo])
	}
	m.Content = append(m.Content, p.src[lo:hi]...)
	for i := lo; i < hi; i++ {
		m.Positions = append(m.Positions, p.pos[i])
	}
	return nil
}

// appendMacro expands the macro named by src[nameLo:nameHi] into m.
func (p *preprocessor) appendMacro(m *Macro, nameLo, nameHi int) error {
	entry, ok := p.res.Macros[string(p.src[nameLo:nameHi])]
	if !ok {
		return apperr.Newf(apperr.MacroUndefined,
			"Referenced macro '%s' is not yet defined, %s",
			p.src[nameLo:nameHi], p.pos[nameLo])
	}
	if len(m.Content)+len(entry.Content) > p.maxLen {
		return apperr.Newf(apperr.MacroExpansionTooLarge,
			"%s expands exceeding the character limit of %d, %s",
			mapDescription(m), p.maxLen, p.pos[nameLo])
	}
	m.Content = append(m.Content, entry.Content...)
	for i := range entry.Content {
		m.Positions = append(m.Positions, MacroPos(entry, i))
	}
	return nil
}

// consumeMacroDef parses a `!name: body!` definition starting at cur and
// returns the index just past its closing '!'.
func (p *preprocessor) consumeMacroDef(cur int) (int, error) {
	defPos := p.pos[cur]

	closing := bytes.IndexByte(p.src[cur+1:], '!')
	if closing < 0 {
		return 0, apperr.Newf(apperr.MacroUnclosed,
			"Macro definition is not closed with another '!' %s", defPos)
	}
	defLo, defHi := cur+1, cur+1+closing
	next := defHi + 1

	colon := bytes.IndexByte(p.src[defLo:defHi], ':')
	if colon < 0 {
		return 0, apperr.Newf(apperr.MacroNoColon,
			"No ':' found to separate macro name and content, at %s", defPos)
	}
	nameLo, nameHi := defLo, defLo+colon
	if err := p.validateMacroName(nameLo, nameHi); err != nil {
		return 0, err
	}

	entry := &Macro{Name: string(p.src[nameLo:nameHi]), DefinitionPosition: defPos}
	p.res.All = append(p.res.All, entry)

	body := nameHi + 1
	for body < defHi {
		star := bytes.IndexByte(p.src[body:defHi], '*')
		if star < 0 {
			if err := p.appendText(entry, body, defHi); err != nil {
				return 0, err
			}
			break
		}
		if err := p.appendText(entry, body, body+star); err != nil {
			return 0, err
		}
		refLo, refHi, after, err := p.consumeMacroRef(body+star, defHi)
		if err != nil {
			return 0, err
		}
		if err := p.appendMacro(entry, refLo, refHi); err != nil {
			return 0, err
		}
		body = after
	}

	// New definitions shadow older ones; the old entries stay reachable
	// through All for provenance messages.
	p.res.Macros[entry.Name] = entry
	return next, nil
}

// consumeMacroRef parses a `*name*` reference starting at cur, returning the
// name's byte range and the index just past the closing '*'. The closing
// star must appear before limit.
func (p *preprocessor) consumeMacroRef(cur, limit int) (nameLo, nameHi, next int, err error) {
	closing := bytes.IndexByte(p.src[cur+1:limit], '*')
	if closing < 0 {
		return 0, 0, 0, apperr.Newf(apperr.MacroUnclosed,
			"Macro reference is not closed with another '*' %s", p.pos[cur])
	}
	return cur + 1, cur + 1 + closing, cur + closing + 2, nil
}

func (p *preprocessor) validateMacroName(lo, hi int) error {
	if lo == hi {
		return apperr.Newf(apperr.MacroNameInvalid, "Macro name is empty %s", p.pos[lo])
	}
	valid := true
	for i := lo; i < hi; i++ {
		ch := p.src[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_') {
			valid = false
			break
		}
	}
	if !valid || p.src[lo] >= '0' && p.src[lo] <= '9' {
		return apperr.Newf(apperr.MacroNameInvalid,
			"Macro name %s is not a valid identifier (containing only ASCII "+
				"alphanumeric characters and underscores, not starting with a digit), defined %s",
			p.src[lo:hi], p.pos[lo])
	}
	return nil
}
