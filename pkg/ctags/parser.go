package ctags

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/ritzau/coco/pkg/model"
)

var (
	classNameRe     = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)
	qualifiedNameRe = regexp.MustCompile(`^[A-Za-z0-9_$]+([.][A-Za-z0-9_$]+)+$`)
)

// classKinds maps ctags kind names (long, and Java single-letter) to declared kinds
var classKinds = map[string]model.Kind{
	"class":      model.KindClass,
	"c":          model.KindClass,
	"object":     model.KindClass, // Scala/Kotlin singleton object
	"o":          model.KindClass,
	"interface":  model.KindInterface,
	"i":          model.KindInterface,
	"annotation": model.KindInterface,
	"a":          model.KindInterface,
	"enum":       model.KindEnum,
	"g":          model.KindEnum,
	"trait":      model.KindTrait,
	"t":          model.KindTrait,
}

type entryKind int

const (
	entryMember entryKind = iota
	entryMethod
)

// memberKinds maps ctags kind names to member or method entries
var memberKinds = map[string]entryKind{
	"field":        entryMember,
	"f":            entryMember,
	"enumConstant": entryMember,
	"e":            entryMember,
	"property":     entryMember,
	"p":            entryMember,
	"variable":     entryMember,
	"V":            entryMember,
	"constant":     entryMember,
	"method":       entryMethod,
	"m":            entryMethod,
	"function":     entryMethod,
	"constructor":  entryMethod,
}

type ownerKey struct {
	file  string
	owner string
}

type pendingEntry struct {
	kind   entryKind
	member model.MemberInfo
	method model.MethodInfo
}

// Parser accumulates class records from tag lines.
// Class headers and member/method lines are two passes over the same line
// stream; members are attached to their class when records are requested,
// so tag order does not matter.
type Parser struct {
	records   []*model.RawClassRecord
	index     map[ownerKey]int
	pending   map[ownerKey][]pendingEntry
	malformed []*LineError
	skipped   int
	parsed    int
	lineNo    int
}

// NewParser creates an empty parser
func NewParser() *Parser {
	return &Parser{
		index:   make(map[ownerKey]int),
		pending: make(map[ownerKey][]pendingEntry),
	}
}

// ParseLine parses one tag line. Malformed lines are recorded and returned
// as a *LineError wrapping ErrMalformedLine; lines of kinds the parser does
// not model are skipped without error.
func (p *Parser) ParseLine(line string) error {
	p.lineNo++

	tag, err := ParseTag(line)
	if err != nil {
		return p.malformedLine(line, err)
	}
	if tag == nil {
		return nil
	}

	if kind, ok := classKinds[tag.Kind]; ok {
		if err := p.addClass(line, tag, kind); err != nil {
			return err
		}
		p.parsed++
		return nil
	}
	if kind, ok := memberKinds[tag.Kind]; ok {
		p.addEntry(tag, kind)
		p.parsed++
		return nil
	}

	p.skipped++
	p.parsed++
	return nil
}

// ParseClass parses a line and reports whether it produced a class header
func (p *Parser) ParseClass(line string) bool {
	before := len(p.records)
	if err := p.ParseLine(line); err != nil {
		return false
	}
	return len(p.records) > before
}

// ParseMember parses a line and reports whether it produced a member or method
func (p *Parser) ParseMember(line string) bool {
	before := p.pendingCount()
	if err := p.ParseLine(line); err != nil {
		return false
	}
	return p.pendingCount() > before
}

func (p *Parser) malformedLine(line string, err error) error {
	lineErr := &LineError{Line: p.lineNo, Text: line, Err: err}
	p.malformed = append(p.malformed, lineErr)
	return lineErr
}

func (p *Parser) addClass(line string, tag *Tag, kind model.Kind) error {
	if !classNameRe.MatchString(tag.Name) {
		if qualifiedNameRe.MatchString(tag.Name) {
			// Qualified duplicate emitted by --extras=+q
			p.skipped++
			return nil
		}
		return p.malformedLine(line, fmt.Errorf("%w: invalid class name %q", ErrMalformedLine, tag.Name))
	}

	key := ownerKey{file: tag.File, owner: tag.Name}
	if i, ok := p.index[key]; ok {
		rec := p.records[i]
		rec.ParentNames = appendUnique(rec.ParentNames, tag.Inherits()...)
		return nil
	}

	rec := model.NewRawClassRecord(tag.Name, tag.File)
	rec.Kind = kind
	rec.Language = tag.Language()
	rec.Line = tag.Line()
	rec.ParentNames = tag.Inherits()

	p.index[key] = len(p.records)
	p.records = append(p.records, rec)
	return nil
}

func (p *Parser) addEntry(tag *Tag, kind entryKind) {
	owner := tag.Scope()
	if owner == "" {
		// Top-level functions and variables have no class to attach to
		p.skipped++
		return
	}

	access := model.ParseAccess(tag.Fields["access"], defaultAccess(tag.Language()))
	entry := pendingEntry{kind: kind}
	switch kind {
	case entryMember:
		entry.member = model.MemberInfo{Name: tag.Name, Access: access, DeclaredType: tag.TypeRef()}
	case entryMethod:
		entry.method = model.MethodInfo{Name: tag.Name, Access: access, ReturnType: tag.TypeRef()}
	}

	key := ownerKey{file: tag.File, owner: owner}
	p.pending[key] = append(p.pending[key], entry)
}

func (p *Parser) pendingCount() int {
	n := 0
	for _, entries := range p.pending {
		n += len(entries)
	}
	return n
}

// Records returns the parsed class records in header order, with members and
// methods attached. The returned slice is a copy.
func (p *Parser) Records() []model.RawClassRecord {
	out := make([]model.RawClassRecord, 0, len(p.records))
	for _, rec := range p.records {
		r := *rec
		r.ParentNames = append([]string(nil), rec.ParentNames...)
		r.Members = nil
		r.Methods = nil
		for _, e := range p.pending[ownerKey{file: rec.SourceFile, owner: rec.Name}] {
			switch e.kind {
			case entryMember:
				r.Members = append(r.Members, e.member)
			case entryMethod:
				r.Methods = append(r.Methods, e.method)
			}
		}
		out = append(out, r)
	}
	return out
}

// Malformed returns the malformed lines seen so far
func (p *Parser) Malformed() []*LineError {
	return p.malformed
}

// Skipped returns the number of well-formed lines that were not modelled
func (p *Parser) Skipped() int {
	return p.skipped
}

// Parsed returns the number of tag lines that were well formed, whether
// modelled or skipped. Blank and metadata lines are not counted.
func (p *Parser) Parsed() int {
	return p.parsed
}

// Orphans returns the number of scoped members or methods whose class header
// never appeared in the tag file
func (p *Parser) Orphans() int {
	n := 0
	for key, entries := range p.pending {
		if _, ok := p.index[key]; !ok {
			n += len(entries)
		}
	}
	return n
}

// Result is the outcome of parsing a whole tag file
type Result struct {
	Records   []model.RawClassRecord
	Malformed []*LineError
	Skipped   int
	Orphans   int
	Parsed    int
	Lines     int
}

// Parse parses the full text of a tag file
func Parse(text string) (*Result, error) {
	parser := NewParser()
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		// Malformed lines are collected by the parser
		_ = parser.ParseLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tag file: %w", err)
	}

	return &Result{
		Records:   parser.Records(),
		Malformed: parser.Malformed(),
		Skipped:   parser.Skipped(),
		Orphans:   parser.Orphans(),
		Parsed:    parser.Parsed(),
		Lines:     parser.lineNo,
	}, nil
}

// defaultAccess is the access of a declaration without an explicit modifier
func defaultAccess(language string) model.Access {
	switch language {
	case "", "java":
		return model.AccessPackage
	}
	return model.AccessPublic
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
