package dxf

import (
	"io"
	"log/slog"
	"strings"

	"github.com/chazu/dxfnest/pkg/entity"
)

// Options controls Parse.
type Options struct {
	// NormalizeUnits scales every entity to millimetres using the header's
	// $INSUNITS value.
	NormalizeUnits bool
	Logger         *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ParseString parses DXF text held in memory.
func ParseString(content string, opts Options) (*entity.Document, error) {
	return Parse(strings.NewReader(content), opts)
}

// Parse reads an ASCII DXF drawing. Entity types without a registered
// decoder come back as entity.Unsupported so callers can report them. On a
// structural error no document is returned.
func Parse(r io.Reader, opts Options) (*entity.Document, error) {
	s := NewScanner(r)
	doc := &entity.Document{Entities: []entity.Entity{}}
	sawSection := false
	sawAny := false

	for s.Next() {
		sawAny = true
		t := s.Tag()
		if t.is(0, "EOF") {
			break
		}
		if !t.is(0, "SECTION") {
			continue
		}
		sawSection = true
		if !s.Next() {
			break
		}
		name := s.Tag()
		var err error
		switch {
		case name.is(2, "HEADER"):
			err = parseHeader(s, doc)
		case name.is(2, "ENTITIES"):
			err = parseEntities(s, doc)
		default:
			err = skipSection(s)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if !sawAny {
		return nil, &ParseError{Cause: ErrEmpty}
	}
	if !sawSection {
		return nil, &ParseError{Line: 1, Cause: ErrNoSections}
	}

	log := opts.logger()
	if opts.NormalizeUnits {
		if f := doc.Units.ToMillimeters(); f != 1 {
			log.Debug("dxf: normalizing units", "units", doc.Units.String(), "factor", f)
			doc.Entities = entity.Scale(doc.Entities, f)
		}
	}
	log.Debug("dxf: parsed", "entities", len(doc.Entities), "lines", s.Lines())
	return doc, nil
}

func skipSection(s *Scanner) error {
	start := s.Tag().Line
	for s.Next() {
		if s.Tag().is(0, "ENDSEC") {
			return nil
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return &ParseError{Line: start, Cause: ErrUnterminated}
}

// parseHeader picks out the header variables the converter uses.
func parseHeader(s *Scanner, doc *entity.Document) error {
	start := s.Tag().Line
	variable := ""
	for s.Next() {
		t := s.Tag()
		switch {
		case t.is(0, "ENDSEC"):
			return nil
		case t.Code == 9:
			variable = strings.ToUpper(t.Value)
		case variable == "$INSUNITS" && t.Code == 70:
			n, err := t.Int()
			if err != nil {
				return err
			}
			doc.Units = entity.Units(n)
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return &ParseError{Line: start, Cause: ErrUnterminated}
}

// parseEntities decodes every entity until ENDSEC.
func parseEntities(s *Scanner, doc *entity.Document) error {
	start := s.Tag().Line
	var poly *polylineBuilder
	for s.Next() {
		t := s.Tag()
		if t.Code != 0 {
			continue
		}
		if t.is(0, "ENDSEC") {
			if poly != nil {
				doc.Entities = append(doc.Entities, poly.build())
			}
			return nil
		}
		typeName := strings.ToUpper(t.Value)
		tags, err := collect(s)
		if err != nil {
			return err
		}

		switch typeName {
		case "POLYLINE":
			if poly != nil {
				doc.Entities = append(doc.Entities, poly.build())
			}
			if poly, err = newPolylineBuilder(tags); err != nil {
				return err
			}
			continue
		case "VERTEX":
			if poly != nil {
				if err := poly.addVertex(tags); err != nil {
					return err
				}
			}
			continue
		case "SEQEND":
			if poly != nil {
				doc.Entities = append(doc.Entities, poly.build())
				poly = nil
			}
			continue
		}

		decode, ok := lookup(typeName)
		if !ok {
			doc.Entities = append(doc.Entities, entity.Unsupported{Base: base(tags), Type: typeName})
			continue
		}
		e, err := decode(tags)
		if err != nil {
			return err
		}
		doc.Entities = append(doc.Entities, e)
	}
	if err := s.Err(); err != nil {
		return err
	}
	return &ParseError{Line: start, Cause: ErrUnterminated}
}

// collect gathers tags up to, but not including, the next code-0 tag.
func collect(s *Scanner) ([]Tag, error) {
	var tags []Tag
	for s.Next() {
		t := s.Tag()
		if t.Code == 0 {
			s.Unread()
			return tags, nil
		}
		tags = append(tags, t)
	}
	return tags, s.Err()
}
