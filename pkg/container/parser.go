package container

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultExport names the export produced by a plain module identifier
const DefaultExport = "default"

// Life is the lifetime of a resolved object
type Life int

const (
	// LifeSingleton objects are built once and shared
	LifeSingleton Life = iota
	// LifeInstance objects are built on every request
	LifeInstance
)

func (l Life) String() string {
	if l == LifeInstance {
		return "instance"
	}
	return "singleton"
}

// DepID is a parsed dependency identifier
type DepID struct {
	Value  string // identifier as requested
	Module string
	Export string
	Life   Life
}

// Key identifies the object a DepID refers to, ignoring its lifetime
func (d *DepID) Key() string {
	return d.Module + "." + d.Export
}

func (d *DepID) String() string {
	s := d.Module
	if d.Export != DefaultExport {
		s += "." + d.Export
	}
	if d.Life == LifeInstance {
		s += "$$"
	}
	return s
}

// Clone returns a copy that chunks may modify freely
func (d *DepID) Clone() *DepID {
	out := *d
	return &out
}

// ParserChunk turns an identifier into a DepID. ok is false when the chunk
// does not recognise the syntax and the next chunk should try.
type ParserChunk interface {
	Parse(id string) (dep *DepID, ok bool)
}

// ParserChunkFunc adapts a function to ParserChunk
type ParserChunkFunc func(id string) (*DepID, bool)

// Parse implements ParserChunk
func (f ParserChunkFunc) Parse(id string) (*DepID, bool) {
	return f(id)
}

// Parser tries its chunks in order and falls back to the default syntax:
//
//	Module, Module$         default export, singleton
//	Module$$                default export, new instance
//	Module.export[$|$$]     named export
type Parser struct {
	mu     sync.RWMutex
	chunks []ParserChunk
}

// NewParser creates a parser with only the default syntax
func NewParser() *Parser {
	return &Parser{}
}

// AddChunk registers a chunk tried before the default syntax
func (p *Parser) AddChunk(chunk ParserChunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, chunk)
}

// Chunks returns the registered chunks in order
func (p *Parser) Chunks() []ParserChunk {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ParserChunk(nil), p.chunks...)
}

// Parse converts an identifier into a DepID
func (p *Parser) Parse(id string) (*DepID, error) {
	for _, chunk := range p.Chunks() {
		if dep, ok := chunk.Parse(id); ok {
			if dep.Value == "" {
				dep.Value = id
			}
			return dep, nil
		}
	}

	if dep, ok := ParseDefault(id); ok {
		return dep, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
}

// ParseDefault parses the default identifier syntax
func ParseDefault(id string) (*DepID, bool) {
	body, life := SplitLife(id)

	module, export, named := strings.Cut(body, ".")
	if !named {
		export = DefaultExport
	}
	if !ValidName(module) || !ValidName(export) {
		return nil, false
	}

	return &DepID{Value: id, Module: module, Export: export, Life: life}, true
}

// SplitLife strips the lifetime marker from the end of an identifier
func SplitLife(id string) (string, Life) {
	if body, ok := strings.CutSuffix(id, "$$"); ok {
		return body, LifeInstance
	}
	if body, ok := strings.CutSuffix(id, "$"); ok {
		return body, LifeSingleton
	}
	return id, LifeSingleton
}

// ValidName reports whether s is a non-empty run of letters, digits and underscores
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
