// Package rr is a thin adapter around github.com/miekg/dns's zone-line
// parser (dns.NewRR), playing the role of the "zonefile scanner" external
// collaborator. It owns FQDN completion against an origin and the
// partial-RR defaulting rules the directive handlers rely on.
package rr

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/nserr"
)

// Flags controls how ParsePartial fills in omitted fields.
type Flags uint8

const (
	// NoDefault means an omitted TTL becomes 0 instead of DefaultTTL.
	NoDefault Flags = 1 << iota
	// NameOnly means only the owner name is parsed; any trailing text is
	// warned about and discarded.
	NameOnly
	// NoTTL means a leading TTL-looking token is warned about and discarded
	// rather than applied.
	NoTTL
)

// Facade holds the defaulting context consulted while parsing: the origin
// appended to non-FQDN owners, and the class/TTL applied to omitted fields.
type Facade struct {
	Origin       string // always FQDN
	DefaultClass uint16
	DefaultTTL   uint32
	Log          *slog.Logger
}

func (f *Facade) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}

// Partial is the result of ParsePartial: the fields recognized so far, and
// RR set only when trailing rdata was present and successfully parsed.
type Partial struct {
	Owner string
	Type  uint16
	Class uint16
	TTL   uint32
	RR    dns.RR // nil when no rdata was supplied
}

// ParseFull parses a complete RR in conventional zone-file syntax: an owner
// followed by optional TTL and class, then a required type and rdata. Fails
// with nserr.ErrParse if the line cannot be parsed or the resulting class
// differs from f.DefaultClass.
func (f *Facade) ParseFull(line string) (dns.RR, error) {
	owner, rest, err := splitOwner(line)
	if err != nil {
		return nil, err
	}
	owner = f.completeOwner(owner)

	fields, remainder := tokenizeFields(rest, 0)
	if fields.typ == "" {
		return nil, fmt.Errorf("%w: missing record type in %q", nserr.ErrParse, line)
	}
	if remainder == "" {
		return nil, fmt.Errorf("%w: missing rdata in %q", nserr.ErrParse, line)
	}

	ttl := f.DefaultTTL
	if fields.ttlSet {
		ttl = fields.ttl
	}
	classWord := dns.ClassToString[f.DefaultClass]
	if classWord == "" {
		classWord = "IN"
	}
	if fields.classSet {
		if fields.class != f.DefaultClass {
			return nil, fmt.Errorf("%w: class mismatch: %s", nserr.ErrParse, strings.ToUpper(fields.classWord))
		}
		classWord = fields.classWord
	}

	normalized := fmt.Sprintf("%s %d %s %s %s", owner, ttl, classWord, fields.typ, remainder)
	parsed, err := dns.NewRR(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nserr.ErrParse, err)
	}
	return parsed, nil
}

// ParsePartial parses RRs where tail fields may be omitted, per the flag
// bitset documented on the Flags type.
func (f *Facade) ParsePartial(line string, flags Flags) (Partial, error) {
	owner, rest, err := splitOwner(line)
	if err != nil {
		return Partial{}, err
	}
	owner = f.completeOwner(owner)

	p := Partial{
		Owner: owner,
		Type:  dns.TypeANY,
		Class: f.DefaultClass,
		TTL:   f.DefaultTTL,
	}
	if flags&NoDefault != 0 {
		p.TTL = 0
	}

	if flags&NameOnly != 0 {
		if strings.TrimSpace(rest) != "" {
			f.logger().Warn("ignoring input data", "data", rest)
		}
		return p, nil
	}

	fields, remainder := tokenizeFields(rest, flags)
	if fields.ttlSet {
		if flags&NoTTL != 0 {
			f.logger().Warn("ignoring TTL value", "ttl", fields.ttl)
		} else {
			p.TTL = fields.ttl
		}
	}
	if fields.classSet {
		if fields.class != f.DefaultClass {
			return Partial{}, fmt.Errorf("%w: class mismatch: %s", nserr.ErrParse, strings.ToUpper(fields.classWord))
		}
		p.Class = fields.class
	}
	if fields.typ != "" {
		if t, ok := dns.StringToType[strings.ToUpper(fields.typ)]; ok {
			p.Type = t
		}
	}

	if remainder == "" {
		return p, nil
	}

	// Rdata present: synthesize a full-RR line and re-invoke the scanner.
	// The original nsupdate hardcodes the "IN" class literal here even when
	// a non-IN default class is configured; preserved verbatim.
	typeWord := fields.typ
	if typeWord == "" {
		typeWord = dns.TypeToString[p.Type]
	}
	normalized := fmt.Sprintf("%s %d IN %s %s", owner, p.TTL, typeWord, remainder)
	parsed, err := dns.NewRR(normalized)
	if err != nil {
		return Partial{}, fmt.Errorf("%w: %v", nserr.ErrParse, err)
	}
	p.RR = parsed
	p.Type = parsed.Header().Rrtype
	return p, nil
}

// completeOwner appends the origin to a non-FQDN owner name.
func (f *Facade) completeOwner(owner string) string {
	if dns.IsFqdn(owner) {
		return owner
	}
	if f.Origin == "." {
		return owner + "."
	}
	return owner + "." + f.Origin
}

// splitOwner extracts the leading whitespace-delimited owner token.
func splitOwner(line string) (owner, rest string, err error) {
	line = strings.TrimLeft(line, " \t")
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		owner, rest = line, ""
	} else {
		owner, rest = line[:idx], strings.TrimLeft(line[idx:], " \t")
	}
	if owner == "" {
		return "", "", fmt.Errorf("%w: failed to parse owner name", nserr.ErrParse)
	}
	return owner, rest, nil
}

// ValidateName reports whether s parses as a syntactically valid domain
// name, for the zone/origin directives' validation-only use.
func ValidateName(s string) bool {
	_, ok := dns.IsDomainName(s)
	return ok
}

type parsedFields struct {
	ttl       uint32
	ttlSet    bool
	class     uint16
	classWord string
	classSet  bool
	typ       string
}

// tokenizeFields recognizes an optional [ttl] [class] [type] prefix on rest
// and returns the remaining text (the rdata, or "" if none). Class and type
// are matched against miekg/dns's string tables case-insensitively.
func tokenizeFields(rest string, _ Flags) (parsedFields, string) {
	var f parsedFields
	rest = strings.TrimLeft(rest, " \t")

	tok, remainder := nextToken(rest)
	if n, err := strconv.ParseUint(tok, 10, 32); err == nil {
		f.ttl = uint32(n)
		f.ttlSet = true
		rest = strings.TrimLeft(remainder, " \t")
		tok, remainder = nextToken(rest)
	}

	if c, ok := dns.StringToClass[strings.ToUpper(tok)]; ok {
		f.class = c
		f.classWord = tok
		f.classSet = true
		rest = strings.TrimLeft(remainder, " \t")
		tok, remainder = nextToken(rest)
	}

	if _, ok := dns.StringToType[strings.ToUpper(tok)]; ok {
		f.typ = tok
		rest = strings.TrimLeft(remainder, " \t")
	}

	return f, rest
}

// nextToken returns the next whitespace-delimited token and the remainder.
func nextToken(s string) (tok, rest string) {
	s = strings.TrimLeft(s, " \t")
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}
