// Package rrset holds the RRSet entry type shared by the prerequisite and
// update lists in the update context, before they are lowered into the
// wire-format sections of a DNS UPDATE message.
package rrset

import "github.com/miekg/dns"

// Entry is a single resource record destined for either the prerequisite
// (answer) or update (authority) section of a pending UPDATE. It wraps a
// miekg/dns RR rather than reimplementing wire encoding: either a fully
// materialized RR (owner, type, class, ttl, rdata — produced by the RR
// Parser Facade from a complete zone line) or a header-only placeholder
// (owner, type, class, ttl with implicit zero-length rdata — used by
// prerequisites and whole-rrset deletes, where RFC 2136 encodes an
// existence predicate rather than data).
type Entry struct {
	rr dns.RR
}

// FromRR wraps an already-built RR (e.g. the result of dns.NewRR).
func FromRR(rr dns.RR) Entry {
	return Entry{rr: rr}
}

// Placeholder builds a header-only Entry: owner/type/class/ttl with no
// rdata. dns.RR_Header itself satisfies the dns.RR interface and packs as
// zero-length rdata, which is exactly the wire form RFC 2136 uses for
// existence/non-existence prerequisites and "delete whole rrset" updates.
func Placeholder(owner string, rrtype, class uint16, ttl uint32) Entry {
	return Entry{rr: &dns.RR_Header{
		Name:   dns.Fqdn(owner),
		Rrtype: rrtype,
		Class:  class,
		Ttl:    ttl,
	}}
}

// RR returns the underlying wire-level record.
func (e Entry) RR() dns.RR { return e.rr }

// Owner returns the entry's owner name in FQDN text form.
func (e Entry) Owner() string { return e.rr.Header().Name }

// Type returns the entry's RR type.
func (e Entry) Type() uint16 { return e.rr.Header().Rrtype }

// Class returns the entry's RR class (possibly ANY/NONE for predicates).
func (e Entry) Class() uint16 { return e.rr.Header().Class }

// TTL returns the entry's TTL (always 0 for prerequisites and deletes).
func (e Entry) TTL() uint32 { return e.rr.Header().Ttl }

// HasRdata reports whether the entry carries real rdata, as opposed to a
// header-only existence placeholder.
func (e Entry) HasRdata() bool {
	_, placeholder := e.rr.(*dns.RR_Header)
	return !placeholder
}

// String renders the entry the way the wire record would print in a
// zone-file-like presentation.
func (e Entry) String() string {
	return e.rr.String()
}
