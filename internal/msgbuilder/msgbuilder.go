// Package msgbuilder lowers an Update Context into a wire-ready dns.Msg: a
// DNS UPDATE message per RFC 2136, with the zone's SOA in the question
// section, prerequisites in the answer section, and the update RRs in the
// authority ("Ns", in miekg/dns's naming) section.
package msgbuilder

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/nserr"
	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// Build renders ctx's pending prerequisite and update lists into a new
// dns.Msg. The question type is always SOA (per SPEC_FULL.md §3's
// resolution of the original's configurable-but-always-SOA-in-practice
// question type); the question name is ctx.Zone if set, else ctx.Origin.
// The returned message's ID is left at zero: callers that actually transmit
// the message assign a fresh ID immediately before sending it, so that
// repeated `show` calls render a stable preview and `send` always uses a
// fresh transaction ID (SPEC_FULL.md §9, Open Question 2).
func Build(ctx *updatectx.Context) (*dns.Msg, error) {
	zone := ctx.Zone
	if zone == "" {
		zone = ctx.Origin
	}
	if zone == "" {
		return nil, fmt.Errorf("%w: no zone or origin set", nserr.ErrBuild)
	}

	msg := new(dns.Msg)
	msg.Compress = false
	msg.SetUpdate(zone)
	msg.Question[0].Qtype = dns.TypeSOA
	msg.Question[0].Qclass = ctx.ClassNum

	for _, e := range ctx.PrereqList {
		msg.Answer = append(msg.Answer, e.RR())
	}
	for _, e := range ctx.UpdateList {
		msg.Ns = append(msg.Ns, e.RR())
	}
	return msg, nil
}
