// Package updatectx holds the Update Context: the mutable state accumulated
// across directives in a single nsupdate session. Exactly one goroutine
// mutates a Context at a time (see SPEC_FULL.md §5); there is no internal
// locking.
package updatectx

import (
	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/rrset"
)

// Endpoint is a remote or local network endpoint: an address plus a service
// (port or port-like string, e.g. "0" for an ephemeral local bind).
type Endpoint struct {
	Address string
	Service string
}

// KeyParams holds TSIG key material. A zero value means "unsigned".
type KeyParams struct {
	Name      string
	Algorithm string // e.g. dns.HmacSHA256; always carries the trailing dot
	Secret    string // base64-encoded
}

// Empty reports whether no TSIG key has been configured.
func (k KeyParams) Empty() bool { return k.Name == "" }

// Protocol is the transport an explicit `server`/`send` should prefer.
type Protocol int

const (
	ProtocolAuto Protocol = iota
	ProtocolUDP
	ProtocolTCP
)

// IPFamily constrains endpoint resolution.
type IPFamily int

const (
	IPAny IPFamily = iota
	IPv4Only
	IPv6Only
)

// DefaultDNSPort is used for Server.Service when none is given explicitly.
const DefaultDNSPort = "53"

// Context is the central aggregate mutated by directive handlers.
type Context struct {
	Origin       string // always FQDN
	Zone         string // FQDN zone apex; question owner
	DefaultClass uint16
	DefaultTTL   uint32
	ClassNum     uint16 // question class
	TypeNum      uint16 // retained for parity with the original; see SPEC_FULL.md §3

	PrereqList []rrset.Entry
	UpdateList []rrset.Entry

	Server *Endpoint
	Srcif  *Endpoint
	Key    KeyParams

	Protocol Protocol
	IPFamily IPFamily
	Wait     int // seconds
	Retries  int

	Query  *dns.Msg // last built query, used by `show`/`send`
	Answer *dns.Msg // last received answer, used by `answer`

	Debug bool
}

// New returns a Context with the conventional nsupdate defaults: class IN,
// TTL 3600, origin the DNS root, UDP/TCP auto-selected, a 3-second wait and
// two additional retries (three attempts in all).
func New() *Context {
	return &Context{
		Origin:       ".",
		DefaultClass: dns.ClassINET,
		DefaultTTL:   3600,
		ClassNum:     dns.ClassINET,
		TypeNum:      dns.TypeSOA,
		Protocol:     ProtocolAuto,
		IPFamily:     IPAny,
		Wait:         3,
		Retries:      2,
	}
}

// Reset clears the prerequisite and update lists, as happens after a
// successful `send`. Server, key, and defaults are preserved.
func (c *Context) Reset() {
	c.PrereqList = nil
	c.UpdateList = nil
}

// Pending reports whether there is anything to send.
func (c *Context) Pending() bool {
	return len(c.PrereqList) > 0 || len(c.UpdateList) > 0
}
