// Package directive implements one handler per nsupdate directive. Each
// handler validates its arguments and mutates the Update Context reachable
// through the Env it is given; `send`, `show`, `answer`, and `debug` also
// reach into the session-level operations exposed by Env.
package directive

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/dispatch"
	"github.com/nsupdate-go/nsupdate/internal/nserr"
	"github.com/nsupdate-go/nsupdate/internal/rr"
	"github.com/nsupdate-go/nsupdate/internal/rrset"
	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// Env is the environment a directive handler runs in. internal/session's
// Session implements it; keeping it an interface here (rather than
// importing session, which would cycle) lets handlers stay decoupled from
// transport/TSIG/message-building concerns they don't need directly.
type Env interface {
	Ctx() *updatectx.Context
	Logger() *slog.Logger
	Facade() *rr.Facade

	// Send builds, signs, transmits and parses the reply for the current
	// pending update (§4.5–§4.7).
	Send() error
	// Show renders a preview of the current query without transmitting it
	// or assigning it a fresh header ID.
	Show() error
	// Answer renders the last received reply.
	Answer() error
	// EnableDebug raises the session's log level to Debug.
	EnableDebug()
}

// Handler is the signature every directive handler implements. arg is the
// residual text after the keyword and its separating whitespace.
type Handler func(env Env, arg string) error

// Directive names — the canonical keys the dispatch table's synonyms
// (del/delete) resolve to, and the handler registry is keyed by.
const (
	NameAdd        = "add"
	NameAnswer     = "answer"
	NameClass      = "class"
	NameDebug      = "debug"
	NameDel        = "del"
	NameGSSTSIG    = "gsstsig"
	NameKey        = "key"
	NameLocal      = "local"
	NameNxDomain   = "nxdomain"
	NameNxRRset    = "nxrrset"
	NameOldGSSTSIG = "oldgsstsig"
	NameOrigin     = "origin"
	NamePrereq     = "prereq"
	NameRealm      = "realm"
	NameSend       = "send"
	NameServer     = "server"
	NameShow       = "show"
	NameTTL        = "ttl"
	NameUpdate     = "update"
	NameYxDomain   = "yxdomain"
	NameYxRRset    = "yxrrset"
	NameZone       = "zone"
)

// Table is the main, lexicographically sorted keyword table. Two synonyms
// (del/delete) map to NameDel.
var Table = dispatch.NewTable([]dispatch.Entry{
	{Keyword: "add", Name: NameAdd},
	{Keyword: "answer", Name: NameAnswer},
	{Keyword: "class", Name: NameClass},
	{Keyword: "debug", Name: NameDebug},
	{Keyword: "del", Name: NameDel},
	{Keyword: "delete", Name: NameDel},
	{Keyword: "gsstsig", Name: NameGSSTSIG},
	{Keyword: "key", Name: NameKey},
	{Keyword: "local", Name: NameLocal},
	{Keyword: "nxdomain", Name: NameNxDomain},
	{Keyword: "nxrrset", Name: NameNxRRset},
	{Keyword: "oldgsstsig", Name: NameOldGSSTSIG},
	{Keyword: "origin", Name: NameOrigin},
	{Keyword: "prereq", Name: NamePrereq},
	{Keyword: "realm", Name: NameRealm},
	{Keyword: "send", Name: NameSend},
	{Keyword: "server", Name: NameServer},
	{Keyword: "show", Name: NameShow},
	{Keyword: "ttl", Name: NameTTL},
	{Keyword: "update", Name: NameUpdate},
	{Keyword: "yxdomain", Name: NameYxDomain},
	{Keyword: "yxrrset", Name: NameYxRRset},
	{Keyword: "zone", Name: NameZone},
})

// prereqTable is the sub-dispatch table for `prereq <subkind> ...`.
var prereqTable = dispatch.NewTable([]dispatch.Entry{
	{Keyword: "nxdomain", Name: NameNxDomain},
	{Keyword: "nxrrset", Name: NameNxRRset},
	{Keyword: "yxdomain", Name: NameYxDomain},
	{Keyword: "yxrrset", Name: NameYxRRset},
})

var registry = map[string]Handler{
	NameAdd:        handleAdd,
	NameAnswer:     handleAnswer,
	NameClass:      handleClass,
	NameDebug:      handleDebug,
	NameDel:        handleDel,
	NameGSSTSIG:    handleNotSupported,
	NameKey:        handleKey,
	NameLocal:      handleLocal,
	NameNxDomain:   handleNxDomain,
	NameNxRRset:    handleNxRRset,
	NameOldGSSTSIG: handleNotSupported,
	NameOrigin:     handleOrigin,
	NamePrereq:     handlePrereq,
	NameRealm:      handleNotSupported,
	NameSend:       handleSend,
	NameServer:     handleServer,
	NameShow:       handleShow,
	NameTTL:        handleTTL,
	NameUpdate:     handleUpdate,
	NameYxDomain:   handleYxDomain,
	NameYxRRset:    handleYxRRset,
	NameZone:       handleZone,
}

// Dispatch looks up the keyword at the head of line and runs its handler.
// It returns (false, nil) for a line that matched no keyword — the caller
// (internal/lineproc) is responsible for logging a syntax error in that
// case, since Dispatch has no line number or source name to attach to it.
func Dispatch(env Env, line string) (matched bool, err error) {
	name, residual, ok := dispatch.Find(Table, line)
	if !ok {
		return false, nil
	}
	h, ok := registry[name]
	if !ok {
		return true, fmt.Errorf("%w: unregistered directive %q", nserr.ErrParse, name)
	}
	return true, h(env, residual)
}

func handleServer(env Env, arg string) error {
	service := updatectx.DefaultDNSPort
	if prev := env.Ctx().Server; prev != nil && prev.Service != "" {
		service = prev.Service
	}
	ep, err := parseHost(arg, service)
	if err != nil {
		return err
	}
	env.Ctx().Server = ep
	return nil
}

func handleLocal(env Env, arg string) error {
	ep, err := parseHost(arg, "0")
	if err != nil {
		return err
	}
	env.Ctx().Srcif = ep
	return nil
}

// parseHost splits "host [port]" into an Endpoint, applying defaultService
// when no port token is present. A bracketed or bare IPv6 literal is taken
// as the whole address when it contains no unbracketed space.
func parseHost(arg string, defaultService string) (*updatectx.Endpoint, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("%w: missing host argument", nserr.ErrInvalidArgument)
	}
	host, port, ok := strings.Cut(arg, " ")
	if !ok {
		return &updatectx.Endpoint{Address: host, Service: defaultService}, nil
	}
	port = strings.TrimSpace(port)
	if port == "" {
		port = defaultService
	}
	return &updatectx.Endpoint{Address: host, Service: port}, nil
}

func handleZone(env Env, arg string) error {
	if !rr.ValidateName(arg) {
		return fmt.Errorf("%w: failed to parse zone %q", nserr.ErrParse, arg)
	}
	env.Ctx().Zone = dns.Fqdn(arg)
	return nil
}

func handleOrigin(env Env, arg string) error {
	if !rr.ValidateName(arg) {
		return fmt.Errorf("%w: failed to parse origin %q", nserr.ErrParse, arg)
	}
	env.Ctx().Origin = dns.Fqdn(arg)
	return nil
}

func handleClass(env Env, arg string) error {
	cls, ok := dns.StringToClass[strings.ToUpper(strings.TrimSpace(arg))]
	if !ok {
		return fmt.Errorf("%w: failed to parse class %q", nserr.ErrParse, arg)
	}
	ctx := env.Ctx()
	ctx.ClassNum = cls
	ctx.DefaultClass = cls
	return nil
}

func handleTTL(env Env, arg string) error {
	n, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	if err != nil {
		return fmt.Errorf("%w: invalid ttl %q", nserr.ErrParse, arg)
	}
	env.Ctx().DefaultTTL = uint32(n)
	return nil
}

func handleDebug(env Env, _ string) error {
	env.EnableDebug()
	return nil
}

func handleKey(env Env, arg string) error {
	env.Ctx().Key = updatectx.KeyParams{}
	name, secret, _ := strings.Cut(strings.TrimSpace(arg), " ")
	secret = strings.TrimSpace(secret)
	if name == "" || secret == "" {
		return fmt.Errorf("%w: key directive without secret specified", nserr.ErrInvalidArgument)
	}
	env.Ctx().Key = updatectx.KeyParams{
		Name:      dns.Fqdn(name),
		Algorithm: dns.HmacSHA256,
		Secret:    secret,
	}
	return nil
}

func handleAdd(env Env, arg string) error {
	ctx := env.Ctx()
	parsed, err := env.Facade().ParseFull(arg)
	if err != nil {
		return err
	}
	ctx.UpdateList = append(ctx.UpdateList, rrset.FromRR(parsed))
	return nil
}

func handleDel(env Env, arg string) error {
	ctx := env.Ctx()
	p, err := env.Facade().ParsePartial(arg, rr.NoDefault)
	if err != nil {
		return err
	}
	entry := delEntry(p)
	ctx.UpdateList = append(ctx.UpdateList, entry)
	return nil
}

// delEntry applies the `del` class/TTL rule: TTL always 0; class ANY when
// no rdata was given (delete the whole rrset), class NONE when rdata was
// given (delete that exact RR).
func delEntry(p rr.Partial) rrset.Entry {
	if p.RR == nil {
		return rrset.Placeholder(p.Owner, p.Type, dns.ClassANY, 0)
	}
	hdr := p.RR.Header()
	hdr.Class = dns.ClassNONE
	hdr.Ttl = 0
	return rrset.FromRR(p.RR)
}

func handleNxDomain(env Env, arg string) error {
	p, err := env.Facade().ParsePartial(arg, rr.NoDefault|rr.NameOnly)
	if err != nil {
		return err
	}
	entry := rrset.Placeholder(p.Owner, dns.TypeANY, dns.ClassNONE, 0)
	env.Ctx().PrereqList = append(env.Ctx().PrereqList, entry)
	return nil
}

func handleYxDomain(env Env, arg string) error {
	p, err := env.Facade().ParsePartial(arg, rr.NoDefault|rr.NameOnly)
	if err != nil {
		return err
	}
	entry := rrset.Placeholder(p.Owner, dns.TypeANY, dns.ClassANY, 0)
	env.Ctx().PrereqList = append(env.Ctx().PrereqList, entry)
	return nil
}

func handleNxRRset(env Env, arg string) error {
	p, err := env.Facade().ParsePartial(arg, rr.NoTTL)
	if err != nil {
		return err
	}
	entry := rrset.Placeholder(p.Owner, p.Type, dns.ClassNONE, 0)
	env.Ctx().PrereqList = append(env.Ctx().PrereqList, entry)
	return nil
}

func handleYxRRset(env Env, arg string) error {
	p, err := env.Facade().ParsePartial(arg, rr.NoTTL)
	if err != nil {
		return err
	}
	var entry rrset.Entry
	if p.RR != nil {
		hdr := p.RR.Header()
		hdr.Class = dns.ClassINET
		hdr.Ttl = 0
		entry = rrset.FromRR(p.RR)
	} else {
		entry = rrset.Placeholder(p.Owner, p.Type, dns.ClassANY, 0)
	}
	env.Ctx().PrereqList = append(env.Ctx().PrereqList, entry)
	return nil
}

func handlePrereq(env Env, arg string) error {
	name, residual, ok := dispatch.Find(prereqTable, arg)
	if !ok {
		return fmt.Errorf("%w: unrecognized prereq kind in %q", nserr.ErrParse, arg)
	}
	h := registry[name]
	return h(env, residual)
}

func handleUpdate(env Env, arg string) error {
	name, residual, ok := dispatch.Find(Table, arg)
	if !ok || (name != NameAdd && name != NameDel) {
		return fmt.Errorf("%w: unexpected token after 'update', allowed: add|del|delete", nserr.ErrParse)
	}
	return registry[name](env, residual)
}

func handleSend(env Env, _ string) error {
	return env.Send()
}

func handleShow(env Env, _ string) error {
	return env.Show()
}

func handleAnswerDirective(env Env, _ string) error {
	return env.Answer()
}

func handleNotSupported(_ Env, _ string) error {
	return nserr.ErrNotSupported
}

// handleAnswer is registered under NameAnswer; named distinctly from the
// Env.Answer method it calls to avoid confusion at the call site above.
func handleAnswer(env Env, arg string) error {
	return handleAnswerDirective(env, arg)
}
