// Package session ties the Update Context, RR Parser Facade, message
// builder, TSIG pipe, and transport driver together into the operations a
// directive handler can invoke: Send, Show, Answer, EnableDebug. Session
// implements directive.Env.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/metrics"
	"github.com/nsupdate-go/nsupdate/internal/msgbuilder"
	"github.com/nsupdate-go/nsupdate/internal/nserr"
	"github.com/nsupdate-go/nsupdate/internal/rr"
	"github.com/nsupdate-go/nsupdate/internal/transport"
	"github.com/nsupdate-go/nsupdate/internal/tsigpipe"
	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// Session is the top-level object a CLI entrypoint constructs: one per
// nsupdate invocation, reading directives from a single input stream.
type Session struct {
	ctx     *updatectx.Context
	facade  *rr.Facade
	log     *slog.Logger
	level   *slog.LevelVar
	out     io.Writer
	metrics *metrics.Recorder

	lastQueryID uint16
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithOutput directs Show/Answer's rendered text to w instead of os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// WithLogger overrides the default slog.Logger. The `debug` directive has
// no effect on a logger supplied this way, since EnableDebug only controls
// the level of the handler New() builds itself.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithMetrics attaches a Recorder; send outcomes, retries, TSIG failures and
// reply rcodes are counted against it when set. Session does not record
// directive outcomes.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Session) { s.metrics = m }
}

// New builds a Session over a fresh Context, applying opts. Absent
// WithLogger, it builds a JSON handler over stderr whose level the `debug`
// directive can raise at runtime through EnableDebug.
func New(opts ...Option) *Session {
	ctx := updatectx.New()
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	s := &Session{
		ctx:   ctx,
		log:   slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
		level: level,
	}
	for _, o := range opts {
		o(s)
	}
	s.facade = &rr.Facade{
		Origin:       ctx.Origin,
		DefaultClass: ctx.DefaultClass,
		DefaultTTL:   ctx.DefaultTTL,
		Log:          s.log,
	}
	return s
}

// Ctx implements directive.Env.
func (s *Session) Ctx() *updatectx.Context { return s.ctx }

// Logger implements directive.Env.
func (s *Session) Logger() *slog.Logger { return s.log }

// Facade implements directive.Env. The facade's defaulting fields are
// refreshed from the context before every parse, since `origin`/`class`/
// `ttl` directives mutate the context after the Session and facade were
// constructed.
func (s *Session) Facade() *rr.Facade {
	s.facade.Origin = s.ctx.Origin
	s.facade.DefaultClass = s.ctx.DefaultClass
	s.facade.DefaultTTL = s.ctx.DefaultTTL
	return s.facade
}

// EnableDebug implements directive.Env by raising the logger's level to
// Debug. It has no effect when a logger was supplied via WithLogger, since
// that logger's handler may not share New()'s LevelVar.
func (s *Session) EnableDebug() {
	s.ctx.Debug = true
	if s.level != nil {
		s.level.Set(slog.LevelDebug)
	}
}

// Show renders a preview of the pending query without assigning it a fresh
// header ID or transmitting it (SPEC_FULL.md §9, Open Question 2: repeated
// `show` calls are idempotent and side-effect-free on the transaction ID).
func (s *Session) Show() error {
	msg, err := msgbuilder.Build(s.ctx)
	if err != nil {
		return err
	}
	s.ctx.Query = msg
	s.writeln(msg.String())
	return nil
}

// Answer renders the last received reply, or reports that none exists yet.
func (s *Session) Answer() error {
	if s.ctx.Answer == nil {
		return fmt.Errorf("%w: no answer received yet", nserr.ErrInvalidArgument)
	}
	s.writeln(s.ctx.Answer.String())
	return nil
}

// Send builds the pending query, assigns it a fresh transaction ID, signs
// it if a TSIG key is configured, transmits it with retry, verifies the
// reply's TSIG, and clears the prerequisite/update lists once a reply has
// been received and its TSIG verified, whatever its rcode (SPEC_FULL.md §3,
// Open Question 3: a transport failure or a TSIG verification failure
// preserves the pending lists so a retry resubmits the same update). The
// reply's rcode name is printed in both the verified and the TSIG-failure
// case.
func (s *Session) Send() error {
	msg, err := msgbuilder.Build(s.ctx)
	if err != nil {
		s.record("", false)
		return err
	}
	msg.Id = dns.Id()
	s.lastQueryID = msg.Id
	s.ctx.Query = msg

	wire, requestMAC, err := tsigpipe.Sign(msg, s.ctx.Key)
	if err != nil {
		s.record("", false)
		return err
	}

	reply, replyWire, retries, err := transport.Send(context.Background(), s.ctx, msg, wire)
	s.recordRetries(retries)
	if err != nil {
		s.record("", false)
		return err
	}

	if err := tsigpipe.Verify(replyWire, s.ctx.Key, requestMAC); err != nil {
		s.recordTSIGFailure()
		s.record(dns.RcodeToString[reply.Rcode], false)
		s.writeln(dns.RcodeToString[reply.Rcode])
		return err
	}

	s.ctx.Answer = reply
	s.record(dns.RcodeToString[reply.Rcode], true)
	s.writeln(dns.RcodeToString[reply.Rcode])
	if reply.Rcode != dns.RcodeSuccess {
		s.log.Warn("server replied with non-success rcode", "rcode", dns.RcodeToString[reply.Rcode])
	}
	s.ctx.Reset()
	return nil
}

func (s *Session) record(rcode string, ok bool) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	s.metrics.ObserveSend(outcome)
	if rcode != "" {
		s.metrics.ObserveReply(rcode)
	}
}

func (s *Session) recordRetries(retries int) {
	if s.metrics == nil {
		return
	}
	for i := 0; i < retries; i++ {
		s.metrics.ObserveRetry()
	}
}

func (s *Session) recordTSIGFailure() {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTSIGFailure()
}

func (s *Session) writeln(text string) {
	if s.out == nil {
		return
	}
	fmt.Fprintln(s.out, text)
}
