package directive

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/nserr"
	"github.com/nsupdate-go/nsupdate/internal/rr"
	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// fakeEnv is a minimal Env used to exercise handlers without a real
// session/transport stack.
type fakeEnv struct {
	ctx          *updatectx.Context
	facade       *rr.Facade
	sendCalled   bool
	showCalled   bool
	answerCalled bool
	debugEnabled bool
}

func newFakeEnv() *fakeEnv {
	ctx := updatectx.New()
	return &fakeEnv{
		ctx: ctx,
		facade: &rr.Facade{
			Origin:       ctx.Origin,
			DefaultClass: ctx.DefaultClass,
			DefaultTTL:   ctx.DefaultTTL,
		},
	}
}

func (e *fakeEnv) Ctx() *updatectx.Context { return e.ctx }
func (e *fakeEnv) Logger() *slog.Logger    { return slog.Default() }
func (e *fakeEnv) Facade() *rr.Facade      { return e.facade }
func (e *fakeEnv) Send() error             { e.sendCalled = true; return nil }
func (e *fakeEnv) Show() error             { e.showCalled = true; return nil }
func (e *fakeEnv) Answer() error           { e.answerCalled = true; return nil }
func (e *fakeEnv) EnableDebug()            { e.debugEnabled = true }

func TestDispatch_ServerAndZone(t *testing.T) {
	env := newFakeEnv()

	if _, err := Dispatch(env, "server ns1.example.com 5353"); err != nil {
		t.Fatalf("server: %v", err)
	}
	if env.ctx.Server.Address != "ns1.example.com" || env.ctx.Server.Service != "5353" {
		t.Errorf("Server = %+v, want ns1.example.com:5353", env.ctx.Server)
	}

	if _, err := Dispatch(env, "zone example.com"); err != nil {
		t.Fatalf("zone: %v", err)
	}
	if env.ctx.Zone != "example.com." {
		t.Errorf("Zone = %q, want example.com.", env.ctx.Zone)
	}
}

func TestDispatch_AddAndDel(t *testing.T) {
	env := newFakeEnv()

	if _, err := Dispatch(env, "add host.example.com. 300 A 192.0.2.1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(env.ctx.UpdateList) != 1 {
		t.Fatalf("UpdateList has %d entries, want 1", len(env.ctx.UpdateList))
	}

	if _, err := Dispatch(env, "del host.example.com. A 192.0.2.1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if len(env.ctx.UpdateList) != 2 {
		t.Fatalf("UpdateList has %d entries, want 2", len(env.ctx.UpdateList))
	}
	last := env.ctx.UpdateList[1]
	if last.Class() != dns.ClassNONE {
		t.Errorf("del-with-rdata class = %d, want NONE", last.Class())
	}
}

func TestDispatch_DelWholeRRset(t *testing.T) {
	env := newFakeEnv()
	if _, err := Dispatch(env, "del host.example.com. A"); err != nil {
		t.Fatalf("del: %v", err)
	}
	entry := env.ctx.UpdateList[0]
	if entry.Class() != dns.ClassANY {
		t.Errorf("del-whole-rrset class = %d, want ANY", entry.Class())
	}
	if entry.HasRdata() {
		t.Error("whole-rrset delete must carry no rdata")
	}
}

func TestDispatch_PrereqSubdispatch(t *testing.T) {
	env := newFakeEnv()
	if _, err := Dispatch(env, "prereq nxdomain host.example.com."); err != nil {
		t.Fatalf("prereq nxdomain: %v", err)
	}
	if len(env.ctx.PrereqList) != 1 {
		t.Fatalf("PrereqList has %d entries, want 1", len(env.ctx.PrereqList))
	}
	e := env.ctx.PrereqList[0]
	if e.Type() != dns.TypeANY || e.Class() != dns.ClassNONE {
		t.Errorf("nxdomain prereq = type %d class %d, want ANY/NONE", e.Type(), e.Class())
	}
}

func TestDispatch_UpdateSynonym(t *testing.T) {
	env := newFakeEnv()
	if _, err := Dispatch(env, "update add host.example.com. 300 A 192.0.2.1"); err != nil {
		t.Fatalf("update add: %v", err)
	}
	if len(env.ctx.UpdateList) != 1 {
		t.Fatalf("UpdateList has %d entries, want 1", len(env.ctx.UpdateList))
	}
}

func TestDispatch_SendShowAnswerDebug(t *testing.T) {
	env := newFakeEnv()
	for _, line := range []string{"send", "show", "answer", "debug"} {
		if _, err := Dispatch(env, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if !env.sendCalled || !env.showCalled || !env.answerCalled || !env.debugEnabled {
		t.Errorf("not all operations invoked: %+v", env)
	}
}

func TestDispatch_UnsupportedDirectives(t *testing.T) {
	env := newFakeEnv()
	for _, line := range []string{"gsstsig", "oldgsstsig", "realm example.REALM"} {
		_, err := Dispatch(env, line)
		if !errors.Is(err, nserr.ErrNotSupported) {
			t.Errorf("%s: err = %v, want ErrNotSupported", line, err)
		}
	}
}

func TestDispatch_UnrecognizedLine(t *testing.T) {
	env := newFakeEnv()
	matched, err := Dispatch(env, "frobnicate everything")
	if matched || err != nil {
		t.Errorf("Dispatch() = (%v, %v), want (false, nil)", matched, err)
	}
}

func TestDispatch_KeyWithoutSecretFails(t *testing.T) {
	env := newFakeEnv()
	_, err := Dispatch(env, "key mykey.")
	if !errors.Is(err, nserr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
