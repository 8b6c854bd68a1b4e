package msgbuilder

import (
	"errors"
	"testing"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/nserr"
	"github.com/nsupdate-go/nsupdate/internal/rrset"
	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

func TestBuild_QuestionIsSOA(t *testing.T) {
	ctx := updatectx.New()
	ctx.Zone = "example.com."

	msg, err := Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(msg.Question) != 1 {
		t.Fatalf("Question has %d entries, want 1", len(msg.Question))
	}
	q := msg.Question[0]
	if q.Qtype != dns.TypeSOA {
		t.Errorf("Qtype = %d, want SOA", q.Qtype)
	}
	if q.Name != "example.com." {
		t.Errorf("Qname = %q, want example.com.", q.Name)
	}
}

func TestBuild_FallsBackToOrigin(t *testing.T) {
	ctx := updatectx.New()
	ctx.Origin = "example.org."

	msg, err := Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if msg.Question[0].Name != "example.org." {
		t.Errorf("Qname = %q, want origin example.org.", msg.Question[0].Name)
	}
}

func TestBuild_PopulatesAnswerAndNs(t *testing.T) {
	ctx := updatectx.New()
	ctx.Zone = "example.com."
	ctx.PrereqList = []rrset.Entry{rrset.Placeholder("host.example.com.", dns.TypeANY, dns.ClassNONE, 0)}
	ctx.UpdateList = []rrset.Entry{rrset.Placeholder("host.example.com.", dns.TypeA, dns.ClassANY, 0)}

	msg, err := Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(msg.Answer) != 1 {
		t.Errorf("Answer has %d entries, want 1 (prerequisites)", len(msg.Answer))
	}
	if len(msg.Ns) != 1 {
		t.Errorf("Ns has %d entries, want 1 (updates)", len(msg.Ns))
	}
	if len(msg.Extra) != 0 {
		t.Errorf("Extra has %d entries, want 0", len(msg.Extra))
	}
}

func TestBuild_NoZoneOrOriginFails(t *testing.T) {
	ctx := updatectx.New()
	ctx.Origin = ""

	_, err := Build(ctx)
	if !errors.Is(err, nserr.ErrBuild) {
		t.Fatalf("err = %v, want nserr.ErrBuild", err)
	}
}
