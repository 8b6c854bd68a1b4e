package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// startFakeServer runs a UDP DNS server with the given handler on an
// ephemeral loopback port and returns its address; the server is shut down
// by t.Cleanup.
func startFakeServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestSend_SuccessfulExchange(t *testing.T) {
	addr := startFakeServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.Rcode = dns.RcodeSuccess
		w.WriteMsg(m)
	})

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}

	ctx := updatectx.New()
	ctx.Server = &updatectx.Endpoint{Address: host, Service: port}
	ctx.Wait = 1
	ctx.Retries = 0

	query := new(dns.Msg)
	query.SetUpdate("example.com.")
	wire, err := query.Pack()
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	reply, _, retries, err := Send(context.Background(), ctx, query, wire)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Rcode != dns.RcodeSuccess {
		t.Errorf("Rcode = %v, want NOERROR", reply.Rcode)
	}
	if retries != 0 {
		t.Errorf("retries = %d, want 0 for a first-attempt success", retries)
	}
}

func TestDialerFor_ResolvesLocalAddrAgainstDialedNetwork(t *testing.T) {
	ctx := updatectx.New()
	ctx.Srcif = &updatectx.Endpoint{Address: "127.0.0.1"}

	udpDialer, err := dialerFor(ctx, "udp")
	if err != nil {
		t.Fatalf("dialerFor(udp): %v", err)
	}
	if _, ok := udpDialer.LocalAddr.(*net.UDPAddr); !ok {
		t.Errorf("LocalAddr type = %T, want *net.UDPAddr for a udp dial", udpDialer.LocalAddr)
	}

	tcpDialer, err := dialerFor(ctx, "tcp")
	if err != nil {
		t.Fatalf("dialerFor(tcp): %v", err)
	}
	if _, ok := tcpDialer.LocalAddr.(*net.TCPAddr); !ok {
		t.Errorf("LocalAddr type = %T, want *net.TCPAddr for a tcp dial", tcpDialer.LocalAddr)
	}
}

func TestSend_NoServerConfiguredFails(t *testing.T) {
	ctx := updatectx.New()
	query := new(dns.Msg)
	query.SetUpdate("example.com.")
	wire, _ := query.Pack()

	if _, _, _, err := Send(context.Background(), ctx, query, wire); err == nil {
		t.Fatal("expected an error with no server configured")
	}
}

// startDualFakeServer runs UDP and TCP DNS servers bound to the same port,
// recording which protocol each query arrived over.
func startDualFakeServer(t *testing.T) (addr string, sawTCP *bool) {
	t.Helper()
	sawTCP = new(bool)
	reply := func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.Rcode = dns.RcodeSuccess
		w.WriteMsg(m)
	}

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	_, port, _ := net.SplitHostPort(pc.LocalAddr().String())

	ln, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	udpSrv := &dns.Server{PacketConn: pc, Handler: dns.HandlerFunc(reply)}
	tcpSrv := &dns.Server{Listener: ln, Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		*sawTCP = true
		reply(w, r)
	})}
	go udpSrv.ActivateAndServe()
	go tcpSrv.ActivateAndServe()
	t.Cleanup(func() { udpSrv.Shutdown(); tcpSrv.Shutdown() })
	return pc.LocalAddr().String(), sawTCP
}

func TestSend_OversizedQueryPrefersTCP(t *testing.T) {
	addr, sawTCP := startDualFakeServer(t)
	host, port, _ := net.SplitHostPort(addr)

	ctx := updatectx.New()
	ctx.Server = &updatectx.Endpoint{Address: host, Service: port}
	ctx.Wait = 1
	ctx.Retries = 0

	query := new(dns.Msg)
	query.SetUpdate("example.com.")
	// Pad the update section past maxUDPPayload with filler TXT records.
	for i := 0; i < 40; i++ {
		rr, err := dns.NewRR("pad" + string(rune('a'+i%26)) + ".example.com. 0 TXT \"0123456789012345678901234567890123456789\"")
		if err != nil {
			t.Fatalf("NewRR: %v", err)
		}
		query.Ns = append(query.Ns, rr)
	}
	wire, err := query.Pack()
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(wire) <= maxUDPPayload {
		t.Fatalf("test fixture too small: %d bytes, want > %d", len(wire), maxUDPPayload)
	}

	if _, _, _, err := Send(context.Background(), ctx, query, wire); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !*sawTCP {
		t.Error("an oversized query must be sent over TCP from the start, not just on truncation")
	}
}

func TestSend_RefusedServerExhaustsRetries(t *testing.T) {
	ctx := updatectx.New()
	ctx.Server = &updatectx.Endpoint{Address: "127.0.0.1", Service: "1"} // nothing listening
	ctx.Wait = 1
	ctx.Retries = 1

	query := new(dns.Msg)
	query.SetUpdate("example.com.")
	wire, _ := query.Pack()

	start := time.Now()
	_, _, retries, err := Send(context.Background(), ctx, query, wire)
	if err == nil {
		t.Fatal("expected an error against an unreachable server")
	}
	if retries != ctx.Retries {
		t.Errorf("retries = %d, want %d (the configured retry budget exhausted)", retries, ctx.Retries)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("Send took suspiciously long for a connection-refused case")
	}
}
