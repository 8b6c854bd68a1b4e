// Package transport drives the wire exchange for a signed UPDATE message:
// address resolution honoring Srcif/IPFamily, protocol selection
// (UDP-first with TCP fallback on truncation, or a pinned protocol), and
// retry with the configured wait between attempts.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/nserr"
	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// Send transmits the already-packed (and, if applicable, TSIG-signed) wire
// bytes of a query over the endpoint described by ctx, retrying up to
// ctx.Retries additional times (1+Retries attempts total) with ctx.Wait
// seconds between attempts. It returns the parsed reply, the reply's raw
// wire bytes (needed to verify the reply's own TSIG against the request
// MAC), and the number of retry attempts made, so a caller can feed that
// count to its own metrics without this package depending on them. UDP is
// tried first unless ctx.Protocol pins TCP or wire exceeds maxUDPPayload; a
// truncated UDP reply is retried once over TCP before counting against the
// retry budget. query is accepted alongside the already-packed wire bytes
// only to keep the call site symmetric with msgbuilder/tsigpipe's output;
// the bytes on the wire are always wire, not a re-pack of query.
func Send(goCtx context.Context, ctx *updatectx.Context, query *dns.Msg, wire []byte) (reply *dns.Msg, replyWire []byte, retries int, err error) {
	if ctx.Server == nil {
		return nil, nil, 0, fmt.Errorf("%w: no server configured", nserr.ErrInvalidArgument)
	}
	address := net.JoinHostPort(ctx.Server.Address, orDefault(ctx.Server.Service, updatectx.DefaultDNSPort))

	attempts := 1 + ctx.Retries
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			retries++
			select {
			case <-goCtx.Done():
				return nil, nil, retries, goCtx.Err()
			case <-time.After(time.Duration(ctx.Wait) * time.Second):
			}
		}

		reply, replyWire, lastErr = exchangeOnce(goCtx, ctx, address, wire)
		if lastErr == nil {
			return reply, replyWire, retries, nil
		}
	}
	return nil, nil, retries, fmt.Errorf("%w: %v", nserr.ErrConnectionRefused, lastErr)
}

// maxUDPPayload is the conventional UDP payload bound a plain (non-EDNS0)
// DNS message is held to; a query packed larger than this is sent over TCP
// from the start rather than risking a silent drop by a strict server.
const maxUDPPayload = 512

func exchangeOnce(goCtx context.Context, ctx *updatectx.Context, address string, wire []byte) (*dns.Msg, []byte, error) {
	network := "udp"
	if ctx.Protocol == updatectx.ProtocolTCP || len(wire) > maxUDPPayload {
		network = "tcp"
	}
	if network != "tcp" {
		network = withFamily(network, ctx.IPFamily)
		dialer, err := dialerFor(ctx, network)
		if err != nil {
			return nil, nil, err
		}
		reply, replyWire, err := exchangeVia(goCtx, dialer, network, address, wire)
		if err == nil && reply != nil && reply.Truncated {
			tcpNetwork := withFamily("tcp", ctx.IPFamily)
			tcpDialer, derr := dialerFor(ctx, tcpNetwork)
			if derr != nil {
				return nil, nil, derr
			}
			return exchangeVia(goCtx, tcpDialer, tcpNetwork, address, wire)
		}
		return reply, replyWire, err
	}
	network = withFamily(network, ctx.IPFamily)
	dialer, err := dialerFor(ctx, network)
	if err != nil {
		return nil, nil, err
	}
	return exchangeVia(goCtx, dialer, network, address, wire)
}

func exchangeVia(goCtx context.Context, dialer *net.Dialer, network, address string, wire []byte) (*dns.Msg, []byte, error) {
	conn, err := dialer.DialContext(goCtx, network, address)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", nserr.ErrConnectionRefused, err)
	}
	defer conn.Close()
	if dialer.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(dialer.Timeout))
	}

	dc := &dns.Conn{Conn: conn}
	if _, err := dc.Write(wire); err != nil {
		return nil, nil, err
	}
	reply, err := dc.ReadMsg()
	if err != nil {
		return nil, nil, err
	}
	replyWire, err := reply.Pack()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", nserr.ErrBuild, err)
	}
	return reply, replyWire, nil
}

// dialerFor builds a Dialer for the given network ("udp"/"udp4"/"udp6" or
// "tcp"/"tcp4"/"tcp6"), resolving Srcif's local bind address against that
// same network family: net.Dialer.LocalAddr must be a concrete type
// matching the dialed network (*net.UDPAddr for udp, *net.TCPAddr for tcp),
// so a `local` directive combined with a TCP exchange needs its own
// resolution rather than reusing a UDP-resolved address.
func dialerFor(ctx *updatectx.Context, network string) (*net.Dialer, error) {
	d := &net.Dialer{Timeout: time.Duration(ctx.Wait) * time.Second}
	if ctx.Srcif != nil && ctx.Srcif.Address != "" {
		laddr := net.JoinHostPort(ctx.Srcif.Address, orDefault(ctx.Srcif.Service, "0"))
		var (
			addr net.Addr
			err  error
		)
		if strings.HasPrefix(network, "tcp") {
			addr, err = net.ResolveTCPAddr(network, laddr)
		} else {
			addr, err = net.ResolveUDPAddr(network, laddr)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", nserr.ErrInvalidArgument, err)
		}
		d.LocalAddr = addr
	}
	return d, nil
}

func withFamily(network string, fam updatectx.IPFamily) string {
	switch fam {
	case updatectx.IPv4Only:
		return network + "4"
	case updatectx.IPv6Only:
		return network + "6"
	default:
		return network
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
