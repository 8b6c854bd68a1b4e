// Package tsigpipe signs and verifies DNS messages with RFC 8945 TSIG,
// wrapping github.com/miekg/dns's TsigGenerate/TsigVerify. It plays the
// "transaction signature" collaborator from SPEC_FULL.md §4.6.
package tsigpipe

import (
	"fmt"
	"time"

	"github.com/miekg/dns"

	"github.com/nsupdate-go/nsupdate/internal/nserr"
	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// fudge is the TSIG clock-skew tolerance, in seconds, applied to every
// signed message — matching the original nsupdate's fixed default.
const fudge = 300

// Sign attaches a TSIG record to msg and returns the signed wire bytes plus
// the MAC, for use verifying the corresponding reply's TSIG. If key is
// empty, msg is packed unsigned and mac is "".
func Sign(msg *dns.Msg, key updatectx.KeyParams) (wire []byte, mac string, err error) {
	if key.Empty() {
		wire, err = msg.Pack()
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", nserr.ErrBuild, err)
		}
		return wire, "", nil
	}

	msg.SetTsig(key.Name, key.Algorithm, fudge, time.Now().Unix())
	wire, mac, err = dns.TsigGenerate(msg, key.Secret, "", false)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", nserr.ErrTSIG, err)
	}
	return wire, mac, nil
}

// Verify checks a reply's TSIG record against key and the MAC produced
// while signing the original query. A reply received for an unsigned query
// is accepted unconditionally: TSIG is opt-in per key, not something the
// server can be made to retroactively require.
func Verify(wire []byte, key updatectx.KeyParams, requestMAC string) error {
	if key.Empty() {
		return nil
	}
	if err := dns.TsigVerify(wire, key.Secret, requestMAC, false); err != nil {
		return fmt.Errorf("%w: %v", nserr.ErrTSIG, err)
	}
	return nil
}
