package dispatch

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeEmptyNoerrorBecomesNXDomain(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("empty.test.", dns.TypeA)

	resp := Finalize(req, nil, nil, nil, dns.RcodeSuccess)
	assert.Equal(t, dns.RcodeNameError, resp.Rcode)
}

func TestFinalizeNonEmptyNoerrorIsUnchanged(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("present.test.", dns.TypeA)

	rr, err := dns.NewRR("present.test. 0 IN A 1.2.3.4")
	require.NoError(t, err)

	resp := Finalize(req, []dns.RR{rr}, nil, nil, dns.RcodeSuccess)
	assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
	assert.Len(t, resp.Answer, 1)
}

func TestFinalizePreservesNonSuccessRcodeEvenIfAnswerEmpty(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("broken.test.", dns.TypeA)

	resp := Finalize(req, nil, nil, nil, dns.RcodeServerFailure)
	assert.Equal(t, dns.RcodeServerFailure, resp.Rcode)
}

func TestFinalizeEchoesRequestID(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("id.test.", dns.TypeA)
	req.Id = 9001

	resp := Finalize(req, nil, nil, nil, dns.RcodeNameError)
	assert.Equal(t, req.Id, resp.Id)
	assert.True(t, resp.Response)
}

func TestServerFailureResponse(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("servfail.test.", dns.TypeA)

	resp := ServerFailure(req)
	assert.Equal(t, dns.RcodeServerFailure, resp.Rcode)
	assert.Empty(t, resp.Answer)
}
