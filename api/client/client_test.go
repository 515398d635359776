package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/prodeposit-dapp/api"
	"github.com/vocdoni/prodeposit-dapp/types"
)

// dropServer answers the ping endpoint and drops the connection of any other
// request after reading it, counting the attempts.
func dropServer(c *qt.C) (*httptest.Server, *atomic.Int64) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == api.PingEndpoint {
			w.WriteHeader(http.StatusOK)
			return
		}
		attempts.Add(1)
		if conn, _, err := http.NewResponseController(w).Hijack(); err == nil {
			_ = conn.Close()
		}
	}))
	c.Cleanup(srv.Close)
	return srv, &attempts
}

func TestPostIsSentOnce(t *testing.T) {
	c := qt.New(t)
	srv, attempts := dropServer(c)
	cli, err := New(srv.URL)
	c.Assert(err, qt.IsNil)

	_, err = cli.Start(types.ActionDeposit, "1")
	c.Assert(err, qt.IsNotNil)
	c.Assert(attempts.Load(), qt.Equals, int64(1))
}

func TestIdempotentRequestsAreRetried(t *testing.T) {
	c := qt.New(t)
	srv, attempts := dropServer(c)
	cli, err := New(srv.URL)
	c.Assert(err, qt.IsNil)
	cli.SetRetries(2)

	_, err = cli.State()
	c.Assert(err, qt.IsNotNil)
	c.Assert(attempts.Load(), qt.Equals, int64(2))

	_, err = cli.SetInput(types.ActionDeposit, "1")
	c.Assert(err, qt.IsNotNil)
	c.Assert(attempts.Load(), qt.Equals, int64(4))
}

func TestErrorFrom(t *testing.T) {
	c := qt.New(t)

	err := error(errorFrom(http.StatusConflict, []byte(`{"error":"another action is in progress","code":40013}`+"\n")))
	var apiErr *Error
	c.Assert(errors.As(err, &apiErr), qt.IsTrue)
	c.Assert(apiErr.HTTPStatus, qt.Equals, http.StatusConflict)
	c.Assert(apiErr.Code, qt.Equals, 40013)
	c.Assert(err, qt.ErrorMatches, "API error 40013: another action is in progress")

	err = errorFrom(http.StatusBadGateway, []byte("bad gateway\n"))
	c.Assert(err, qt.ErrorMatches, `API error: 502 \(bad gateway\)`)
}
