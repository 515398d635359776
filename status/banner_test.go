package status

import (
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/prodeposit-dapp/types"
)

func TestBannerExpires(t *testing.T) {
	c := qt.New(t)

	var changes atomic.Int32
	b := NewBanner(50*time.Millisecond, func() { changes.Add(1) })
	c.Assert(b.Current(), qt.IsNil)

	b.Post(types.SeverityError, "insufficient balance")
	msg := b.Current()
	c.Assert(msg, qt.Not(qt.IsNil))
	c.Assert(msg.Kind, qt.Equals, types.SeverityError)
	c.Assert(msg.Text, qt.Equals, "insufficient balance")

	time.Sleep(200 * time.Millisecond)
	c.Assert(b.Current(), qt.IsNil)
	c.Assert(changes.Load(), qt.Equals, int32(2))
}

func TestBannerSupersede(t *testing.T) {
	c := qt.New(t)

	b := NewBanner(150*time.Millisecond, nil)
	b.Post(types.SeveritySuccess, "first")
	time.Sleep(100 * time.Millisecond)

	// the second message restarts the expiry and the first timer must not
	// clear it when it fires
	b.Post(types.SeverityWarning, "second")
	time.Sleep(100 * time.Millisecond)
	msg := b.Current()
	c.Assert(msg, qt.Not(qt.IsNil))
	c.Assert(msg.Text, qt.Equals, "second")

	time.Sleep(200 * time.Millisecond)
	c.Assert(b.Current(), qt.IsNil)
}

func TestBannerClear(t *testing.T) {
	c := qt.New(t)

	var changes atomic.Int32
	b := NewBanner(time.Hour, func() { changes.Add(1) })
	b.Clear()
	c.Assert(changes.Load(), qt.Equals, int32(0))

	b.Post(types.SeveritySuccess, "data refreshed")
	b.Clear()
	c.Assert(b.Current(), qt.IsNil)
	c.Assert(changes.Load(), qt.Equals, int32(2))
}

func TestBannerDefaultTTL(t *testing.T) {
	c := qt.New(t)
	c.Assert(NewBanner(0, nil).ttl, qt.Equals, DefaultTTL)
}
