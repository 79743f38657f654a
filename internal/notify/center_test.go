package notify

import (
	"testing"
	"time"

	"github.com/fjod/sillage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_InsertionOrder(t *testing.T) {
	c := New()
	defer c.Close()

	a := c.Success("first")
	b := c.Error("second")
	d := c.Warning("third")

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, []int64{a, b, d}, []int64{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, domain.KindSuccess, list[0].Kind)
	assert.Equal(t, domain.KindError, list[1].Kind)
	assert.Equal(t, domain.KindWarning, list[2].Kind)
	assert.Less(t, a, b)
}

func TestNotify_AutoDismiss(t *testing.T) {
	c := New()
	defer c.Close()

	short := c.Notify("short", domain.KindInfo, 20*time.Millisecond)
	long := c.Notify("long", domain.KindInfo, time.Hour)

	require.Eventually(t, func() bool {
		return len(c.List()) == 1
	}, time.Second, 5*time.Millisecond)

	list := c.List()
	assert.Equal(t, long, list[0].ID)
	assert.NotEqual(t, short, list[0].ID)
}

func TestNotify_ZeroDurationPersists(t *testing.T) {
	c := New()
	defer c.Close()

	id := c.Notify("sticky", domain.KindWarning, 0)
	c.Notify("negative", domain.KindWarning, -time.Second)

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, c.List(), 2)

	assert.True(t, c.Dismiss(id))
	assert.Len(t, c.List(), 1)
}

func TestDismiss_IndependentOfOthers(t *testing.T) {
	c := New()
	defer c.Close()

	a := c.Info("a")
	b := c.Info("b")
	d := c.Info("c")

	assert.True(t, c.Dismiss(b))
	assert.False(t, c.Dismiss(b))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0].ID)
	assert.Equal(t, d, list[1].ID)
}

func TestNotify_UnknownKindFallsBackToInfo(t *testing.T) {
	c := New()
	defer c.Close()

	c.Notify("hello", domain.NotificationKind("loud"), 0)
	assert.Equal(t, domain.KindInfo, c.List()[0].Kind)
}

func TestClose_StopsTimers(t *testing.T) {
	c := New()
	c.Notify("a", domain.KindInfo, 50*time.Millisecond)
	c.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, c.List(), 1)

	c.Notify("b", domain.KindInfo, 10*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Len(t, c.List(), 2)
}
