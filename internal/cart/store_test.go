package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/sillage/internal/domain"
	"github.com/fjod/sillage/internal/events"
	"github.com/fjod/sillage/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type failingStore struct {
	getErr error
	setErr error
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f *failingStore) Set(context.Context, string, []byte) error   { return f.setErr }
func (f *failingStore) Delete(context.Context, string) error        { return f.setErr }

func testProduct(id string, sizes ...domain.Size) domain.Product {
	return domain.Product{
		ID:     id,
		Name:   "Oud " + id,
		Brand:  "Maison",
		Images: []domain.Image{{URL: "https://cdn.example.com/" + id + ".jpg"}},
		Sizes:  sizes,
	}
}

func testSize(id string, price int64, stock int) domain.Size {
	return domain.Size{
		ID:          id,
		Size:        "50",
		Price:       decimal.NewFromInt(price),
		Stock:       stock,
		IsAvailable: true,
	}
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	return New(context.Background(), mem, opts...), mem
}

func TestAddItem_NewLine(t *testing.T) {
	s, _ := newTestStore(t)
	size := testSize("s1", 50, 10)

	res := s.AddItem(context.Background(), testProduct("p1", size), &size, 1)

	assert.True(t, res.Success())
	assert.Equal(t, OutcomeAdded, res.Outcome)
	assert.Equal(t, "Added to cart!", res.Message)
	item, ok := s.GetItem("p1", "s1")
	require.True(t, ok)
	assert.Equal(t, "p1-s1", item.ID)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, domain.DefaultUnit, item.Size.Unit)
}

func TestAddItem_MergeSameProductAndSize(t *testing.T) {
	s, _ := newTestStore(t)
	size := testSize("s1", 50, 10)
	p := testProduct("p1", size)
	ctx := context.Background()

	require.True(t, s.AddItem(ctx, p, &size, 1).Success())
	res := s.AddItem(ctx, p, &size, 3)

	assert.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, "Cart updated!", res.Message)
	require.Equal(t, 1, s.Len())
	item, _ := s.GetItem("p1", "s1")
	assert.Equal(t, 4, item.Quantity)

	totals := s.Totals()
	assert.True(t, decimal.NewFromInt(200).Equal(totals.Subtotal))
	assert.True(t, decimal.NewFromInt(40).Equal(totals.Discount))
	assert.True(t, decimal.NewFromInt(160).Equal(totals.SubtotalAfterDiscount))
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, decimal.NewFromInt(160).Equal(totals.Total))
	assert.Equal(t, 4, totals.ItemCount)
}

func TestAddItem_MergeRejectedPastStock(t *testing.T) {
	s, _ := newTestStore(t)
	size := testSize("s1", 50, 5)
	p := testProduct("p1", size)
	ctx := context.Background()

	require.True(t, s.AddItem(ctx, p, &size, 3).Success())
	res := s.AddItem(ctx, p, &size, 3)

	assert.False(t, res.Success())
	assert.Equal(t, OutcomeStockLimit, res.Outcome)
	assert.Equal(t, "Only 5 items available in stock", res.Message)
	item, _ := s.GetItem("p1", "s1")
	assert.Equal(t, 3, item.Quantity)
}

func TestAddItem_MergeAfterRestockRefreshesStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	low := testSize("s1", 50, 2)
	require.True(t, s.AddItem(ctx, testProduct("p1", low), &low, 2).Success())

	restocked := testSize("s1", 50, 10)
	res := s.AddItem(ctx, testProduct("p1", restocked), &restocked, 1)
	require.Equal(t, OutcomeMerged, res.Outcome)

	item, ok := s.GetItem("p1", "s1")
	require.True(t, ok)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, 10, item.Size.Stock)
	assert.LessOrEqual(t, item.Quantity, item.Size.Stock)

	res = s.UpdateQuantity(ctx, item.ID, 1)
	assert.Equal(t, OutcomeQuantityUpdated, res.Outcome)
	item, _ = s.GetItem("p1", "s1")
	assert.Equal(t, 4, item.Quantity)
}

func TestAddItem_Rejections(t *testing.T) {
	unavailable := testSize("s2", 50, 10)
	unavailable.IsAvailable = false
	small := testSize("s3", 50, 2)

	tests := []struct {
		name    string
		size    *domain.Size
		qty     int
		outcome Outcome
		message string
	}{
		{name: "no size", size: nil, qty: 1, outcome: OutcomeSizeRequired, message: "Please select a size"},
		{name: "unavailable", size: &unavailable, qty: 1, outcome: OutcomeOutOfStock, message: "This size is out of stock"},
		{name: "over stock", size: &small, qty: 3, outcome: OutcomeOutOfStock, message: "This size is out of stock"},
		{name: "zero quantity", size: &small, qty: 0, outcome: OutcomeInvalidQuantity, message: "Quantity must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			s, mem := newTestStore(t, WithPublisher(pub))

			res := s.AddItem(context.Background(), testProduct("p1"), tt.size, tt.qty)

			assert.False(t, res.Success())
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.message, res.Message)
			assert.Empty(t, s.Items())
			assert.Empty(t, pub.types())
			assert.Empty(t, mem.Keys())
		})
	}
}

func TestAddItem_SnapshotIsolatedFromCatalog(t *testing.T) {
	s, _ := newTestStore(t)
	size := testSize("s1", 50, 10)
	p := testProduct("p1", size)

	require.True(t, s.AddItem(context.Background(), p, &size, 1).Success())
	p.Name = "renamed"
	p.Images[0].URL = "changed"
	size.Price = decimal.NewFromInt(999)

	item, _ := s.GetItem("p1", "s1")
	assert.Equal(t, "Oud p1", item.Product.Name)
	assert.Equal(t, "https://cdn.example.com/p1.jpg", item.Product.Images[0].URL)
	assert.True(t, decimal.NewFromInt(50).Equal(item.Size.Price))
}

func TestAddItem_DistinctSizesAreDistinctLines(t *testing.T) {
	s, _ := newTestStore(t)
	a, b := testSize("s1", 50, 10), testSize("s2", 80, 10)
	p := testProduct("p1", a, b)
	ctx := context.Background()

	s.AddItem(ctx, p, &a, 1)
	s.AddItem(ctx, p, &b, 1)
	s.AddItem(ctx, p, &a, 1)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p1-s1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "p1-s2", items[1].ID)
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	size := testSize("s1", 50, 3)
	p := testProduct("p1", size)

	t.Run("floor is a no-op", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddItem(ctx, p, &size, 1)

		res := s.UpdateQuantity(ctx, "p1-s1", -1)

		assert.Equal(t, OutcomeUnchanged, res.Outcome)
		assert.False(t, res.Success())
		item, _ := s.GetItem("p1", "s1")
		assert.Equal(t, 1, item.Quantity)
	})

	t.Run("above stock", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddItem(ctx, p, &size, 3)

		res := s.UpdateQuantity(ctx, "p1-s1", 1)

		assert.Equal(t, OutcomeStockLimit, res.Outcome)
		assert.Equal(t, "Only 3 items available", res.Message)
		item, _ := s.GetItem("p1", "s1")
		assert.Equal(t, 3, item.Quantity)
	})

	t.Run("within bounds", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddItem(ctx, p, &size, 1)

		res := s.UpdateQuantity(ctx, "p1-s1", 2)

		assert.True(t, res.Success())
		assert.Equal(t, "Quantity updated", res.Message)
		item, _ := s.GetItem("p1", "s1")
		assert.Equal(t, 3, item.Quantity)
	})

	t.Run("unknown id", func(t *testing.T) {
		s, _ := newTestStore(t)

		res := s.UpdateQuantity(ctx, "missing", 1)

		assert.Equal(t, OutcomeItemNotFound, res.Outcome)
		assert.False(t, res.Success())
	})
}

func TestRemoveItem_Idempotent(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestStore(t, WithPublisher(pub))
	size := testSize("s1", 50, 3)
	ctx := context.Background()
	s.AddItem(ctx, testProduct("p1", size), &size, 1)

	first := s.RemoveItem(ctx, "p1-s1")
	second := s.RemoveItem(ctx, "p1-s1")

	assert.True(t, first.Success())
	assert.True(t, second.Success())
	assert.Equal(t, "Removed from cart", second.Message)
	assert.Empty(t, s.Items())
	assert.Equal(t, []string{events.TypeCartItemAdded, events.TypeCartItemRemoved}, pub.types())
}

func TestClear_DropsPersistedKey(t *testing.T) {
	s, mem := newTestStore(t)
	size := testSize("s1", 50, 3)
	ctx := context.Background()
	s.AddItem(ctx, testProduct("p1", size), &size, 1)
	require.Contains(t, mem.Keys(), StorageKey)

	res := s.Clear(ctx)

	assert.Equal(t, "Cart cleared", res.Message)
	assert.Empty(t, s.Items())
	assert.NotContains(t, mem.Keys(), StorageKey)
	assert.True(t, decimal.NewFromInt(15).Equal(s.Totals().Total))
}

func TestPersistence_RoundTrip(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	a, b := testSize("s1", 50, 10), testSize("s2", 120, 4)
	p := testProduct("p1", a, b)

	first := New(ctx, mem)
	first.AddItem(ctx, p, &a, 2)
	first.AddItem(ctx, p, &b, 1)
	first.UpdateQuantity(ctx, "p1-s2", 1)

	reloaded := New(ctx, mem)

	assert.Equal(t, first.Items(), reloaded.Items())
	assert.True(t, first.Totals().Total.Equal(reloaded.Totals().Total))
}

func TestLoad_MalformedStateIsEmpty(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, StorageKey, []byte("{not json")))

	core, logs := observer.New(zapcore.WarnLevel)
	s := New(ctx, mem, WithLogger(zap.New(core)))

	assert.Empty(t, s.Items())
	assert.Equal(t, 1, logs.FilterMessage("cart state unparseable, starting empty").Len())
}

func TestLoad_DropsInvalidLines(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	raw := `[
		{"_id":"a-1","size":{"_id":"1","stock":5},"quantity":2},
		{"_id":"a-1","size":{"_id":"1","stock":5},"quantity":1},
		{"_id":"b-1","size":{"_id":"1","stock":5},"quantity":0},
		{"_id":"c-1","size":{"_id":"1","stock":0},"quantity":1}
	]`
	require.NoError(t, mem.Set(ctx, StorageKey, []byte(raw)))

	s := New(ctx, mem)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "a-1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestLoad_ClampsQuantityToStock(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	raw := `[{"_id":"a-1","size":{"_id":"1","stock":3},"quantity":7}]`
	require.NoError(t, mem.Set(ctx, StorageKey, []byte(raw)))

	core, logs := observer.New(zapcore.WarnLevel)
	s := New(ctx, mem, WithLogger(zap.New(core)))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, logs.FilterMessage("cart line above stock, clamping").Len())
}

func TestPersistFailure_LoggedNotReturned(t *testing.T) {
	st := &failingStore{getErr: errors.New("disk gone"), setErr: errors.New("disk gone")}
	core, logs := observer.New(zapcore.WarnLevel)
	s := New(context.Background(), st, WithLogger(zap.New(core)))
	size := testSize("s1", 50, 3)

	res := s.AddItem(context.Background(), testProduct("p1", size), &size, 1)

	assert.True(t, res.Success())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, logs.FilterMessage("cart load failed, starting empty").Len())

	entries := logs.FilterMessage("cart persist failed").All()
	require.Len(t, entries, 1)
	err, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, err, "persistence save")
}

func TestPublishFailure_DoesNotAffectResult(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("kafka down")}
	s, _ := newTestStore(t, WithPublisher(pub))
	size := testSize("s1", 50, 3)

	res := s.AddItem(context.Background(), testProduct("p1", size), &size, 1)

	assert.True(t, res.Success())
	assert.Equal(t, []string{events.TypeCartItemAdded}, pub.types())
}

func TestWithPricing(t *testing.T) {
	pricing := domain.Pricing{
		DiscountRate:          decimal.Zero,
		FreeShippingThreshold: decimal.NewFromInt(1000),
		ShippingCost:          decimal.NewFromInt(30),
	}
	s, _ := newTestStore(t, WithPricing(pricing))
	size := testSize("s1", 50, 3)
	s.AddItem(context.Background(), testProduct("p1", size), &size, 2)

	assert.True(t, decimal.NewFromInt(130).Equal(s.Totals().Total))
}

func TestSnapshot_TotalsMatchItems(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	size := testSize("s1", 50, 10)
	p := testProduct("p1", size)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.AddItem(ctx, p, &size, 1)
			s.Clear(ctx)
		}
	}()

	for i := 0; i < 100; i++ {
		items, totals := s.Snapshot()
		qty := 0
		for _, item := range items {
			qty += item.Quantity
		}
		require.Equal(t, qty, totals.ItemCount)
	}
	wg.Wait()
}

func TestConcurrentAdds_KeepInvariants(t *testing.T) {
	s, _ := newTestStore(t)
	size := testSize("s1", 50, 10)
	p := testProduct("p1", size)

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(context.Background(), p, &size, 1)
		}()
	}
	wg.Wait()

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
}
