// Package storefront composes the per-session stores and routes command
// results to the notification center the way the shop pages do.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/sillage/internal/cart"
	"github.com/fjod/sillage/internal/checkout"
	"github.com/fjod/sillage/internal/domain"
	"github.com/fjod/sillage/internal/events"
	"github.com/fjod/sillage/internal/notify"
	"github.com/fjod/sillage/internal/orders"
	"github.com/fjod/sillage/internal/storage"
	"github.com/fjod/sillage/internal/wishlist"
	"go.uber.org/zap"
)

var ErrSizeNotFound = errors.New("size not found")

const (
	msgEnterTrackingCode = "Please enter tracking code"
	msgEnterPhoneDigits  = "Please enter last 4 digits of phone number"
	msgTrackFailed       = "Failed to track order"
)

// InputError is a user-correctable input problem.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type OrderBackend interface {
	checkout.OrderCreator
	TrackOrder(ctx context.Context, trackingCode, phoneLastDigits string) (*domain.TrackedOrder, error)
}

// Deps are shared by every session.
type Deps struct {
	Storage   storage.Store
	Catalog   Catalog
	Orders    OrderBackend
	Publisher events.Publisher
	Logger    *zap.Logger
	// Pricing defaults to domain.DefaultPricing when nil.
	Pricing            *domain.Pricing
	ClearCartOnSuccess bool
}

// Storefront is one browsing session: its cart, wishlist, notifications and
// checkout form.
type Storefront struct {
	SessionID     string
	Cart          *cart.Store
	Wishlist      *wishlist.Store
	Notifications *notify.Center
	Checkout      *checkout.Flow

	catalog Catalog
	orders  OrderBackend
	logger  *zap.Logger
}

func New(ctx context.Context, sessionID string, deps Deps) *Storefront {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", sessionID))
	pricing := domain.DefaultPricing()
	if deps.Pricing != nil {
		pricing = *deps.Pricing
	}
	if deps.Storage == nil {
		deps.Storage = storage.NewMemoryStore()
	}

	st := storage.Namespace(deps.Storage, "session:"+sessionID)
	pub := events.ForSession(deps.Publisher, sessionID)

	c := cart.New(ctx, st,
		cart.WithPricing(pricing),
		cart.WithPublisher(pub),
		cart.WithLogger(logger))
	w := wishlist.New(ctx, st,
		wishlist.WithPublisher(pub),
		wishlist.WithLogger(logger))
	n := notify.New()
	flow := checkout.New(deps.Orders, c, n,
		checkout.WithClearCartOnSuccess(deps.ClearCartOnSuccess),
		checkout.WithPublisher(pub),
		checkout.WithLogger(logger))

	return &Storefront{
		SessionID:     sessionID,
		Cart:          c,
		Wishlist:      w,
		Notifications: n,
		Checkout:      flow,
		catalog:       deps.Catalog,
		orders:        deps.Orders,
		logger:        logger,
	}
}

func (s *Storefront) announce(res cart.Result) cart.Result {
	if res.Message == "" {
		return res
	}
	if res.Success() {
		s.Notifications.Success(res.Message)
	} else {
		s.Notifications.Error(res.Message)
	}
	return res
}

// AddToCart resolves the product from the catalog and adds it. An empty
// sizeID means no size was picked.
func (s *Storefront) AddToCart(ctx context.Context, productID, sizeID string, quantity int) (cart.Result, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return cart.Result{}, fmt.Errorf("resolve product %s: %w", productID, err)
	}

	var size *domain.Size
	if sizeID != "" {
		found, ok := p.FindSize(sizeID)
		if !ok {
			return cart.Result{}, fmt.Errorf("%w: %s/%s", ErrSizeNotFound, productID, sizeID)
		}
		size = &found
	}
	return s.announce(s.Cart.AddItem(ctx, *p, size, quantity)), nil
}

func (s *Storefront) UpdateQuantity(ctx context.Context, lineItemID string, delta int) cart.Result {
	return s.announce(s.Cart.UpdateQuantity(ctx, lineItemID, delta))
}

func (s *Storefront) RemoveFromCart(ctx context.Context, lineItemID string) cart.Result {
	return s.announce(s.Cart.RemoveItem(ctx, lineItemID))
}

func (s *Storefront) ClearCart(ctx context.Context) cart.Result {
	return s.announce(s.Cart.Clear(ctx))
}

// ToggleWishlist flips membership of a catalog product.
func (s *Storefront) ToggleWishlist(ctx context.Context, productID string) (wishlist.Result, error) {
	if s.Wishlist.IsMember(productID) {
		res := s.Wishlist.Remove(ctx, productID)
		s.Notifications.Success(res.Message)
		return res, nil
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return wishlist.Result{}, fmt.Errorf("resolve product %s: %w", productID, err)
	}
	res := s.Wishlist.Add(ctx, *p)
	s.Notifications.Success(res.Message)
	return res, nil
}

func (s *Storefront) RemoveFromWishlist(ctx context.Context, productID string) wishlist.Result {
	res := s.Wishlist.Remove(ctx, productID)
	s.Notifications.Success(res.Message)
	return res
}

func (s *Storefront) ClearWishlist(ctx context.Context) wishlist.Result {
	res := s.Wishlist.Clear(ctx)
	s.Notifications.Success(res.Message)
	return res
}

// TrackOrder looks an order up by tracking code and the last four digits of
// the phone number used to place it.
func (s *Storefront) TrackOrder(ctx context.Context, trackingCode, phoneLastDigits string) (*domain.TrackedOrder, error) {
	code := orders.NormalizeTrackingCode(trackingCode)
	digits := strings.TrimSpace(phoneLastDigits)

	if code == "" {
		s.Notifications.Error(msgEnterTrackingCode)
		return nil, &InputError{Field: "trackingCode", Message: msgEnterTrackingCode}
	}
	if len(digits) != 4 {
		s.Notifications.Error(msgEnterPhoneDigits)
		return nil, &InputError{Field: "phoneLastDigits", Message: msgEnterPhoneDigits}
	}

	order, err := s.orders.TrackOrder(ctx, code, digits)
	if err != nil {
		s.logger.Warn("order tracking failed", zap.String("tracking_code", code), zap.Error(err))
		s.Notifications.Error(orders.Message(err, msgTrackFailed))
		return nil, fmt.Errorf("track order %s: %w", code, err)
	}
	return order, nil
}

// Close stops pending notification timers.
func (s *Storefront) Close() {
	s.Notifications.Close()
}
