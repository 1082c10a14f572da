package handler

import (
	"context"
	"errors"
	"log"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/core/service"
	"github.com/maspithik/angkringan/internal/port"
)

type GRPCHandler struct {
	tabs       *service.TabRegistry
	storefront *service.StorefrontService
	checkout   *service.CheckoutService
	verifier   port.SessionVerifier
}

func NewGRPCHandler(tabs *service.TabRegistry, storefront *service.StorefrontService, checkout *service.CheckoutService, verifier port.SessionVerifier) *GRPCHandler {
	return &GRPCHandler{tabs: tabs, storefront: storefront, checkout: checkout, verifier: verifier}
}

func (h *GRPCHandler) openTab(ref *TabRef) (*service.Tab, error) {
	if ref.DeviceID == "" || ref.TabID == "" {
		return nil, status.Error(codes.InvalidArgument, "device_id and tab_id are required")
	}
	tab, err := h.tabs.Open(ref.DeviceID, ref.TabID)
	if errors.Is(err, service.ErrTabClosed) {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	if err != nil {
		log.Printf("grpc: open tab %s/%s: %v", ref.DeviceID, ref.TabID, err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if err := authorizeTab(h.verifier, tab, ref.AccessToken); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return tab, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *TabRef) (*CartReply, error) {
	tab, err := h.openTab(req)
	if err != nil {
		return nil, err
	}
	reply := cartReply(tab.Cart.Lines())
	reply.Degraded = tab.Cart.Degraded()
	return reply, nil
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *AddToCartRequest) (*CartReply, error) {
	tab, err := h.openTab(&req.Tab)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, status.Error(codes.InvalidArgument, domain.ErrInvalidQuantity.Error())
	}
	item, err := h.storefront.MenuItem(ctx, req.MenuItemID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, status.Errorf(codes.NotFound, "menu item %d not found", req.MenuItemID)
	}
	if err != nil {
		log.Printf("grpc: menu item %d: %v", req.MenuItemID, err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if err := tab.Cart.Add(ctx, item.CartLine(req.Quantity)); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	reply := cartReply(tab.Cart.Lines())
	reply.Degraded = tab.Cart.Degraded()
	return reply, nil
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *TabRef) (*CheckoutReply, error) {
	tab, err := h.openTab(req)
	if err != nil {
		return nil, err
	}
	receipt, err := h.checkout.Submit(ctx, tab.Session, tab.Cart)
	if err != nil {
		if errors.Is(err, service.ErrLoginRequired) {
			return &CheckoutReply{Success: false, Message: "login required"}, nil
		}
		if errors.Is(err, service.ErrEmptyCart) {
			return &CheckoutReply{Success: false, Message: "cart is empty"}, nil
		}
		return &CheckoutReply{Success: false, Message: "internal error"}, nil
	}
	return &CheckoutReply{
		Success:     true,
		Message:     "order placed successfully",
		OrderID:     receipt.OrderID,
		TotalAmount: receipt.TotalAmount,
	}, nil
}

// WatchTab sends a snapshot right away and then after every cart or
// notification change. Snapshots that pile up while the client is slow are
// coalesced into the latest one.
func (h *GRPCHandler) WatchTab(req *TabRef, stream grpc.ServerStreamingServer[TabSnapshot]) error {
	tab, err := h.openTab(req)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	snapshot := TabSnapshot{
		Cart:          *cartReply(tab.Cart.Lines()),
		Notifications: tab.Notifications.Unread(),
	}
	changed := make(chan struct{}, 1)
	signal := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	stopCart := tab.Cart.Subscribe(func(cart domain.Cart) {
		mu.Lock()
		snapshot.Cart = *cartReply(cart)
		mu.Unlock()
		signal()
	})
	defer stopCart()
	stopNotifications := tab.Notifications.Subscribe(func(list []domain.Notification) {
		mu.Lock()
		snapshot.Notifications = list
		mu.Unlock()
		signal()
	})
	defer stopNotifications()

	signal()
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			mu.Lock()
			out := snapshot
			mu.Unlock()
			out.UnreadCount = len(out.Notifications)
			if err := stream.Send(&out); err != nil {
				return err
			}
		}
	}
}

func cartReply(cart domain.Cart) *CartReply {
	return &CartReply{Items: cart, Total: cart.Total(), ItemCount: cart.ItemCount()}
}
