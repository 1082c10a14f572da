package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/maspithik/angkringan/internal/core/domain"
)

// TabRef names the tab an RPC acts on. AccessToken is required once the
// device is signed in.
type TabRef struct {
	DeviceID    string `json:"device_id"`
	TabID       string `json:"tab_id"`
	AccessToken string `json:"access_token,omitempty"`
}

type AddToCartRequest struct {
	Tab        TabRef `json:"tab"`
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type CartReply struct {
	Items     domain.Cart `json:"items"`
	Total     int64       `json:"total"`
	ItemCount int         `json:"item_count"`
	Degraded  bool        `json:"degraded,omitempty"`
}

type CheckoutReply struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	OrderID     string `json:"order_id,omitempty"`
	TotalAmount int64  `json:"total_amount,omitempty"`
}

// TabSnapshot is pushed by WatchTab whenever the cart or the unread
// notifications change.
type TabSnapshot struct {
	Cart          CartReply             `json:"cart"`
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

type StorefrontServer interface {
	GetCart(context.Context, *TabRef) (*CartReply, error)
	AddToCart(context.Context, *AddToCartRequest) (*CartReply, error)
	Checkout(context.Context, *TabRef) (*CheckoutReply, error)
	WatchTab(*TabRef, grpc.ServerStreamingServer[TabSnapshot]) error
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: "angkringan.Storefront",
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCart", Handler: getCartHandler},
		{MethodName: "AddToCart", Handler: addToCartHandler},
		{MethodName: "Checkout", Handler: checkoutHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchTab", Handler: watchTabHandler, ServerStreams: true},
	},
	Metadata: "angkringan/storefront",
}

func getCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TabRef)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorefrontServer).GetCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/angkringan.Storefront/GetCart"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StorefrontServer).GetCart(ctx, req.(*TabRef))
	})
}

func addToCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddToCartRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorefrontServer).AddToCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/angkringan.Storefront/AddToCart"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StorefrontServer).AddToCart(ctx, req.(*AddToCartRequest))
	})
}

func checkoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TabRef)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorefrontServer).Checkout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/angkringan.Storefront/Checkout"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StorefrontServer).Checkout(ctx, req.(*TabRef))
	})
}

func watchTabHandler(srv any, stream grpc.ServerStream) error {
	in := new(TabRef)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StorefrontServer).WatchTab(in, &grpc.GenericServerStream[TabRef, TabSnapshot]{ServerStream: stream})
}

// StorefrontClient calls the storefront RPCs with the JSON codec.
type StorefrontClient struct {
	cc grpc.ClientConnInterface
}

func NewStorefrontClient(cc grpc.ClientConnInterface) *StorefrontClient {
	return &StorefrontClient{cc: cc}
}

func (c *StorefrontClient) GetCart(ctx context.Context, in *TabRef, opts ...grpc.CallOption) (*CartReply, error) {
	out := new(CartReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/angkringan.Storefront/GetCart", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) AddToCart(ctx context.Context, in *AddToCartRequest, opts ...grpc.CallOption) (*CartReply, error) {
	out := new(CartReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/angkringan.Storefront/AddToCart", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) Checkout(ctx context.Context, in *TabRef, opts ...grpc.CallOption) (*CheckoutReply, error) {
	out := new(CheckoutReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/angkringan.Storefront/Checkout", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) WatchTab(ctx context.Context, in *TabRef, opts ...grpc.CallOption) (grpc.ServerStreamingClient[TabSnapshot], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &storefrontServiceDesc.Streams[0], "/angkringan.Storefront/WatchTab", opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[TabRef, TabSnapshot]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
