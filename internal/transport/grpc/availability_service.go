package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The availability API carries google.protobuf.Struct payloads so it can be
// served without generated stubs. Request: {"date": "YYYY-MM-DD"}.
// Response: {"date": ..., "slots": [{"hour", "minute", "available", "start"}]}.
const (
	AvailabilityServiceName = "schedula.v1.AvailabilityService"
	ListSlotsFullMethod     = "/" + AvailabilityServiceName + "/ListSlots"
)

type AvailabilityServiceServer interface {
	ListSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var AvailabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: AvailabilityServiceName,
	HandlerType: (*AvailabilityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSlots", Handler: listSlotsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "schedula/v1/availability.proto",
}

func RegisterAvailabilityServiceServer(s grpc.ServiceRegistrar, srv AvailabilityServiceServer) {
	s.RegisterService(&AvailabilityServiceDesc, srv)
}

func listSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServiceServer).ListSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListSlotsFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServiceServer).ListSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type AvailabilityClient struct {
	cc grpc.ClientConnInterface
}

func NewAvailabilityClient(cc grpc.ClientConnInterface) *AvailabilityClient {
	return &AvailabilityClient{cc: cc}
}

type SlotReply struct {
	Hour      int
	Minute    int
	Available bool
	Start     string
}

type SlotsReply struct {
	Date  string
	Slots []SlotReply
}

func (c *AvailabilityClient) ListSlots(ctx context.Context, date string, opts ...grpc.CallOption) (SlotsReply, error) {
	req, err := structpb.NewStruct(map[string]any{"date": date})
	if err != nil {
		return SlotsReply{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListSlotsFullMethod, req, out, opts...); err != nil {
		return SlotsReply{}, err
	}
	return decodeSlotsReply(out)
}

func decodeSlotsReply(s *structpb.Struct) (SlotsReply, error) {
	fields := s.GetFields()
	reply := SlotsReply{Date: fields["date"].GetStringValue()}

	list := fields["slots"].GetListValue()
	if list == nil {
		return SlotsReply{}, errors.New("response has no slots list")
	}
	for i, v := range list.GetValues() {
		sf := v.GetStructValue().GetFields()
		if sf == nil {
			return SlotsReply{}, fmt.Errorf("slot %d is not an object", i)
		}
		reply.Slots = append(reply.Slots, SlotReply{
			Hour:      int(sf["hour"].GetNumberValue()),
			Minute:    int(sf["minute"].GetNumberValue()),
			Available: sf["available"].GetBoolValue(),
			Start:     sf["start"].GetStringValue(),
		})
	}
	return reply, nil
}
