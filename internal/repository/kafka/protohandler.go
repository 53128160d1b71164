package kafka

import (
	"context"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/EduPortal/internal/domain/realtime"
)

func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return err
		}
		return handle(ctx, key, msg)
	}
}

// ChangeEventHandler decodes messages written by ChangeEvents.
func ChangeEventHandler(handle func(context.Context, realtime.ChangeEvent) error) Handler {
	return ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, s *structpb.Struct) error {
			ev, err := DecodeChangeEvent(s)
			if err != nil {
				return err
			}
			return handle(ctx, ev)
		},
	)
}
