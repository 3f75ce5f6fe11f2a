package codec

import "google.golang.org/protobuf/proto"

// Protobuf encodes generated protobuf messages.
type Protobuf[T proto.Message] struct {
	newMsg func() T // e.g. func() *pb.User { return &pb.User{} }
}

// NewProtobuf returns a codec that allocates decode targets with ctor.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) { return proto.Marshal(v) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	err := proto.Unmarshal(b, m)
	return m, err
}
