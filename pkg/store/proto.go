package store

import (
	"context"
	"fmt"

	protoV1 "github.com/golang/protobuf/proto"
	"google.golang.org/protobuf/proto"

	"github.com/bitnick10/pbsqlite/internal/pbreflect"
)

// CreateTable creates the table for the generated message type T.
func CreateTable[T proto.Message](ctx context.Context, s *Store, primaryKey string) error {
	var zero T
	return s.CreateTableIfNotExists(ctx, pbreflect.TypeOf(zero), primaryKey)
}

// InsertProto inserts a protobuf message.
func InsertProto(ctx context.Context, s *Store, m proto.Message) error {
	return s.Insert(ctx, pbreflect.Of(m))
}

// ReplaceProto inserts or overwrites a protobuf message by primary key.
func ReplaceProto(ctx context.Context, s *Store, m proto.Message) error {
	return s.Replace(ctx, pbreflect.Of(m))
}

// InsertProtoV1 inserts a message generated against the
// github.com/golang/protobuf API.
func InsertProtoV1(ctx context.Context, s *Store, m protoV1.Message) error {
	return s.Insert(ctx, pbreflect.OfV1(m))
}

// ReplaceProtoV1 is ReplaceProto for github.com/golang/protobuf messages.
func ReplaceProtoV1(ctx context.Context, s *Store, m protoV1.Message) error {
	return s.Replace(ctx, pbreflect.OfV1(m))
}

// Select returns every row of T's table matching condition, one new message
// per row. T must be a generated message type (a pointer to a struct); use
// SelectType with pbreflect.FindType for dynamic messages.
func Select[T proto.Message](ctx context.Context, s *Store, condition string) ([]T, error) {
	var zero T
	msgs, err := s.SelectType(ctx, pbreflect.TypeOf(zero), condition)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(msgs))
	for _, m := range msgs {
		pm, ok := m.(*pbreflect.Message)
		if !ok {
			return nil, fmt.Errorf("store: select: unexpected message %T", m)
		}
		v, ok := pm.Interface().(T)
		if !ok {
			return nil, fmt.Errorf("store: select: decoded %T, want %T", pm.Interface(), zero)
		}
		out = append(out, v)
	}
	return out, nil
}
