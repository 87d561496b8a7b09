// Package pbtest builds protobuf message types for tests without generated
// code. The file descriptor is assembled from descriptorpb in code and the
// messages are dynamicpb instances.
//
//	package aa;
//	message Person  { int32 id = 1; string name = 2; }
//	message Scalars { int64 key = 1; string s = 2; int32 i32 = 3; int64 i64 = 4;
//	                  uint32 u32 = 5; uint64 u64 = 6; float f = 7; double d = 8;
//	                  sint32 si32 = 9; sfixed64 sf64 = 10; fixed32 fx32 = 11; }
//	message Mixed   { int32 id = 1; bool flag = 2; repeated string tags = 3; }
package pbtest

import (
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(num),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(name),
	}
}

func repeated(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

// FileProto returns the fixture file as a FileDescriptorProto.
func FileProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("pbtest/fixtures.proto"),
		Package: proto.String("aa"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Person"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					field("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			{
				Name: proto.String("Scalars"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("key", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					field("s", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("i32", 3, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					field("i64", 4, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					field("u32", 5, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					field("u64", 6, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
					field("f", 7, descriptorpb.FieldDescriptorProto_TYPE_FLOAT),
					field("d", 8, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
					field("si32", 9, descriptorpb.FieldDescriptorProto_TYPE_SINT32),
					field("sf64", 10, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64),
					field("fx32", 11, descriptorpb.FieldDescriptorProto_TYPE_FIXED32),
				},
			},
			{
				Name: proto.String("Mixed"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					field("flag", 2, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					repeated(field("tags", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
				},
			},
		},
	}
}

var file = sync.OnceValue(func() protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(FileProto(), nil)
	if err != nil {
		panic("pbtest: build fixture file: " + err.Error())
	}
	return fd
})

var types sync.Map // protoreflect.Name -> protoreflect.MessageType

func messageType(name protoreflect.Name) protoreflect.MessageType {
	if mt, ok := types.Load(name); ok {
		return mt.(protoreflect.MessageType)
	}
	md := file().Messages().ByName(name)
	if md == nil {
		panic("pbtest: unknown message " + string(name))
	}
	mt, _ := types.LoadOrStore(name, dynamicpb.NewMessageType(md))
	return mt.(protoreflect.MessageType)
}

// File returns the fixture file descriptor.
func File() protoreflect.FileDescriptor { return file() }

// DescriptorSet returns the fixture file serialized as a FileDescriptorSet.
func DescriptorSet() []byte {
	b, err := proto.Marshal(&descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{protodesc.ToFileDescriptorProto(file())},
	})
	if err != nil {
		panic("pbtest: marshal descriptor set: " + err.Error())
	}
	return b
}

// PersonType returns the message type of aa.Person.
func PersonType() protoreflect.MessageType { return messageType("Person") }

// ScalarsType returns the message type of aa.Scalars.
func ScalarsType() protoreflect.MessageType { return messageType("Scalars") }

// MixedType returns the message type of aa.Mixed.
func MixedType() protoreflect.MessageType { return messageType("Mixed") }

// NewPerson returns an aa.Person with the given field values.
func NewPerson(id int32, name string) proto.Message {
	m := PersonType().New()
	fields := m.Descriptor().Fields()
	m.Set(fields.ByName("id"), protoreflect.ValueOfInt32(id))
	m.Set(fields.ByName("name"), protoreflect.ValueOfString(name))
	return m.Interface()
}

// PersonFields returns the id and name of an aa.Person.
func PersonFields(m proto.Message) (int32, string) {
	pm := m.ProtoReflect()
	fields := pm.Descriptor().Fields()
	return int32(pm.Get(fields.ByName("id")).Int()), pm.Get(fields.ByName("name")).String()
}
