// Package pbreflect exposes protobuf messages through the descriptor package.
//
// A Type is built once per message descriptor and cached in a Registry. The
// table name is the message's short name, the columns are the message's
// fields in declaration order, and scalar kinds are grouped the way the
// protobuf C++ runtime groups them (sint32 and sfixed32 are int32, fixed64
// is uint64, ...). Everything that is not a singular scalar number or string
// reports descriptor.KindOther.
package pbreflect

import (
	"sync"

	protoV1 "github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/bitnick10/pbsqlite/internal/descriptor"
)

// Registry caches Types by message descriptor.
type Registry struct {
	group singleflight.Group
	types sync.Map // protoreflect.MessageDescriptor -> *Type
}

var defaultRegistry Registry

// TypeFor returns the cached Type for mt from the default registry.
func TypeFor(mt protoreflect.MessageType) *Type {
	return defaultRegistry.TypeFor(mt)
}

// TypeOf returns the Type of m. m may be a typed nil pointer of a generated
// message.
func TypeOf(m proto.Message) *Type {
	return defaultRegistry.TypeFor(m.ProtoReflect().Type())
}

// Of wraps m so that the mapping engine can read and write its fields.
func Of(m proto.Message) *Message {
	return &Message{typ: TypeOf(m), m: m.ProtoReflect()}
}

// OfV1 wraps a message generated against the legacy github.com/golang/protobuf API.
func OfV1(m protoV1.Message) *Message {
	return Of(protoV1.MessageV2(m))
}

// TypeFor returns the Type for mt, building it on first use.
func (r *Registry) TypeFor(mt protoreflect.MessageType) *Type {
	md := mt.Descriptor()
	if t, ok := r.types.Load(md); ok {
		return t.(*Type)
	}
	v, _, _ := r.group.Do(string(md.FullName()), func() (any, error) {
		return r.load(mt), nil
	})
	t := v.(*Type)
	if t.md != md {
		// A different descriptor with the same full name won the flight.
		t = r.load(mt)
	}
	return t
}

func (r *Registry) load(mt protoreflect.MessageType) *Type {
	md := mt.Descriptor()
	if t, ok := r.types.Load(md); ok {
		return t.(*Type)
	}
	t, _ := r.types.LoadOrStore(md, newType(mt))
	return t.(*Type)
}

// Type is a descriptor.Type for one protobuf message type.
type Type struct {
	mt     protoreflect.MessageType
	md     protoreflect.MessageDescriptor
	fds    []protoreflect.FieldDescriptor
	fields []descriptor.Field
}

func newType(mt protoreflect.MessageType) *Type {
	md := mt.Descriptor()
	n := md.Fields().Len()
	t := &Type{
		mt:     mt,
		md:     md,
		fds:    make([]protoreflect.FieldDescriptor, n),
		fields: make([]descriptor.Field, n),
	}
	for i := 0; i < n; i++ {
		fd := md.Fields().Get(i)
		t.fds[i] = fd
		t.fields[i] = descriptor.Field{Name: string(fd.Name()), Kind: kindOf(fd)}
	}
	return t
}

func kindOf(fd protoreflect.FieldDescriptor) descriptor.Kind {
	if fd.IsList() || fd.IsMap() {
		return descriptor.KindOther
	}
	switch fd.Kind() {
	case protoreflect.StringKind:
		return descriptor.KindString
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return descriptor.KindInt32
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return descriptor.KindInt64
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return descriptor.KindUint32
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return descriptor.KindUint64
	case protoreflect.FloatKind:
		return descriptor.KindFloat
	case protoreflect.DoubleKind:
		return descriptor.KindDouble
	default:
		return descriptor.KindOther
	}
}

// Name returns the message's short name, e.g. "Person" for "aa.Person".
func (t *Type) Name() string { return string(t.md.Name()) }

// FullName returns the fully-qualified message name.
func (t *Type) FullName() protoreflect.FullName { return t.md.FullName() }

func (t *Type) Fields() []descriptor.Field { return t.fields }

// MessageType returns the underlying protobuf message type.
func (t *Type) MessageType() protoreflect.MessageType { return t.mt }

// New returns a wrapper around a new, empty message.
func (t *Type) New() descriptor.Message {
	return &Message{typ: t, m: t.mt.New()}
}

// Wrap exposes m through t. m must be of t's message type.
func (t *Type) Wrap(m proto.Message) (*Message, error) {
	pm := m.ProtoReflect()
	if got := pm.Descriptor().FullName(); got != t.md.FullName() {
		return nil, errors.Errorf("pbreflect: message %s is not a %s", got, t.md.FullName())
	}
	return &Message{typ: t, m: pm}, nil
}

// Message is a descriptor.Message over a protoreflect.Message.
type Message struct {
	typ *Type
	m   protoreflect.Message
}

func (m *Message) Type() descriptor.Type { return m.typ }

// Interface returns the wrapped protobuf message.
func (m *Message) Interface() proto.Message { return m.m.Interface() }

func (m *Message) Get(i int) any {
	if i < 0 || i >= len(m.typ.fds) {
		return nil
	}
	v := m.m.Get(m.typ.fds[i])
	switch m.typ.fields[i].Kind {
	case descriptor.KindString:
		return v.String()
	case descriptor.KindInt32:
		return int32(v.Int())
	case descriptor.KindInt64:
		return v.Int()
	case descriptor.KindUint32:
		return uint32(v.Uint())
	case descriptor.KindUint64:
		return v.Uint()
	case descriptor.KindFloat:
		return float32(v.Float())
	case descriptor.KindDouble:
		return v.Float()
	default:
		return nil
	}
}

func (m *Message) Set(i int, v any) error {
	if i < 0 || i >= len(m.typ.fds) {
		return errors.Wrapf(descriptor.ErrFieldIndex, "pbreflect: %s field %d", m.typ.md.FullName(), i)
	}
	f := m.typ.fields[i]
	if err := descriptor.CheckValue(f.Kind, v); err != nil {
		return errors.Wrapf(err, "pbreflect: %s.%s", m.typ.md.FullName(), f.Name)
	}
	var pv protoreflect.Value
	switch x := v.(type) {
	case string:
		pv = protoreflect.ValueOfString(x)
	case int32:
		pv = protoreflect.ValueOfInt32(x)
	case int64:
		pv = protoreflect.ValueOfInt64(x)
	case uint32:
		pv = protoreflect.ValueOfUint32(x)
	case uint64:
		pv = protoreflect.ValueOfUint64(x)
	case float32:
		pv = protoreflect.ValueOfFloat32(x)
	case float64:
		pv = protoreflect.ValueOfFloat64(x)
	}
	m.m.Set(m.typ.fds[i], pv)
	return nil
}
