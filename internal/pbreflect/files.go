package pbreflect

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// LoadFiles reads a serialized FileDescriptorSet, as written by
// `protoc --include_imports --descriptor_set_out=...`. Gzip-compressed sets
// are accepted as well.
func LoadFiles(path string) (*protoregistry.Files, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "pbreflect: read descriptor set")
	}
	return ParseFiles(b)
}

// ParseFiles builds a file registry from serialized FileDescriptorSet bytes.
func ParseFiles(b []byte) (*protoregistry.Files, error) {
	if len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, errors.Wrap(err, "pbreflect: open gzip descriptor set")
		}
		defer zr.Close()
		if b, err = io.ReadAll(zr); err != nil {
			return nil, errors.Wrap(err, "pbreflect: inflate descriptor set")
		}
	}

	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(b, &set); err != nil {
		return nil, errors.Wrap(err, "pbreflect: error unmarshaling the descriptor set, is it the right format?")
	}
	files, err := protodesc.NewFiles(&set)
	if err != nil {
		return nil, errors.Wrap(err, "pbreflect: build file registry")
	}
	return files, nil
}

// FindType resolves a fully-qualified message name in files and returns a
// Type whose instances are dynamicpb messages.
func FindType(files *protoregistry.Files, fullName string) (*Type, error) {
	d, err := files.FindDescriptorByName(protoreflect.FullName(fullName))
	if err != nil {
		return nil, errors.Wrapf(err, "pbreflect: find message %q", fullName)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, errors.Errorf("pbreflect: %q is not a message", fullName)
	}
	return TypeFor(dynamicpb.NewMessageType(md)), nil
}
