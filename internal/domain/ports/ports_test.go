package ports

import (
	"context"
	"reflect"
	"testing"

	"dirstream/internal/domain"
)

func TestFetcherInterface(t *testing.T) {
	typ := reflect.TypeOf((*Fetcher)(nil)).Elem()

	assertMethod(t, typ, "FetchListing", []reflect.Type{
		contextType(),
		reflect.TypeOf(""),
	}, []reflect.Type{
		reflect.TypeOf(""),
		errorType(),
	})

	assertMethod(t, typ, "Head", []reflect.Type{
		contextType(),
		reflect.TypeOf(""),
	}, []reflect.Type{
		reflect.TypeOf(int64(0)),
		errorType(),
	})

	assertMethod(t, typ, "OpenStream", []reflect.Type{
		contextType(),
		reflect.TypeOf(""),
		reflect.TypeOf((*domain.ByteRange)(nil)),
	}, []reflect.Type{
		reflect.TypeOf(StreamSource{}),
		errorType(),
	})
}

func TestResponseSinkInterface(t *testing.T) {
	typ := reflect.TypeOf((*ResponseSink)(nil)).Elem()

	if _, ok := typ.MethodByName("SetHeader"); !ok {
		t.Fatalf("missing method SetHeader")
	}
	assertMethod(t, typ, "WriteStatus", []reflect.Type{reflect.TypeOf(0)}, nil)
	assertMethod(t, typ, "WriteChunk", []reflect.Type{reflect.TypeOf([]byte{})}, []reflect.Type{
		reflect.TypeOf(0),
		errorType(),
	})
	assertMethod(t, typ, "End", nil, nil)
}

func assertMethod(t *testing.T, typ reflect.Type, name string, in []reflect.Type, out []reflect.Type) {
	t.Helper()
	method, ok := typ.MethodByName(name)
	if !ok {
		t.Fatalf("missing method %s", name)
	}

	if method.Type.NumIn() != len(in) {
		t.Fatalf("%s NumIn = %d, want %d", name, method.Type.NumIn(), len(in))
	}
	for i, typIn := range in {
		if got := method.Type.In(i); got != typIn {
			t.Fatalf("%s In[%d] = %s, want %s", name, i, got, typIn)
		}
	}

	if method.Type.NumOut() != len(out) {
		t.Fatalf("%s NumOut = %d, want %d", name, method.Type.NumOut(), len(out))
	}
	for i, typOut := range out {
		if got := method.Type.Out(i); got != typOut {
			t.Fatalf("%s Out[%d] = %s, want %s", name, i, got, typOut)
		}
	}
}

func contextType() reflect.Type {
	return reflect.TypeOf((*context.Context)(nil)).Elem()
}

func errorType() reflect.Type {
	return reflect.TypeOf((*error)(nil)).Elem()
}
