package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"mapstore/internal/blob/core"
)

func TestMockedLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	info, err := store.Put(ctx, "notes/5", bytes.NewReader([]byte("payload")), core.PutOptions{ContentType: "application/cbor", Metadata: map[string]string{"codec": "cbor"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "notes/5" || info.Size != 7 || info.ETag != "etag123" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Metadata["codec"] != "cbor" {
		t.Fatalf("metadata lost: %+v", info.Metadata)
	}
	if _, err := store.Put(ctx, "notes/5", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := store.Get(ctx, "notes/5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "payload" || got.ContentType != "application/cbor" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}
	for _, k := range []string{"notes/7", "notes/6", "other/1"} {
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := store.List(ctx, "notes/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Key != "notes/5" || list[2].Key != "notes/7" {
		t.Fatalf("unexpected paginated list %+v", list)
	}
	if ok, err := store.Delete(ctx, "notes/5"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "notes/5"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestMockedMissingKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if list, err := store.List(ctx, "nope/"); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestNewDefaultsRegion(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	store, err := New(context.Background(), Config{Bucket: "b", Endpoint: "http://localhost:9000", PathStyle: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.client.Options().Region != "us-east-1" || !store.client.Options().UsePathStyle {
		t.Fatalf("unexpected client options")
	}
}

type statusErr int

func (s statusErr) Error() string       { return "status" }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestClassify(t *testing.T) {
	if err := classify("get", "k", statusErr(http.StatusNotFound)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("404 should map to ErrNotFound, got %v", err)
	}
	if err := classify("get", "k", statusErr(http.StatusForbidden)); errors.Is(err, core.ErrNotFound) {
		t.Fatalf("403 must not map to ErrNotFound")
	}
}

func TestDecodeChunked(t *testing.T) {
	got, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n"))
	if !ok || string(got) != "hello" {
		t.Fatalf("unexpected decode %q %v", got, ok)
	}
	if _, ok := decodeChunked([]byte("plain body")); ok {
		t.Fatalf("plain bodies are not chunked")
	}
	if _, ok := decodeChunked([]byte("ff\r\nshort\r\n0\r\n")); ok {
		t.Fatalf("size mismatch must not decode")
	}
}
