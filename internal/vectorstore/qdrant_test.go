package vectorstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

func TestGrpcAddress(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
	}{
		{name: "default http port", urlStr: "http://localhost:6333", wantHost: "localhost", wantPort: 6334},
		{name: "custom port", urlStr: "http://qdrant.internal:9000", wantHost: "qdrant.internal", wantPort: 9001},
		{name: "no port", urlStr: "http://localhost", wantHost: "localhost", wantPort: 6334},
		{name: "no hostname", urlStr: "http://:6333", wantHost: "localhost", wantPort: 6334},
		{name: "invalid URL", urlStr: "://invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := grpcAddress(tt.urlStr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("grpcAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if host != tt.wantHost {
				t.Errorf("host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestPointID(t *testing.T) {
	a := PointID("abc:0")
	if a != PointID("abc:0") {
		t.Error("PointID() should be deterministic")
	}
	if a == PointID("abc:1") {
		t.Error("PointID() should differ per chunk id")
	}
	parsed, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("PointID() = %q is not a UUID: %v", a, err)
	}
	if parsed.Version() != 5 {
		t.Errorf("PointID() version = %d, want 5", parsed.Version())
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	store := &QdrantStore{}
	if err := store.Upsert(context.Background(), "test-collection", nil); err != nil {
		t.Errorf("Upsert() with empty points should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Close_NoClient(t *testing.T) {
	if err := (&QdrantStore{}).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCheckVectorSize(t *testing.T) {
	withSize := func(size uint64) *qdrant.CollectionInfo {
		return &qdrant.CollectionInfo{
			Config: &qdrant.CollectionConfig{
				Params: &qdrant.CollectionParams{
					VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: size, Distance: qdrant.Distance_Cosine}),
				},
			},
		}
	}

	tests := []struct {
		name    string
		info    *qdrant.CollectionInfo
		want    int
		wantErr bool
	}{
		{name: "match", info: withSize(768), want: 768},
		{name: "mismatch", info: withSize(384), want: 768, wantErr: true},
		{name: "missing config", info: &qdrant.CollectionInfo{}, want: 768, wantErr: true},
		{name: "nil info", info: nil, want: 768, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkVectorSize(tt.info, tt.want)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkVectorSize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
