package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"raggy/internal/contextutil"
)

// upsertBatchSize bounds the number of points sent per request.
const upsertBatchSize = 256

// PointID maps a chunk id to the deterministic UUID used as its Qdrant point
// id. Qdrant only accepts integers and UUIDs.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
}

// grpcAddress derives the gRPC host and port from a Qdrant HTTP URL. The
// gRPC port is the HTTP port + 1, or 6334 when the URL has no port.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return "", 0, fmt.Errorf("invalid Qdrant port %q: %w", parsedURL.Port(), err)
		}
		port = httpPort + 1
	}
	return host, port, nil
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
	}, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Upsert inserts or updates points in the collection, in batches.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	wait := true
	for start := 0; start < len(points); start += upsertBatchSize {
		batch := points[start:min(len(points), start+upsertBatchSize)]

		qdrantPoints := make([]*qdrant.PointStruct, 0, len(batch))
		for _, point := range batch {
			qdrantPoint := &qdrant.PointStruct{
				Id:      qdrant.NewID(point.ID),
				Vectors: qdrant.NewVectors(point.Vec...),
			}
			if len(point.Payload) > 0 {
				qdrantPoint.Payload = qdrant.NewValueMap(point.Payload)
			}
			qdrantPoints = append(qdrantPoints, qdrantPoint)
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           &wait,
			Points:         qdrantPoints,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(batch), "error", err)
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// DropCollection deletes the collection if it exists.
func (s *QdrantStore) DropCollection(ctx context.Context, collection string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	logger.InfoContext(ctx, "dropped collection", "collection", collection)
	return nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// EnsureCollection ensures a collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
// If it doesn't exist, creates it with the specified vector size.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	return checkVectorSize(info, vectorSize)
}

func checkVectorSize(info *qdrant.CollectionInfo, want int) error {
	if info == nil || info.Config == nil || info.Config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := info.Config.Params.GetVectorsConfig()
	if vectorsConfig == nil || vectorsConfig.GetParams() == nil {
		return fmt.Errorf("collection vector params are invalid")
	}
	got := int(vectorsConfig.GetParams().Size)
	if got != want {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", want, got)
	}
	return nil
}
