package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/timmy/jobscout/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 768
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool
	VectorDimension int
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// VectorMatch is the nearest stored description for a query vector.
type VectorMatch struct {
	PointID string
	JobID   string
	Company string
	Title   string
	RunDate string
	Score   float32
}

// QdrantRepository is the semantic index of persisted job descriptions.
// Points are only ever added; the collection grows with the jobs table.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantRepository connects to a local Qdrant (insecure) or Qdrant Cloud (TLS + API key).
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the cosine collection if it doesn't exist and
// rejects an existing one with a different vector size.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}
	for _, params := range vectors.GetParamsMap().GetMap() {
		if params.GetSize() > 0 {
			return params.GetSize(), true
		}
	}
	return 0, false
}

// PointID derives the stable point id of a job.
func PointID(jobID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("jobscout:"+jobID)).String()
}

// Add stores the description vector of a persisted job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: persisted posting; its id keys the point.
//   - vector: embedding of the posting text.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *QdrantRepository) Add(ctx context.Context, job *domain.Job, vector []float32) error {
	_, err := r.pointsClient.Upsert(ctx, upsertRequest(r.collectionName, job, vector))
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// upsertRequest waits for the point to be indexed so the next Nearest call
// in the same run can see it.
func upsertRequest(collection string, job *domain.Job, vector []float32) *pb.UpsertPoints {
	jobID := job.JobID()
	wait := true
	return &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(jobID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vector},
				},
			},
			Payload: map[string]*pb.Value{
				"job_id":   stringValue(jobID),
				"company":  stringValue(job.Company),
				"title":    stringValue(job.Title),
				"run_date": stringValue(job.RunDate),
			},
		}},
	}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// Nearest returns the most similar stored description, or nil when the
// collection is empty.
func (r *QdrantRepository) Nearest(ctx context.Context, vector []float32) (*VectorMatch, error) {
	resp, err := r.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          1,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}

	scored := resp.Result[0]
	match := &VectorMatch{
		PointID: scored.Id.GetUuid(),
		Score:   scored.Score,
	}
	if p := scored.Payload; p != nil {
		match.JobID = p["job_id"].GetStringValue()
		match.Company = p["company"].GetStringValue()
		match.Title = p["title"].GetStringValue()
		match.RunDate = p["run_date"].GetStringValue()
	}
	return match, nil
}

// NoopIndex is the semantic index used when no vector store is configured.
// It stores nothing and never reports a neighbour.
type NoopIndex struct{}

// EnsureCollection does nothing.
func (NoopIndex) EnsureCollection(context.Context) error { return nil }

// Add discards the vector.
func (NoopIndex) Add(context.Context, *domain.Job, []float32) error { return nil }

// Nearest always reports no neighbour.
func (NoopIndex) Nearest(context.Context, []float32) (*VectorMatch, error) { return nil, nil }
