package recommendation

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
)

type vectorQuerier interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
}

// PineconeRetriever runs nearest-neighbour queries against a Pinecone index
// and returns the "text" metadata of each match.
type PineconeRetriever struct {
	index vectorQuerier
	conn  *pinecone.IndexConnection
	topK  int
}

// NewPineconeRetriever connects to the index served at host. The host may be
// given with or without a scheme; namespace scopes every query.
func NewPineconeRetriever(host, apiKey, namespace string, topK int) (*PineconeRetriever, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("pinecone client: %w", err)
	}

	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	conn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      strings.TrimRight(host, "/"),
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone index %s: %w", host, err)
	}

	r := newPineconeRetriever(conn, topK)
	r.conn = conn
	return r, nil
}

func newPineconeRetriever(index vectorQuerier, topK int) *PineconeRetriever {
	if topK <= 0 {
		topK = 2
	}
	return &PineconeRetriever{index: index, topK: topK}
}

func (r *PineconeRetriever) Retrieve(ctx context.Context, vector []float64) ([]string, error) {
	values := make([]float32, len(vector))
	for i, v := range vector {
		values[i] = float32(v)
	}

	res, err := r.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          values,
		TopK:            uint32(r.topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	passages := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		if text := m.Vector.Metadata.GetFields()["text"].GetStringValue(); text != "" {
			passages = append(passages, text)
		}
	}
	return passages, nil
}

// Close releases the index connection.
func (r *PineconeRetriever) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
