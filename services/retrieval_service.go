package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/models"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// fragmentCharBudget caps each retrieved fragment before it is joined into
// the prompt context.
const fragmentCharBudget = 2000

// Retriever finds document fragments relevant to a question, scoped to one
// session's uploads. A session with no index returns an empty slice, not an
// error.
type Retriever interface {
	Retrieve(ctx context.Context, sessionID, question string, k int) ([]models.DocumentFragment, error)
}

// chromaRetriever queries the session's ChromaDB collection.
type chromaRetriever struct {
	client   chromago.Client
	embedder Embedder
}

// NewChromaRetriever builds a Retriever over a Chroma client.
func NewChromaRetriever(client chromago.Client, embedder Embedder) Retriever {
	return &chromaRetriever{client: client, embedder: embedder}
}

// sessionCollection names the per-session Chroma collection. Session IDs
// are UUIDs, so the name stays within Chroma's charset rules.
func sessionCollection(sessionID string) string {
	return "legal-docs-" + sessionID
}

// Retrieve embeds the question and returns up to k fragments ranked by the
// store's similarity ordering, each truncated to fragmentCharBudget.
func (r *chromaRetriever) Retrieve(ctx context.Context, sessionID, question string, k int) ([]models.DocumentFragment, error) {
	queryVector, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	collection, err := r.client.GetOrCreateCollection(ctx, sessionCollection(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection for session %s: %w", sessionID, err)
	}

	results, err := collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(queryVector)),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	var fragments []models.DocumentFragment
	documentGroups := results.GetDocumentsGroups()
	if len(documentGroups) > 0 {
		for i, doc := range documentGroups[0] {
			text := doc.ContentString()
			if text == "" {
				continue
			}
			text = truncateChars(text, fragmentCharBudget)
			fragments = append(fragments, models.DocumentFragment{
				Text:       text,
				SourceRank: i + 1,
			})
		}
	}
	log.Printf("SERVICE: retrieved %d fragments for session %s", len(fragments), sessionID)
	return fragments, nil
}

// ContextFromFragments joins fragments into the context string fed to the
// prompt builder.
func ContextFromFragments(fragments []models.DocumentFragment) string {
	if len(fragments) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(fragments))
	for _, f := range fragments {
		blocks = append(blocks, fmt.Sprintf("Document Excerpt %d:\n%s", f.SourceRank, f.Text))
	}
	return strings.Join(blocks, "\n\n")
}
