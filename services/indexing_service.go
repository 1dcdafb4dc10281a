package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
)

// Chunking parameters for uploaded documents.
const (
	chunkSize    = 2000
	chunkOverlap = 500
)

// UploadedFile is one document received over the upload endpoint.
type UploadedFile struct {
	Name string
	Data []byte
}

// DocumentIndexingService stores uploaded files under a per-session
// directory, extracts and chunks their text, embeds each chunk, and indexes
// it in the session's Chroma collection. It also watches each session's
// directory so files changed on disk after processing stay in sync with
// the index.
type DocumentIndexingService struct {
	client   chromago.Client
	embedder Embedder
	dataDir  string

	// watchCtx bounds the lifetime of directory watchers.
	watchCtx context.Context

	mu       sync.Mutex
	watchers map[string]*sessionWatch
}

// sessionWatch tracks one session's running directory watcher so it can be
// cancelled when the session's documents are cleared.
type sessionWatch struct {
	cancel context.CancelFunc
}

// NewDocumentIndexingService creates the indexing service. dataDir is the
// root under which per-session upload directories live.
func NewDocumentIndexingService(ctx context.Context, client chromago.Client, embedder Embedder, dataDir string) *DocumentIndexingService {
	return &DocumentIndexingService{
		client:   client,
		embedder: embedder,
		dataDir:  dataDir,
		watchCtx: ctx,
		watchers: make(map[string]*sessionWatch),
	}
}

// sessionDir is where a session's uploaded files live on disk.
func (s *DocumentIndexingService) sessionDir(sessionID string) string {
	return filepath.Join(s.dataDir, sessionID)
}

// ProcessUploads saves the uploaded files and indexes them for the session.
// Returns the number of chunks indexed. Rejected with an error if the
// session is already processing; the flag is the ingestion path's only
// concurrency guard.
func (s *DocumentIndexingService) ProcessUploads(ctx context.Context, state *SessionState, files []UploadedFile) (int, error) {
	if !state.BeginProcessing() {
		return 0, fmt.Errorf("document processing already in progress for session %s", state.ID())
	}
	defer state.EndProcessing()

	if len(files) == 0 {
		return 0, fmt.Errorf("no files to process")
	}

	// Validate the whole batch before writing anything, so a rejected
	// upload leaves no partial files behind.
	for _, f := range files {
		if !isSupportedFile(f.Name) {
			return 0, fmt.Errorf("unsupported file type: %s", f.Name)
		}
	}

	dir := s.sessionDir(state.ID())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("could not create session data directory: %w", err)
	}

	for _, f := range files {
		// Base-name only: an uploaded filename must not escape the
		// session directory.
		path := filepath.Join(dir, filepath.Base(f.Name))
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			return 0, fmt.Errorf("could not save %s: %w", f.Name, err)
		}
	}

	chunks, err := s.indexDirectory(ctx, state.ID(), dir)
	if err != nil {
		return 0, err
	}

	state.MarkDocumentsIndexed(true)
	s.watchSessionDir(state.ID(), dir)
	return chunks, nil
}

// ClearDocuments removes the session's uploaded files and drops its vector
// collection. The session's directory watcher is stopped first so a later
// re-upload starts a fresh watch on the recreated directory.
func (s *DocumentIndexingService) ClearDocuments(ctx context.Context, state *SessionState) error {
	s.stopWatcher(state.ID())
	dir := s.sessionDir(state.ID())
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("could not remove session data directory: %w", err)
	}
	if err := s.client.DeleteCollection(ctx, sessionCollection(state.ID())); err != nil {
		log.Printf("WARN: could not delete collection for session %s: %v", state.ID(), err)
	}
	state.MarkDocumentsIndexed(false)
	log.Printf("INDEXER: cleared documents for session %s", state.ID())
	return nil
}

// indexDirectory walks the session directory and (re-)indexes every
// supported file, skipping files whose content hash is already indexed.
func (s *DocumentIndexingService) indexDirectory(ctx context.Context, sessionID, dir string) (int, error) {
	collection, err := s.client.GetOrCreateCollection(ctx, sessionCollection(sessionID))
	if err != nil {
		return 0, fmt.Errorf("could not open collection for session %s: %w", sessionID, err)
	}

	indexed, err := s.currentIndexState(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("could not read index state: %w", err)
	}

	total := 0
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}

		hash, err := fileHash(path)
		if err != nil {
			log.Printf("INDEXER WARN: could not hash %s: %v", path, err)
			return nil
		}
		if prev, ok := indexed[path]; ok {
			if prev == hash {
				return nil // unchanged
			}
			if err := s.deleteByFilepath(ctx, collection, path); err != nil {
				log.Printf("INDEXER ERROR: could not delete old version of %s: %v", path, err)
				return nil
			}
		}

		n, err := s.indexFile(ctx, collection, path, hash)
		if err != nil {
			return fmt.Errorf("could not index %s: %w", filepath.Base(path), err)
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("INDEXER: session %s indexed, %d new chunks", sessionID, total)
	return total, nil
}

// indexFile extracts, chunks, embeds, and stores one file. Returns the
// number of chunks added.
func (s *DocumentIndexingService) indexFile(ctx context.Context, collection chromago.Collection, path, hash string) (int, error) {
	content, err := ExtractTextFromFile(path)
	if err != nil {
		return 0, err
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	chunks, err := splitter.SplitText(content)
	if err != nil {
		return 0, err
	}
	log.Printf("INDEXER: split %s into %d chunks", filepath.Base(path), len(chunks))

	for i, chunk := range chunks {
		vector, err := s.embedder.EmbedText(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("could not embed chunk %d: %w", i, err)
		}
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("source_file", path),
			chromago.NewStringAttribute("file_hash", hash),
			chromago.NewIntAttribute("chunk_num", int64(i)),
		)
		docID := chromago.DocumentID(fmt.Sprintf("%s-chunk%d", uuid.New().String(), i))
		err = collection.Add(ctx,
			chromago.WithIDs(docID),
			chromago.WithTexts(chunk),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return 0, fmt.Errorf("could not add chunk %d to chromadb: %w", i, err)
		}
	}
	return len(chunks), nil
}

// currentIndexState maps indexed file paths to their content hash.
func (s *DocumentIndexingService) currentIndexState(ctx context.Context, collection chromago.Collection) (map[string]string, error) {
	state := make(map[string]string)
	results, err := collection.Get(ctx)
	if err != nil {
		return nil, err
	}
	for _, meta := range results.GetMetadatas() {
		if meta == nil {
			continue
		}
		// DocumentMetadata has no map accessor in this client version;
		// round-tripping through JSON is the supported way to read it.
		jsonBytes, err := json.Marshal(meta)
		if err != nil {
			continue
		}
		var metaMap map[string]interface{}
		if err := json.Unmarshal(jsonBytes, &metaMap); err != nil {
			continue
		}
		path, ok := metaMap["source_file"].(string)
		if !ok {
			continue
		}
		hash, ok := metaMap["file_hash"].(string)
		if !ok {
			continue
		}
		if _, exists := state[path]; !exists {
			state[path] = hash
		}
	}
	return state, nil
}

func (s *DocumentIndexingService) deleteByFilepath(ctx context.Context, collection chromago.Collection, path string) error {
	return collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString("source_file", path)))
}

// watchSessionDir starts at most one watcher per session directory. Files
// edited or removed on disk after processing are re-indexed or dropped.
func (s *DocumentIndexingService) watchSessionDir(sessionID, dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchers[sessionID] != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.watchCtx)
	w := &sessionWatch{cancel: cancel}
	s.watchers[sessionID] = w
	go s.runWatcher(ctx, w, sessionID, dir)
}

// stopWatcher cancels the session's watcher, if any, and forgets it so the
// session can be watched again after its directory is recreated.
func (s *DocumentIndexingService) stopWatcher(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.watchers[sessionID]; w != nil {
		w.cancel()
		delete(s.watchers, sessionID)
	}
}

// forgetWatcher drops the bookkeeping entry when a watcher goroutine exits
// on its own. Only the entry belonging to this goroutine is removed; a
// replacement watcher registered in the meantime stays.
func (s *DocumentIndexingService) forgetWatcher(sessionID string, w *sessionWatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchers[sessionID] == w {
		delete(s.watchers, sessionID)
	}
}

func (s *DocumentIndexingService) runWatcher(ctx context.Context, w *sessionWatch, sessionID, dir string) {
	defer s.forgetWatcher(sessionID, w)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		log.Printf("WATCHER ERROR: failed to watch %s: %v", dir, err)
		return
	}
	log.Printf("WATCHER: watching %s", dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isSupportedFile(event.Name) {
				continue
			}
			s.handleWatchEvent(ctx, sessionID, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WATCHER ERROR: %v", err)

		case <-ctx.Done():
			log.Printf("WATCHER: shutting down watcher for %s", dir)
			return
		}
	}
}

// handleWatchEvent syncs the index with one file change. The collection is
// opened per event: caching a handle across the watcher's lifetime would go
// stale once the documents are cleared and re-uploaded.
func (s *DocumentIndexingService) handleWatchEvent(ctx context.Context, sessionID string, event fsnotify.Event) {
	collection, err := s.client.GetOrCreateCollection(ctx, sessionCollection(sessionID))
	if err != nil {
		log.Printf("WATCHER ERROR: could not open collection for session %s: %v", sessionID, err)
		return
	}

	// Editors often write via temp-file-and-rename, so Create and Write
	// get the same treatment.
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		log.Printf("WATCHER: %s changed, re-indexing", event.Name)
		hash, err := fileHash(event.Name)
		if err != nil {
			log.Printf("WATCHER WARN: could not hash %s: %v", event.Name, err)
			return
		}
		if err := s.deleteByFilepath(ctx, collection, event.Name); err != nil {
			log.Printf("WATCHER ERROR: could not delete old records for %s: %v", event.Name, err)
		}
		if _, err := s.indexFile(ctx, collection, event.Name, hash); err != nil {
			log.Printf("WATCHER ERROR: could not re-index %s: %v", event.Name, err)
		}
	} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		log.Printf("WATCHER: %s removed, dropping from index", event.Name)
		if err := s.deleteByFilepath(ctx, collection, event.Name); err != nil {
			log.Printf("WATCHER ERROR: could not delete records for %s: %v", event.Name, err)
		}
	}
}

func fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
