package controller

import (
	"io"
	"net/http"

	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/models"
	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/services"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps the total size of one document upload.
const maxUploadBytes = 50 * 1024 * 1024

// ChatController handles the HTTP surface of the legal assistant. It binds
// requests and delegates to the service layer; business logic lives there.
type ChatController struct {
	chat    *services.ChatService
	indexer *services.DocumentIndexingService
	faq     *services.FAQService
	store   *services.SessionStore
}

// NewChatController is called from main.go to inject the service
// dependencies.
func NewChatController(chat *services.ChatService, indexer *services.DocumentIndexingService, faq *services.FAQService, store *services.SessionStore) *ChatController {
	return &ChatController{
		chat:    chat,
		indexer: indexer,
		faq:     faq,
		store:   store,
	}
}

// Query is the handler for POST /api/v1/query. The service never returns a
// hard fault for a bound request; even model failures arrive as displayable
// answer text.
func (c *ChatController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response := c.chat.Ask(ctx.Request.Context(), req)
	ctx.JSON(http.StatusOK, response)
}

// ProcessDocuments is the handler for POST /api/v1/documents. It accepts a
// multipart form with a "files" field and an optional "sessionID" field.
func (c *ChatController) ProcessDocuments(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Please upload documents first"})
		return
	}

	var totalSize int64
	for _, fh := range fileHeaders {
		totalSize += fh.Size
	}
	if totalSize > maxUploadBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Total size exceeds 50MB limit"})
		return
	}

	files := make([]services.UploadedFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read " + fh.Filename})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read " + fh.Filename})
			return
		}
		files = append(files, services.UploadedFile{Name: fh.Filename, Data: data})
	}

	state := c.store.Get(ctx.PostForm("sessionID"))
	chunks, err := c.indexer.ProcessUploads(ctx.Request.Context(), state, files)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "sessionID": state.ID()})
		return
	}

	ctx.JSON(http.StatusCreated, models.ProcessDocumentsResponse{
		Message:   "Documents processed successfully",
		Files:     len(files),
		Chunks:    chunks,
		SessionID: state.ID(),
	})
}

// ClearDocuments is the handler for DELETE /api/v1/documents.
func (c *ChatController) ClearDocuments(ctx *gin.Context) {
	sessionID := ctx.Query("sessionID")
	if sessionID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "sessionID query parameter is required"})
		return
	}

	state := c.store.Get(sessionID)
	if err := c.indexer.ClearDocuments(ctx.Request.Context(), state); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear documents"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Documents cleared successfully"})
}

// GetHistory is the handler for GET /api/v1/history.
func (c *ChatController) GetHistory(ctx *gin.Context) {
	sessionID := ctx.Query("sessionID")
	if sessionID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "sessionID query parameter is required"})
		return
	}

	state := c.store.Get(sessionID)
	ctx.JSON(http.StatusOK, models.HistoryResponse{
		SessionID: state.ID(),
		Turns:     state.History(),
	})
}

// ListFAQs is the handler for GET /api/v1/faqs.
func (c *ChatController) ListFAQs(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.FAQListResponse{FAQs: c.faq.List()})
}

// AnswerFAQ is the handler for POST /api/v1/faqs/answer.
func (c *ChatController) AnswerFAQ(ctx *gin.Context) {
	var req models.FAQAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.faq.Answer(ctx.Request.Context(), req.SessionID, req.Index)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, response)
}
