package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/controller"
	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/services"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("FATAL: GEMINI_API_KEY not found. Please add it to your .env file.")
	}

	dataDir := getenvDefault("DATA_DIR", "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create data directory %s: %v", dataDir, err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(getenvDefault("CHROMA_URL", "http://localhost:8000")))
	if err != nil {
		log.Fatalf("FATAL: Failed to create chroma client: %v", err)
	}
	defer func() {
		if err := chromaClient.Close(); err != nil {
			log.Printf("Warning: Failed to close chroma client: %v", err)
		}
	}()

	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	embedder := services.NewOllamaEmbedder(
		httpClient,
		getenvDefault("OLLAMA_URL", "http://localhost:11434"),
		getenvDefault("OLLAMA_EMBED_MODEL", "nomic-embed-text:v1.5"),
	)

	store := services.NewSessionStore(services.DefaultModel)
	retriever := services.NewChromaRetriever(chromaClient, embedder)
	gemini := services.NewGeminiService(services.NewGeminiGenerator(geminiClient))
	chat := services.NewChatService(store, retriever, gemini)
	indexer := services.NewDocumentIndexingService(context.Background(), chromaClient, embedder, dataDir)
	faq := services.NewFAQService(chat)

	chatController := controller.NewChatController(chat, indexer, faq, store)

	router := gin.Default()

	// CORS for the browser front-end.
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Vaakeel Saab API",
			"version": "2.1.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/query", chatController.Query)
		apiV1.POST("/documents", chatController.ProcessDocuments)
		apiV1.DELETE("/documents", chatController.ClearDocuments)
		apiV1.GET("/history", chatController.GetHistory)
		apiV1.GET("/faqs", chatController.ListFAQs)
		apiV1.POST("/faqs/answer", chatController.AnswerFAQ)
	}

	port := getenvDefault("PORT", "8080")
	log.Printf("Vaakeel Saab backend starting on http://localhost:%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
