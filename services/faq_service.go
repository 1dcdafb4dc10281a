package services

import (
	"context"
	"fmt"

	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/models"
)

// faqCatalogue is the fixed set of common questions shown as cards.
var faqCatalogue = []models.FAQ{
	{Question: "How to file an FIR in India?", Category: "Criminal Procedure"},
	{Question: "What are my fundamental rights as an Indian citizen?", Category: "Constitutional Law"},
	{Question: "What is the process for filing a consumer complaint?", Category: "Consumer Law"},
	{Question: "How to respond to a legal notice?", Category: "Civil Procedure"},
	{Question: "What are tenant rights in India?", Category: "Property Law"},
	{Question: "How to apply for legal aid in India?", Category: "Legal Services"},
}

// FAQService serves the canned question catalogue and answers entries
// without a retrieval step.
type FAQService struct {
	chat *ChatService
}

// NewFAQService wires the FAQ service onto the chat pipeline.
func NewFAQService(chat *ChatService) *FAQService {
	return &FAQService{chat: chat}
}

// List returns the FAQ catalogue.
func (f *FAQService) List() []models.FAQ {
	faqs := make([]models.FAQ, len(faqCatalogue))
	copy(faqs, faqCatalogue)
	return faqs
}

// Answer generates an answer for the FAQ at the given index. FAQ answers
// never use uploaded documents.
func (f *FAQService) Answer(ctx context.Context, sessionID string, index int) (*models.QueryResponse, error) {
	if index < 0 || index >= len(faqCatalogue) {
		return nil, fmt.Errorf("no FAQ with index %d", index)
	}
	return f.chat.AnswerDirect(ctx, sessionID, faqCatalogue[index].Question), nil
}
