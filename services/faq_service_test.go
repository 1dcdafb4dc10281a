package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFAQList(t *testing.T) {
	faq := NewFAQService(nil)

	faqs := faq.List()
	require.Len(t, faqs, 6)
	assert.Equal(t, "How to file an FIR in India?", faqs[0].Question)
	assert.Equal(t, "Criminal Procedure", faqs[0].Category)

	// Callers get a copy, not the catalogue itself.
	faqs[0].Question = "mutated"
	assert.Equal(t, "How to file an FIR in India?", faq.List()[0].Question)
}

func TestFAQAnswer(t *testing.T) {
	gen := &fakeGenerator{script: []scriptedResult{{text: "Go to the nearest police station."}}}
	chat, _ := newTestChatService(gen, &fakeRetriever{})
	faq := NewFAQService(chat)

	resp, err := faq.Answer(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Go to the nearest police station.", resp.Answer)
	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0].prompt, "How to file an FIR in India?")

	_, err = faq.Answer(context.Background(), "", 42)
	assert.Error(t, err)
}
