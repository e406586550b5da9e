package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestIsTransient(t *testing.T) {
	t.Run("TransientError", func(t *testing.T) {
		err := &TransientError{Err: errors.New("gateway returned 503")}
		assert.True(t, IsTransient(err))
	})

	t.Run("WrappedTransientError", func(t *testing.T) {
		inner := &TransientError{Err: errors.New("connection reset")}
		err := fmt.Errorf("sending SMS: %w", inner)
		assert.True(t, IsTransient(err))
	})

	t.Run("PermanentError", func(t *testing.T) {
		assert.False(t, IsTransient(errors.New("invalid recipient")))
	})

	t.Run("NilError", func(t *testing.T) {
		assert.False(t, IsTransient(nil))
	})
}

func TestTransientErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: i/o timeout")
	err := &TransientError{Err: inner}

	assert.Equal(t, inner.Error(), err.Error())
	assert.True(t, errors.Is(err, inner))
}

func TestMockSMSService(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsSentMessages", func(t *testing.T) {
		mock := NewMockSMSService()

		err := mock.Send(ctx, "+31612345678", "Hello Alice, your code is ABC123.", nil, strPtr("Invitewave"))
		require.NoError(t, err)

		sent := mock.GetSentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "+31612345678", sent[0].Recipient)
		assert.Equal(t, "Hello Alice, your code is ABC123.", sent[0].Message)
		assert.Equal(t, "Invitewave", sent[0].Sender)
		assert.False(t, sent[0].SentAt.IsZero())
	})

	t.Run("FailForInjectsErrors", func(t *testing.T) {
		mock := NewMockSMSService()
		mock.FailFor = map[string]error{
			"+31600000000": &TransientError{Err: errors.New("gateway timeout")},
		}

		err := mock.Send(ctx, "+31600000000", "hello", nil, nil)
		require.Error(t, err)
		assert.True(t, IsTransient(err))
		assert.Empty(t, mock.GetSentMessages())

		// Other recipients are unaffected.
		require.NoError(t, mock.Send(ctx, "+31611111111", "hello", nil, nil))
		assert.Len(t, mock.GetSentMessages(), 1)
	})

	t.Run("ClearSentMessages", func(t *testing.T) {
		mock := NewMockSMSService()
		require.NoError(t, mock.Send(ctx, "+31612345678", "one", nil, nil))
		require.NoError(t, mock.Send(ctx, "+31687654321", "two", nil, nil))
		require.Len(t, mock.GetSentMessages(), 2)

		mock.ClearSentMessages()
		assert.Empty(t, mock.GetSentMessages())
	})

	t.Run("GetSentMessagesReturnsCopy", func(t *testing.T) {
		mock := NewMockSMSService()
		require.NoError(t, mock.Send(ctx, "+31612345678", "original", nil, nil))

		sent := mock.GetSentMessages()
		sent[0].Message = "mutated"

		assert.Equal(t, "original", mock.GetSentMessages()[0].Message)
	})
}

func TestMockEmailService(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsSentEmails", func(t *testing.T) {
		mock := NewMockEmailService()

		err := mock.Send(ctx, "alice@example.com", "You are invited", "<p>Hello Alice</p>")
		require.NoError(t, err)

		sent := mock.GetSentEmails()
		require.Len(t, sent, 1)
		assert.Equal(t, "alice@example.com", sent[0].Recipient)
		assert.Equal(t, "You are invited", sent[0].Subject)
		assert.Equal(t, "<p>Hello Alice</p>", sent[0].HTMLBody)
	})

	t.Run("FailForInjectsErrors", func(t *testing.T) {
		mock := NewMockEmailService()
		mock.FailFor = map[string]error{
			"bounce@example.com": errors.New("hard bounce"),
		}

		err := mock.Send(ctx, "bounce@example.com", "subject", "body")
		require.Error(t, err)
		assert.False(t, IsTransient(err))
		assert.Empty(t, mock.GetSentEmails())
	})

	t.Run("ClearSentEmails", func(t *testing.T) {
		mock := NewMockEmailService()
		require.NoError(t, mock.Send(ctx, "a@example.com", "s", "b"))
		mock.ClearSentEmails()
		assert.Empty(t, mock.GetSentEmails())
	})
}
