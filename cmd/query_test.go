package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsCommand(t *testing.T) {
	isolateEnv(t)
	useFakeGoogle(t)

	out, _, err := execute(t, "", "events", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Today is ")
	assert.Contains(t, out, "Start: 2030-01-07T09:00:00Z, Summary: Standup, Creator: lead@example.com")
}

func TestEmailsCommand(t *testing.T) {
	isolateEnv(t)
	useFakeGoogle(t)

	out, _, err := execute(t, "", "emails")
	require.NoError(t, err)
	assert.Contains(t, out, "Messages:\n")
	assert.Contains(t, out, "ID: m1")
	assert.Contains(t, out, "Unread: true")
}

func TestEmailsCommand_InvalidLimit(t *testing.T) {
	isolateEnv(t)
	useFakeGoogle(t)

	_, _, err := execute(t, "", "emails", "--limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Configuration error: ")
}

func TestMessageCommand(t *testing.T) {
	isolateEnv(t)
	useFakeGoogle(t)

	out, _, err := execute(t, "", "message", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "Shall we meet at noon?")

	_, _, err = execute(t, "", "message", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not found: ")

	_, _, err = execute(t, "", "message")
	assert.Error(t, err)
}

func TestDraftCommand(t *testing.T) {
	isolateEnv(t)
	fake := useFakeGoogle(t)

	out, _, err := execute(t, "", "draft", "--body", "Noon works.", "--reply-to", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "Draft created. ID: d1")

	drafts := fake.Drafts()
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0], "To: alice@example.com")
	assert.Contains(t, drafts[0], "Subject: Re: Lunch")
}

func TestDraftCommand_RequiresBody(t *testing.T) {
	isolateEnv(t)
	fake := useFakeGoogle(t)

	_, _, err := execute(t, "", "draft", "--to", "bob@example.com")
	require.Error(t, err)
	assert.Empty(t, fake.Drafts())
}
