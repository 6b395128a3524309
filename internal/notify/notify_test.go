package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent []Message
}

func (r *recorder) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestNotifierRendersLinks(t *testing.T) {
	rec := &recorder{}
	n := New(rec, "")

	require.NoError(t, n.SendInvite(context.Background(), "Ada", "ada@example.com", "https://app/invite?token=abc"))
	require.NoError(t, n.SendPasswordReset(context.Background(), "Ada", "ada@example.com", "https://app/reset?token=def"))

	require.Len(t, rec.sent, 2)
	assert.Equal(t, "ada@example.com", rec.sent[0].To.Address)
	assert.Contains(t, rec.sent[0].Subject, "EduHub")
	assert.Contains(t, rec.sent[0].TextContent, "https://app/invite?token=abc")
	assert.Contains(t, rec.sent[1].HTMLContent, "https://app/reset?token=def")
}

func TestNotifierEscapesNameInHTML(t *testing.T) {
	rec := &recorder{}
	n := New(rec, "")

	name := `<a href="https://evil.example">Verify</a>`
	require.NoError(t, n.SendInvite(context.Background(), name, "ada@example.com", "https://app/invite?token=abc"))
	require.NoError(t, n.SendPasswordReset(context.Background(), name, "ada@example.com", "https://app/reset?token=def"))

	require.Len(t, rec.sent, 2)
	for _, msg := range rec.sent {
		assert.NotContains(t, msg.HTMLContent, "evil.example\">")
		assert.NotContains(t, msg.HTMLContent, "<a href=\"https://evil")
		assert.Contains(t, msg.HTMLContent, "&lt;a href=")
		assert.Contains(t, msg.TextContent, name)
	}
	assert.Contains(t, rec.sent[0].HTMLContent, `href="https://app/invite?token=abc"`)
}
