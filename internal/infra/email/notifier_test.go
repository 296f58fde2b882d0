package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNotifyFailureSendsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewSMTPNotifier("mailhog", 1025, "noreply@fiapx.local", zaptest.NewLogger(t))
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := n.NotifyFailure(context.Background(), "student@fiapx.local", "run-1", "u1/lesson.mp4", "decode lesson.mp4: exit status 1,\noutput: moov atom not found")
	require.NoError(t, err)

	assert.Equal(t, "mailhog:1025", gotAddr)
	assert.Equal(t, "noreply@fiapx.local", gotFrom)
	assert.Equal(t, []string{"student@fiapx.local"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "Subject: FIAP X - Lesson Materials Failed [Run run-1]")
	assert.Contains(t, msg, "Video: u1/lesson.mp4")
	assert.Contains(t, msg, "Error: decode lesson.mp4: exit status 1, output: moov atom not found\r\n")
}

func TestNotifyFailureReturnsSendError(t *testing.T) {
	n := NewSMTPNotifier("mailhog", 1025, "noreply@fiapx.local", zaptest.NewLogger(t))
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.NotifyFailure(context.Background(), "student@fiapx.local", "run-1", "u1/lesson.mp4", "boom")
	assert.ErrorContains(t, err, "connection refused")
}
