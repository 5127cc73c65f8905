package mailer

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"catering-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// silentServer accepts connections and never sends the SMTP greeting.
func silentServer(t *testing.T) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		ln.Close()
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				<-done
				conn.Close()
			}()
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func TestSMTPSender_StalledServerHonoursContext(t *testing.T) {
	host, port := silentServer(t)
	sender := New(utils.EmailConfig{Host: host, Port: port, From: "kitchen@example.com"}, zap.NewNop())
	require.IsType(t, &SMTPSender{}, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, "maria@example.com", "Your food tasting invitation", "<p>hello</p>")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSender_RejectsBadAddresses(t *testing.T) {
	sender := New(utils.EmailConfig{Host: "127.0.0.1", Port: 1, From: "not an address"}, zap.NewNop())

	err := sender.Send(context.Background(), "maria@example.com", "Hi", "<p>hi</p>")
	assert.ErrorContains(t, err, "set sender")
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	sender := New(utils.EmailConfig{Host: "127.0.0.1", Port: 1, From: "kitchen@example.com"}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, "maria@example.com", "Hi", "<p>hi</p>"), context.Canceled)
}

func TestLogSender_DropsBody(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sender := New(utils.EmailConfig{}, zap.New(core))
	require.IsType(t, &LogSender{}, sender)

	link := "http://web.test/tasting/confirm?token=9e107d9d372bb6826bd81d3542a419d6"
	require.NoError(t, sender.Send(context.Background(), "maria@example.com", "Your food tasting invitation", link))

	entries := logs.FilterMessage("Email delivery disabled, message dropped").All()
	require.Len(t, entries, 1)
	for _, value := range entries[0].ContextMap() {
		assert.NotContains(t, value, "9e107d9d372bb6826bd81d3542a419d6")
	}
}

func TestNewMessage_EncodesSubject(t *testing.T) {
	msg, err := newMessage("kitchen@example.com", "ana@example.com",
		"Tasting confirmée\r\nBcc: intruder@example.com", "<p>hi</p>")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "Subject: =?UTF-8?")
	assert.NotContains(t, raw, "confirmée")
	for _, line := range strings.Split(raw, "\r\n") {
		assert.False(t, strings.HasPrefix(line, "Bcc:"), "injected header line %q", line)
	}
}
