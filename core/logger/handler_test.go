package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLine(t *testing.T, format logFormat, emit func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	emit(slog.New(handler))
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := captureLine(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "app"), slog.LevelInfo, "test.event",
			slog.String("status", "ok"),
			slog.String("cause", "unit"),
		)
	})

	tokens := strings.Split(line, " ")
	require.GreaterOrEqual(t, len(tokens), 6, line)
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		assert.Truef(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, expected prefix %s", i, tokens[i], prefix)
	}
	assert.Contains(t, line, "update_id=42")
	assert.Contains(t, line, "user_id=7")
	assert.Contains(t, line, "chat_id=9")
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	line := captureLine(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "invite"), slog.LevelError, "invite.create",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
			slog.String("err_kind", "network"),
		)
	})

	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"invite"`, `"event":"invite.create"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Truef(t, idx != -1 && idx > pos, "prefix %s not found in order within %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	ctx := WithRID(context.Background(), rawRID)

	kv := captureLine(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test", slog.String("status", "ok"))
	})
	assert.Contains(t, kv, "rid="+CompactRID(rawRID))
	assert.NotContains(t, kv, "rid_full=")
	assert.Contains(t, kv, "component=app")

	js := captureLine(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test", slog.String("status", "ok"))
	})
	assert.Contains(t, js, `"rid":"`+CompactRID(rawRID)+`"`)
	assert.Contains(t, js, `"rid_full":"`+rawRID+`"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger) {
		log.Info("expiry.scheduled",
			slog.Duration("delay", 60*time.Second),
			slog.Duration("duration", 1500*time.Microsecond),
		)
	})
	assert.Contains(t, line, "event=expiry.scheduled")
	assert.Contains(t, line, "delay_ms=60000")
	assert.Contains(t, line, "duration_ms=2")
}

func TestStructuredHandlerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{level: slog.LevelWarn, writer: aw, format: formatKV})
	slog.New(handler).Info("hidden")
	slog.New(handler).Warn("shown")
	require.NoError(t, aw.Close())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "event=shown")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "123456:**********", MaskToken("123456:AAH-secret"))
	assert.Equal(t, "**********", MaskToken("opaque"))
}

func TestRedactToken(t *testing.T) {
	msg := `Post "https://api.telegram.org/bot123456:AAHsecret_value-x/createChatInviteLink": timeout`
	redacted := RedactToken(msg)
	assert.NotContains(t, redacted, "AAHsecret")
	assert.Contains(t, redacted, "bot<redacted>")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "3f.co.lx", CompactRID("123:456:789"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "", CompactRID(" "))
}

func TestStructuredHandlerRedactsErr(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger) {
		log.Error("api.call", slog.String("err", `Post "https://api.telegram.org/bot123456:AAHsecret_value-x/getMe": EOF`))
	})
	assert.NotContains(t, line, "AAHsecret")
	assert.Contains(t, line, "bot<redacted>")
}

func TestContextMetaRoundTrip(t *testing.T) {
	ctx := WithRID(context.Background(), "1:2:3")
	ctx = WithUpdateMeta(ctx, 1, 3, 2)
	ctx = WithHandler(ctx, "start")
	ctx = WithHandler(ctx, "")

	assert.Equal(t, "1:2:3", RIDFrom(ctx))
	assert.Equal(t, 1, UpdateIDFrom(ctx))
	assert.Equal(t, int64(3), UserIDFrom(ctx))
	assert.Equal(t, int64(2), ChatIDFrom(ctx))
	assert.Equal(t, "start", HandlerFrom(ctx))
	assert.Equal(t, L, FromContext(ctx))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "при", SanitizeLimit("привет", 3))
	assert.Equal(t, "", SanitizeLimit("x", 0))
}

func TestAsyncWriterRejectsAfterClose(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 16)
	require.NoError(t, aw.Write([]byte("one\n")))
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	require.NoError(t, aw.Close())

	assert.Equal(t, "one\n", buf.String())
	assert.ErrorIs(t, aw.Write([]byte("two\n")), errWriterClosed)
}
