package telegram

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChannelAnalyst/internal/domain"
)

type recorded struct {
	path        string
	contentType string
	form        map[string]string
	document    string
	filename    string
}

func newBotServer(t *testing.T, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()

	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), form: map[string]string{}}
		if strings.HasPrefix(rec.contentType, "multipart/") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			rec.form["chat_id"] = r.FormValue("chat_id")
			file, header, err := r.FormFile("document")
			require.NoError(t, err)
			raw, _ := io.ReadAll(file)
			rec.document = string(raw)
			rec.filename = header.Filename
		} else {
			require.NoError(t, r.ParseForm())
			for k := range r.PostForm {
				rec.form[k] = r.PostForm.Get(k)
			}
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSendTextUsesHTMLMessage(t *testing.T) {
	srv, calls := newBotServer(t, `{"ok":true,"result":{}}`)
	n := NewNotifier(NewClient(srv.URL, "TOKEN", srv.Client()), 0)

	err := n.SendText(context.Background(), -1001234, "Цена < 5 & рост <b>важно</b><img src=x>")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/botTOKEN/sendMessage", call.path)
	assert.Equal(t, "-1001234", call.form["chat_id"])
	assert.Equal(t, "HTML", call.form["parse_mode"])
	assert.Equal(t, "Цена &lt; 5 &amp; рост &lt;b&gt;важно&lt;/b&gt;&lt;img src=x&gt;", call.form["text"])
}

func TestSendTextKeepsQuotedMarkupVerbatim(t *testing.T) {
	srv, calls := newBotServer(t, `{"ok":true,"result":{}}`)
	n := NewNotifier(NewClient(srv.URL, "TOKEN", srv.Client()), 0)

	require.NoError(t, n.SendText(context.Background(), 42, "a <script>alert(1)</script> b"))

	require.Len(t, *calls, 1)
	text := (*calls)[0].form["text"]
	assert.Equal(t, "a &lt;script&gt;alert(1)&lt;/script&gt; b", text)
	assert.Equal(t, "a <script>alert(1)</script> b", html.UnescapeString(text))
}

func TestSendTextLongGoesAsDocument(t *testing.T) {
	srv, calls := newBotServer(t, `{"ok":true,"result":{}}`)
	n := NewNotifier(NewClient(srv.URL, "TOKEN", srv.Client()), 0)
	n.now = func() time.Time { return time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC) }

	long := strings.Repeat("я", MessageLimit+1)
	require.NoError(t, n.SendText(context.Background(), 42, long))

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/botTOKEN/sendDocument", call.path)
	assert.Equal(t, "42", call.form["chat_id"])
	assert.Equal(t, long, call.document)
	assert.Equal(t, "report_20250310_180000.txt", call.filename)
}

func TestSendTextAPIErrorIsDependency(t *testing.T) {
	srv, _ := newBotServer(t, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	n := NewNotifier(NewClient(srv.URL, "TOKEN", srv.Client()), 0)

	err := n.SendText(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendTextWithoutToken(t *testing.T) {
	n := NewNotifier(NewClient("http://127.0.0.1:0", "", nil), 0)
	assert.ErrorIs(t, n.SendText(context.Background(), 1, "hi"), domain.ErrValidation)
}

func TestListenForwardsSourceChannelPosts(t *testing.T) {
	srv, calls := newBotServer(t, `{"ok":true,"result":[
		{"update_id":10,"channel_post":{"message_id":5,"date":1741600000,"text":"Пост","chat":{"id":-1001,"username":"newsfeed"}}},
		{"update_id":11,"channel_post":{"message_id":6,"date":1741600000,"text":"Чужой","chat":{"id":-2002}}},
		{"update_id":12,"channel_post":{"message_id":7,"date":1741600000,"caption":"Подпись","chat":{"id":-1001}}}
	]}`)

	l := NewListener(NewClient(srv.URL, "TOKEN", srv.Client()), -1001, "@fallback", time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []domain.Post
	err := l.Listen(ctx, func(_ context.Context, p domain.Post) {
		got = append(got, p)
		if len(got) == 2 {
			cancel()
		}
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "https://t.me/newsfeed/5", got[0].SourceURL)
	assert.Equal(t, "Пост", got[0].Text)
	assert.Equal(t, time.Unix(1741600000, 0).UTC(), got[0].PublishedAt)
	assert.Equal(t, "https://t.me/fallback/7", got[1].SourceURL)
	assert.Equal(t, "Подпись", got[1].Text)
	assert.Equal(t, int64(13), l.offset)

	require.NotEmpty(t, *calls)
	assert.Equal(t, "/botTOKEN/getUpdates", (*calls)[0].path)
	assert.Equal(t, `["channel_post"]`, (*calls)[0].form["allowed_updates"])
	assert.Equal(t, "0", (*calls)[0].form["offset"])
}

func TestPostURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://t.me/newsfeed/5", PostURL("newsfeed", -1001234, 5))
	assert.Equal(t, "https://t.me/c/1234567/9", PostURL("", -1001234567, 9))
	assert.Equal(t, "https://t.me/c/42/1", PostURL("", -42, 1))
}
