package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecnote/internal/translate"
	"lecnote/internal/types"
)

// createMockUpstream simulates the Papago API returning translatedText.
func createMockUpstream(t *testing.T, translatedText string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"message": map[string]interface{}{
				"result": map[string]string{"translatedText": translatedText},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

// createFailingUpstream answers every call with a server error.
func createFailingUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errorMessage":"internal","errorCode":"E"}`))
	}))
}

func newRelay(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	papago := translate.NewPapagoClient(translate.PapagoConfig{URL: upstreamURL, ClientID: "id", ClientSecret: "secret"})
	srv := httptest.NewServer(NewServer(papago, Options{Language: "en-US", ChunkWords: 2}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestTranslateSuccess(t *testing.T) {
	upstream := createMockUpstream(t, "안녕")
	defer upstream.Close()
	relay := newRelay(t, upstream.URL)

	resp, err := http.Post(relay.URL+"/translate", "application/json", strings.NewReader(`{"text":"hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{"translatedText": "안녕"}, body)
}

func TestTranslateUpstreamFailure(t *testing.T) {
	upstream := createFailingUpstream(t)
	defer upstream.Close()
	relay := newRelay(t, upstream.URL)

	resp, err := http.Post(relay.URL+"/translate", "application/json", strings.NewReader(`{"text":"hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, ErrorBody, strings.TrimSpace(string(raw)))

	var js interface{}
	assert.Error(t, json.Unmarshal(raw, &js), "error body must not be JSON")
}

func TestTranslateUpstreamUnreachable(t *testing.T) {
	upstream := createMockUpstream(t, "x")
	upstreamURL := upstream.URL
	upstream.Close()
	relay := newRelay(t, upstreamURL)

	resp, err := http.Post(relay.URL+"/translate", "application/json", strings.NewReader(`{"text":"hello"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTranslateMalformedBody(t *testing.T) {
	upstream := createMockUpstream(t, "x")
	defer upstream.Close()
	relay := newRelay(t, upstream.URL)

	resp, err := http.Post(relay.URL+"/translate", "application/json", strings.NewReader(`{"text":`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranslateFormBody(t *testing.T) {
	upstream := createMockUpstream(t, "안녕")
	defer upstream.Close()
	relay := newRelay(t, upstream.URL)

	resp, err := http.PostForm(relay.URL+"/translate", url.Values{"text": {"hello"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	var body translate.TranslateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "안녕", body.TranslatedText)
}

func TestTranslateMethodNotAllowed(t *testing.T) {
	upstream := createMockUpstream(t, "x")
	defer upstream.Close()
	relay := newRelay(t, upstream.URL)

	resp, err := http.Get(relay.URL + "/translate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	upstream := createMockUpstream(t, "x")
	defer upstream.Close()
	relay := newRelay(t, upstream.URL)

	req, err := http.NewRequest(http.MethodOptions, relay.URL+"/translate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "content-type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestHealthz(t *testing.T) {
	relay := newRelay(t, "http://127.0.0.1:1")

	resp, err := http.Get(relay.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(raw))
}

type stubTranslator struct{ fail bool }

func (s stubTranslator) Translate(ctx context.Context, text string) (string, error) {
	if s.fail {
		return "", errors.New("upstream down")
	}
	return "[" + text + "]", nil
}

func dialFeed(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transcript" + query
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) FeedReply {
	t.Helper()
	var reply FeedReply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestTranscriptFeed(t *testing.T) {
	srv := httptest.NewServer(NewServer(stubTranslator{}, Options{Language: "en-US", ChunkWords: 2}).Handler())
	defer srv.Close()
	conn := dialFeed(t, srv, "")

	hello := readReply(t, conn)
	assert.Equal(t, MsgLines, hello.Type)
	assert.NotEmpty(t, hello.Session)
	assert.False(t, hello.Listening)

	require.NoError(t, conn.WriteJSON(FeedRequest{Type: MsgToggle}))
	started := readReply(t, conn)
	assert.True(t, started.Listening)
	assert.Equal(t, hello.Session, started.Session)

	require.NoError(t, conn.WriteJSON(FeedRequest{Type: MsgTranscript, Transcript: "one two three"}))
	lines := readReply(t, conn)
	require.Len(t, lines.Lines, 1)
	assert.Equal(t, "one two", lines.Lines[0].Text)

	require.NoError(t, conn.WriteJSON(FeedRequest{Type: MsgTranslate, Index: 0}))
	tr := readReply(t, conn)
	assert.Equal(t, MsgTranslation, tr.Type)
	assert.Equal(t, "[one two]", tr.Translated)

	require.NoError(t, conn.WriteJSON(FeedRequest{Type: MsgToggle}))
	stopped := readReply(t, conn)
	assert.False(t, stopped.Listening)
	require.Len(t, stopped.Lines, 1)
	assert.Equal(t, "three", stopped.Lines[0].Text)
}

func TestTranscriptFeedKoreanQuery(t *testing.T) {
	srv := httptest.NewServer(NewServer(stubTranslator{}, Options{Language: "en-US"}).Handler())
	defer srv.Close()
	conn := dialFeed(t, srv, "?lang=ko-KR")
	readReply(t, conn)

	require.NoError(t, conn.WriteJSON(FeedRequest{Type: MsgToggle}))
	readReply(t, conn)
	require.NoError(t, conn.WriteJSON(FeedRequest{Type: MsgTranscript, Transcript: "감사합니다 그리고"}))
	lines := readReply(t, conn)
	require.Len(t, lines.Lines, 1)
	assert.Equal(t, "감사합니다", lines.Lines[0].Text)
}

func TestTranscriptFeedErrors(t *testing.T) {
	srv := httptest.NewServer(NewServer(stubTranslator{fail: true}, Options{}).Handler())
	defer srv.Close()
	conn := dialFeed(t, srv, "")
	readReply(t, conn)

	require.NoError(t, conn.WriteJSON(FeedRequest{Type: "bogus"}))
	assert.Equal(t, MsgError, readReply(t, conn).Type)

	require.NoError(t, conn.WriteJSON(FeedRequest{Type: MsgTranslate, Index: 3}))
	assert.Equal(t, MsgError, readReply(t, conn).Type)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServer(stubTranslator{}, Options{}).Serve(ctx, ln)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &types.Config{Provider: "papago"})
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))

	srv, err := NewFromConfig(context.Background(), &types.Config{
		Provider:           "papago",
		PapagoClientID:     "id",
		PapagoClientSecret: "secret",
		RelayAddr:          ":6123",
		MDNSEnabled:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, ":6123", srv.opts.Addr)
	assert.True(t, srv.opts.MDNS)
}
