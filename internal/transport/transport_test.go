package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	filesender "github.com/fjmerc/filesender-client/sdk/go"

	"github.com/fjmerc/filesender-client/internal/storage/mock"
	"github.com/fjmerc/filesender-client/internal/transfer"
)

func newClient(t *testing.T, handler http.HandlerFunc) *filesender.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := filesender.NewClient(filesender.ClientConfig{BaseURL: server.URL, ChunkUploadSecurity: "key"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestREST_PostTransfer(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"cid":"c-1"`) || !strings.Contains(string(body), `"expires":1700000000`) {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("Location", "/rest.php/transfer/9")
		io.WriteString(w, `{"id": 9, "files": [{"id": 3, "uid": "u-3", "cid": "c-1", "name": "a.txt", "size": 10}]}`)
	})

	rt, err := NewREST(client).PostTransfer(context.Background(), transfer.Registration{
		Files:      []transfer.FileDescriptor{{Name: "a.txt", Size: 10, MimeType: "text/plain", CID: "c-1"}},
		Recipients: []string{"bob@example.org"},
		Expires:    time.Unix(1700000000, 0),
	})
	if err != nil {
		t.Fatalf("PostTransfer() error = %v", err)
	}

	if rt.ID != "9" || rt.Path != "/rest.php/transfer/9" {
		t.Errorf("registered = %+v", rt)
	}
	want := transfer.ServerFile{ID: "3", UID: "u-3", CID: "c-1", Name: "a.txt", Size: 10}
	if len(rt.Files) != 1 || rt.Files[0] != want {
		t.Errorf("files = %+v, want %+v", rt.Files, want)
	}
}

func TestREST_PutChunkCarriesKey(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest.php/file/3/chunk/0" || r.URL.Query().Get("key") != "u-3" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.WriteHeader(http.StatusOK)
	})

	ref := transfer.FileRef{TransferID: "9", ID: "3", UID: "u-3", Name: "a.txt", Size: 4}
	if err := NewREST(client).PutChunk(context.Background(), ref, []byte("abcd"), 0); err != nil {
		t.Fatalf("PutChunk() error = %v", err)
	}
}

func TestREST_DeleteTransferNotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if err := NewREST(client).DeleteTransfer(context.Background(), "9"); err != nil {
		t.Errorf("DeleteTransfer() error = %v, want nil for a missing transfer", err)
	}
}

func TestREST_ServerErrorIsTemporary(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := NewREST(client).TransferComplete(context.Background(), "9", "")

	var temp interface{ Temporary() bool }
	if !errors.As(err, &temp) || !temp.Temporary() {
		t.Errorf("TransferComplete() error = %v, want a temporary error", err)
	}
}

func TestREST_LegacyProgress(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			io.WriteString(w, "null")
			return
		}
		io.WriteString(w, `{"bytes_processed": 42}`)
	})
	rest := NewREST(client)

	p, err := rest.GetLegacyUploadProgress(context.Background(), "track")
	if err != nil || p == nil || p.BytesProcessed != 42 {
		t.Errorf("progress = %+v, %v", p, err)
	}

	p, err = rest.GetLegacyUploadProgress(context.Background(), "missing")
	if err != nil || p != nil {
		t.Errorf("progress = %+v, %v; want nil, nil", p, err)
	}
}

func submit(t *testing.T, handler http.HandlerFunc) transfer.LegacyResult {
	t.Helper()

	completions := transfer.NewCompletions()
	frame := NewFrame(newClient(t, handler), completions)

	key := transfer.CallbackKey("9", "3")
	results, err := completions.Register(key)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err = frame.Submit(context.Background(), transfer.LegacySubmission{
		TransferID:  "9",
		File:        transfer.FileRef{TransferID: "9", ID: "3", UID: "u-3", Name: "a.txt", Size: 10},
		Source:      mock.NewSource("a.txt", "text/plain", []byte("0123456789")),
		URL:         "/rest.php/file/3/whole?iframe_callback=" + key,
		CallbackKey: key,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case res := <-results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
		return transfer.LegacyResult{}
	}
}

func TestFrame_Success(t *testing.T) {
	res := submit(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		io.WriteString(w, `<script>parent.transfer_9_3({});</script>`)
	})

	if res.IsError() {
		t.Errorf("result = %+v, want success", res)
	}
}

func TestFrame_ErrorPayload(t *testing.T) {
	res := submit(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, `{"message":"file_size_does_not_match","uid":"abc"}`)
	})

	if !res.IsError() || res.Message != "file_size_does_not_match" || res.UID != "abc" {
		t.Errorf("result = %+v", res)
	}
}

func TestFrame_RequestFailure(t *testing.T) {
	res := submit(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
	})

	if !res.IsError() || res.UID != "u-3" {
		t.Errorf("result = %+v, want an error payload keyed by the file uid", res)
	}
}

func TestFrame_MissingSource(t *testing.T) {
	frame := NewFrame(nil, transfer.NewCompletions())

	if err := frame.Submit(context.Background(), transfer.LegacySubmission{CallbackKey: "k"}); err == nil {
		t.Error("Submit() without a source should fail")
	}
}
