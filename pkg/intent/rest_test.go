package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovs-container-lab/vport-intents/pkg/flowkey"
)

func testIntent() Intent {
	return Intent{
		Version: Version,
		TTPDPID: "00:00:00:00:00:00:00:01",
		TTPPort: 3,
		STPDPID: "00:00:00:00:00:00:00:02",
		STPPort: 1,
		Match: flowkey.Match{
			flowkey.DLSrc: "11:22:33:44:55:66",
			flowkey.DLDst: "00:0d:b9:2f:56:64",
		},
	}
}

func TestRESTSubmit(t *testing.T) {
	id := uuid.New()
	var received Intent

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/intent/tunnels", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Location", "/intent/tunnels/"+id.String())
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL+"/", time.Second)
	got, err := client.Submit(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, testIntent(), received)
}

func TestRESTSubmitFailures(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		location string
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "missing location", status: http.StatusCreated},
		{name: "bad id", status: http.StatusCreated, location: "/intent/tunnels/not-a-uuid"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.location != "" {
					w.Header().Set("Location", tc.location)
				}
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := NewRESTClient(server.URL, time.Second)
			id, err := client.Submit(context.Background(), testIntent())
			assert.ErrorIs(t, err, ErrIntentService)
			assert.Equal(t, uuid.Nil, id)
		})
	}
}

func TestRESTSubmitUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewRESTClient(url, time.Second)
	_, err := client.Submit(context.Background(), testIntent())
	assert.ErrorIs(t, err, ErrIntentService)
}

func TestRESTWithdraw(t *testing.T) {
	id := uuid.New()

	testCases := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "no content", status: http.StatusNoContent},
		{name: "ok", status: http.StatusOK},
		{name: "already gone", status: http.StatusNotFound},
		{name: "server error", status: http.StatusBadGateway, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/intent/tunnels/"+id.String(), r.URL.Path)
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			err := NewRESTClient(server.URL, time.Second).Withdraw(context.Background(), id)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrIntentService)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIDFromLocation(t *testing.T) {
	id := uuid.New()

	got, err := idFromLocation("http://127.0.0.1:8080/intent/tunnels/" + id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = idFromLocation("")
	assert.Error(t, err)
}
