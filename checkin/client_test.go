package checkin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halvax/qrcheckin/checkin"
	interrors "github.com/halvax/qrcheckin/internal/errors"
)

func newSubmitClient(t *testing.T, handler http.Handler) *checkin.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := checkin.NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestSubmitSendsBearerCredential(t *testing.T) {
	var gotAuth string
	client := newSubmitClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"message":"check-in success"}`))
	}))

	detail, err := client.Submit(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "check-in success", detail)
	require.Equal(t, "Bearer tok", gotAuth)
}

func TestSubmitFallsBackToRawBody(t *testing.T) {
	client := newSubmitClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text response"))
	}))

	detail, err := client.Submit(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "plain text response", detail)
}

func TestSubmitRejectionWithMessageIsClassifiable(t *testing.T) {
	client := newSubmitClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"You have already checked in today"}`))
	}))

	detail, err := client.Submit(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, checkin.ClassificationSoftFailure, checkin.Classify(detail).Classification)
}

func TestSubmitErrorStatusWithoutMessage(t *testing.T) {
	client := newSubmitClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>forbidden</html>"))
	}))

	_, err := client.Submit(context.Background(), "tok")
	require.ErrorIs(t, err, interrors.ErrTransport)
}

func TestSubmitServerErrorIsTransport(t *testing.T) {
	client := newSubmitClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"try again later"}`))
	}))

	_, err := client.Submit(context.Background(), "tok")
	require.ErrorIs(t, err, interrors.ErrTransport)
}

func TestSubmitUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := checkin.NewClient(server.URL, time.Second)
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), "tok")
	require.ErrorIs(t, err, interrors.ErrTransport)
}
