package employee

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(&config.EmployeeConfig{BaseURL: url, Timeout: 1}, nil)
	c.maxRetries = 1
	return c
}

func TestResolveByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/employees/by-email", r.URL.Path)
		switch r.URL.Query().Get("email") {
		case "kim@hrhub.io":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":7,"name":"Kim","email":"kim@hrhub.io","department":"HR"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	emp, err := c.ResolveByEmail(context.Background(), " Kim@HRHub.io ")
	require.NoError(t, err)
	assert.Equal(t, uint(7), emp.ID)
	assert.Equal(t, "HR", emp.Department)

	_, err = c.ResolveByEmail(context.Background(), "nobody@hrhub.io")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.ResolveByEmail(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveByEmailRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":3,"email":"lee@hrhub.io"}`))
	}))
	defer srv.Close()

	emp, err := newTestClient(srv.URL).ResolveByEmail(context.Background(), "lee@hrhub.io")
	require.NoError(t, err)
	assert.Equal(t, uint(3), emp.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResolveByEmailUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ResolveByEmail(context.Background(), "lee@hrhub.io")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
