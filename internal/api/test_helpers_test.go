package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"github.com/wxmp-assistant/relay/internal/dispatch"
	"github.com/wxmp-assistant/relay/internal/events"
	"github.com/wxmp-assistant/relay/internal/menu"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, msg dispatch.Message) dispatch.Reply {
	args := m.Called(ctx, msg)
	return args.Get(0).(dispatch.Reply)
}

type MockMenuRouter struct {
	mock.Mock
}

func (m *MockMenuRouter) Click(ctx context.Context, click menu.Click) (menu.Result, error) {
	args := m.Called(ctx, click)
	return args.Get(0).(menu.Result), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type testServerOptions struct {
	dispatcher Dispatcher
	menus      MenuRouter
	broker     *events.Broker
	store      Pinger
	registry   *prometheus.Registry
}

func newTestServer(t *testing.T, opts testServerOptions) *httptest.Server {
	t.Helper()
	if opts.dispatcher == nil {
		opts.dispatcher = &MockDispatcher{}
	}
	if opts.menus == nil {
		opts.menus = &MockMenuRouter{}
	}
	if opts.broker == nil {
		opts.broker = events.NewBroker()
	}
	if opts.registry == nil {
		opts.registry = prometheus.NewRegistry()
	}
	server := NewServer(Options{
		Dispatcher: opts.dispatcher,
		Menus:      opts.menus,
		Broker:     opts.broker,
		Store:      opts.store,
		Gatherer:   opts.registry,
	})
	return httptest.NewServer(server.Router())
}
