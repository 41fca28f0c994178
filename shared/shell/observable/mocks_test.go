package observable_test

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

type mockCommand struct {
	Payload string
}

func (c mockCommand) CommandType() string {
	return "TestCommand"
}

type mockResult struct {
	shell.HandlerResult
	Value string
}

type mockHandler struct {
	result mockResult
	err    error
	calls  []mockCommand
	mu     sync.Mutex
}

func newMockHandler(result mockResult, err error) *mockHandler {
	return &mockHandler{result: result, err: err}
}

func (h *mockHandler) Handle(_ context.Context, command mockCommand) (mockResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, command)

	return h.result, h.err
}

func (h *mockHandler) GetCalls() []mockCommand {
	h.mu.Lock()
	defer h.mu.Unlock()

	calls := make([]mockCommand, len(h.calls))
	copy(calls, h.calls)

	return calls
}

type mockQuery struct{}

func (q mockQuery) QueryType() string {
	return "TestQuery"
}

type mockQueryResult struct {
	Items []string
}

func (r mockQueryResult) ResultCount() int {
	return len(r.Items)
}

type mockQueryHandler struct {
	result mockQueryResult
	err    error
}

func (h mockQueryHandler) Handle(_ context.Context, _ mockQuery) (mockQueryResult, error) {
	return h.result, h.err
}
