package service

import (
	"context"
	"encoding/json"
	"sync"
)

type call struct {
	method string
	path   string
	body   any
}

// fakeAPI replays canned JSON bodies keyed by path and records each call.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []call
	responses map[string]string
	errs      map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeAPI) Get(ctx context.Context, path string, out any) error {
	return f.do("GET", path, nil, out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, body any, out any) error {
	return f.do("POST", path, body, out)
}

func (f *fakeAPI) do(method string, path string, body any, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, path: path, body: body})
	err := f.errs[path]
	raw, ok := f.responses[path]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if out == nil || !ok {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}
