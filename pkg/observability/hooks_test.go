package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testSessionHooks struct {
	NoopSessionHooks
	loads int
}

func (h *testSessionHooks) OnLoadStart(context.Context, string) { h.loads++ }

type testCacheHooks struct{ NoopCacheHooks }

type testHTTPHooks struct{ NoopHTTPHooks }

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Session().(NoopSessionHooks); !ok {
		t.Error("Session() should return NoopSessionHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	custom := &testSessionHooks{}
	SetSessionHooks(custom)
	Session().OnLoadStart(context.Background(), "run.json")
	if custom.loads != 1 {
		t.Errorf("custom hook calls = %d, want 1", custom.loads)
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	SetSessionHooks(nil)
	if Session() != custom {
		t.Error("SetSessionHooks(nil) should keep existing hooks")
	}

	Reset()
	if _, ok := Session().(NoopSessionHooks); !ok {
		t.Error("Reset should restore defaults")
	}
}

func TestSettersKeepOtherHooks(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	sess, cache, http := &testSessionHooks{}, &testCacheHooks{}, &testHTTPHooks{}
	for _, set := range []func(){
		func() { SetSessionHooks(sess) },
		func() { SetCacheHooks(cache) },
		func() { SetHTTPHooks(http) },
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set()
			_ = Session()
		}()
	}
	wg.Wait()

	if Session() != sess || Cache() != cache || HTTP() != http {
		t.Error("a concurrent Set call lost another registration")
	}
	NoopSessionHooks{}.OnFlush(context.Background(), "run.json", 1, errors.New("offline"))
	NoopHTTPHooks{}.OnResponse(context.Background(), "GET", "localhost:5000", "/list-json", 200, time.Second)
}
