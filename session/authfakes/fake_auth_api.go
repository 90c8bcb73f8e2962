package authfakes

import (
	"context"
	"errors"
	"sync"

	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/session"
)

var _ session.AuthAPI = (*FakeAuthAPI)(nil)

// FakeAuthAPI is an in-memory stand-in for the gateway's auth endpoints.
// Responses and errors are settable per call; call counts are recorded so
// tests can assert de-duplication behaviour.
type FakeAuthAPI struct {
	lock sync.Mutex

	LoginOutput   *gateway.LoginOutput
	LoginErr      error
	RegisterOut   *gateway.RegisterOutput
	RegisterErr   error
	RefreshOutput *gateway.RefreshTokenOutput
	RefreshErr    error

	// RefreshBarrier, when non-nil, blocks refresh calls until the channel is
	// closed, letting tests hold a refresh in flight.
	RefreshBarrier chan struct{}

	loginCalls    int
	registerCalls int
	refreshCalls  int
}

func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{}
}

func (f *FakeAuthAPI) Login(ctx context.Context, input gateway.LoginInput) (*gateway.LoginOutput, error) {
	f.lock.Lock()
	f.loginCalls++
	out, err := f.LoginOutput, f.LoginErr
	f.lock.Unlock()

	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("fake login output not configured")
	}
	return out, nil
}

func (f *FakeAuthAPI) Register(ctx context.Context, input gateway.RegisterInput) (*gateway.RegisterOutput, error) {
	f.lock.Lock()
	f.registerCalls++
	out, err := f.RegisterOut, f.RegisterErr
	f.lock.Unlock()

	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("fake register output not configured")
	}
	return out, nil
}

func (f *FakeAuthAPI) RefreshToken(ctx context.Context, refreshToken string) (*gateway.RefreshTokenOutput, error) {
	f.lock.Lock()
	f.refreshCalls++
	out, err := f.RefreshOutput, f.RefreshErr
	barrier := f.RefreshBarrier
	f.lock.Unlock()

	if barrier != nil {
		<-barrier
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("fake refresh output not configured")
	}
	return out, nil
}

func (f *FakeAuthAPI) LoginCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.loginCalls
}

func (f *FakeAuthAPI) RegisterCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.registerCalls
}

func (f *FakeAuthAPI) RefreshCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.refreshCalls
}
