package httpx

import (
	"context"
	"net/http"
	"sync"
	"time"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
	"github.com/target/aquaops-console/internal/service"
)

// fakeSession is a scripted SessionService. Login and Logout navigate like the real service.
type fakeSession struct {
	mu        sync.Mutex
	state     domainauth.SessionState
	loginErr  error
	loginUser *domainauth.User
	nav       ports.Navigator
	creds     []domainauth.Credentials
	logouts   int
	next      time.Duration
	nextAt    time.Time
}

func newFakeSession() *fakeSession {
	return &fakeSession{state: domainauth.AnonymousState(), nav: ContextNavigator{}}
}

func (f *fakeSession) State() domainauth.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

func (f *fakeSession) Paths() service.NavigationPaths { return service.DefaultNavigationPaths() }

func (f *fakeSession) Login(ctx context.Context, creds domainauth.Credentials) error {
	f.mu.Lock()
	f.creds = append(f.creds, creds)
	err := f.loginErr
	if err == nil {
		f.state = domainauth.SessionState{
			IsAuthenticated: true,
			User:            f.loginUser,
			AccessToken:     "access",
			Phase:           domainauth.PhaseAuthenticated,
		}
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.nav.Navigate(ctx, "/welcome")
	return nil
}

func (f *fakeSession) Logout(ctx context.Context) {
	f.mu.Lock()
	f.logouts++
	f.state = domainauth.AnonymousState()
	f.mu.Unlock()
	f.nav.Navigate(ctx, "/goodbye")
}

func (f *fakeSession) NextRefresh() (time.Duration, time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next, f.nextAt, f.next > 0
}

func (f *fakeSession) setUser(u *domainauth.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = domainauth.SessionState{
		IsAuthenticated: true,
		User:            u,
		AccessToken:     "access",
		Phase:           domainauth.PhaseAuthenticated,
	}
}

// checkerFunc adapts a function to RouteChecker.
type checkerFunc func(ctx context.Context, req service.RouteRequest) service.Decision

func (f checkerFunc) Check(ctx context.Context, req service.RouteRequest) service.Decision {
	return f(ctx, req)
}

// asBound marks req as coming from the browser that holds the console cookie.
func asBound(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), boundKey{}, true))
}
