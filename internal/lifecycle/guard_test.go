package lifecycle

import "testing"

func readyState(authenticated bool) State {
	state := State{AuthReady: true}
	if authenticated {
		state.Identity = testIdentity()
		state.Profile = testProfile()
	}
	return state
}

func TestDecide_UnauthenticatedOnProtectedPath(t *testing.T) {
	decision := Decide(readyState(false), "/candidates/42")

	if !decision.Redirect {
		t.Fatal("expected a redirect")
	}
	if decision.To != "/login?from=%2Fcandidates%2F42" {
		t.Errorf("expected escaped from parameter, got %q", decision.To)
	}
}

func TestDecide_AuthenticatedOnRootRedirectsToDashboard(t *testing.T) {
	decision := Decide(readyState(true), "/")

	if !decision.Redirect || decision.To != "/dashboard" {
		t.Errorf("expected redirect to /dashboard, got %+v", decision)
	}
}

func TestDecide_AuthenticatedOnAllowedPathIsNoOp(t *testing.T) {
	for _, path := range []string{
		"/dashboard",
		"/settings/billing",
		"/build-profile",
		"/linkedin-callback",
		"/linkedin-token-callback",
	} {
		if decision := Decide(readyState(true), path); decision.Redirect {
			t.Errorf("expected no redirect for %s, got %+v", path, decision)
		}
	}
}

func TestDecide_AuthenticatedOnAuthPageRedirectsToDashboard(t *testing.T) {
	decision := Decide(readyState(true), "/login")

	if !decision.Redirect || decision.To != "/dashboard" {
		t.Errorf("expected redirect to /dashboard, got %+v", decision)
	}
}

func TestDecide_UnauthenticatedOnPublicPathIsNoOp(t *testing.T) {
	for _, path := range []string{"/", "/login", "/signup", "/pricing", "/login?from=%2Fdashboard"} {
		if decision := Decide(readyState(false), path); decision.Redirect {
			t.Errorf("expected no redirect for %s, got %+v", path, decision)
		}
	}
}

func TestDecide_DefersUntilAuthReady(t *testing.T) {
	state := State{Identity: testIdentity()} // AuthReady=false

	if decision := Decide(state, "/"); decision.Redirect {
		t.Error("no redirect decision may be made before AuthReady")
	}
}

func TestDecide_DefersWhileLoading(t *testing.T) {
	state := readyState(false)
	state.IsLoading = true

	if decision := Decide(state, "/candidates/42"); decision.Redirect {
		t.Error("no redirect decision may be made during a network round-trip")
	}
}
