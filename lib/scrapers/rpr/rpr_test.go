package rpr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lotscout-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const loginPage = `<!DOCTYPE html>
<html><body>
<form action="/account/login" method="post">
	<input type="hidden" name="__RequestVerificationToken" value="tok-123" />
	<input type="hidden" name="ReturnUrl" value="/home" />
	<input type="hidden" value="nameless-should-be-skipped" />
	<input type="text" name="Email" />
	<input type="password" name="Password" />
</form>
</body></html>`

func newTestClient(t *testing.T, baseUrl string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	client, err := NewClient(ctx, ClientOptions{BaseUrl: baseUrl})
	require.NoError(t, err)
	return client
}

func TestExtractLoginForm(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/rpr")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/welcome", http.StatusFound)
	})
	mux.HandleFunc("/welcome", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	form, err := client.ExtractLoginForm(context.Background())
	require.NoError(t, err)

	require.Equal(t, "/account/login", form.Action)
	require.Equal(t, "POST", form.Method)
	require.Equal(t, server.URL+"/welcome", form.OriginUrl)
	require.Equal(t, map[string]string{
		"__RequestVerificationToken": "tok-123",
		"ReturnUrl":                  "/home",
	}, form.HiddenFields)
}

func TestExtractLoginFormNotFound(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/rpr")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ExtractLoginForm(context.Background())
	require.ErrorIs(t, err, ErrLoginFormNotFound)
}

func TestResolveAction(t *testing.T) {
	form := LoginForm{Action: "/login", OriginUrl: "https://example.com/"}
	target, err := form.ResolveAction()
	require.NoError(t, err)
	require.Equal(t, "https://example.com/login", target)

	form = LoginForm{Action: "https://auth.example.com/signin", OriginUrl: "https://example.com/"}
	target, err = form.ResolveAction()
	require.NoError(t, err)
	require.Equal(t, "https://auth.example.com/signin", target)
}

func TestLoginSuccess(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/rpr")
	defer cleanup()

	var gotForm map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/account/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		http.SetCookie(w, &http.Cookie{Name: "portal_session", Value: "abc"})
		http.Redirect(w, r, "/home", http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>dashboard</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	form := LoginForm{
		Action:       "/account/login",
		Method:       "POST",
		HiddenFields: map[string]string{"__RequestVerificationToken": "tok-123"},
		OriginUrl:    server.URL + "/",
	}

	err := client.Login(context.Background(), form, "user@example.com", "hunter2")
	require.NoError(t, err)
	require.True(t, client.LoggedIn())

	require.Equal(t, map[string]string{
		"__RequestVerificationToken": "tok-123",
		"Email":                      "user@example.com",
		"Password":                   "hunter2",
	}, gotForm)
}

func TestLoginFailureStaysOnAuthPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/rpr")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/account/login", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/auth/signin?failed=1", http.StatusFound)
	})
	mux.HandleFunc("/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		// 200 on the auth page is still a failed login
		fmt.Fprint(w, `<html><body>
			<div class="alert alert-danger">Invalid email or password.</div>
		</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	form := LoginForm{
		Action:       "/account/login",
		Method:       "POST",
		HiddenFields: map[string]string{},
		OriginUrl:    server.URL + "/",
	}

	err := client.Login(context.Background(), form, "user@example.com", "wrong")
	require.ErrorIs(t, err, ErrLoginFailed)
	require.False(t, client.LoggedIn())

	var loginErr *LoginError
	require.ErrorAs(t, err, &loginErr)
	require.Contains(t, loginErr.FinalUrl, "/auth/signin")
	require.Contains(t, loginErr.Diagnostics, "Invalid email or password.")
}

func TestClassifyLoginUrl(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://www.narrpr.com/home", true},
		{"https://auth.narrpr.com/home", true},
		{"https://auth.narrpr.com/signin", false},
		{"https://www.narrpr.com/login?err=1", false},
		{"https://www.narrpr.com/dashboard", true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, classifyLoginUrl(c.url), "url: %s", c.url)
	}
}

func loggedInTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()

	mux.HandleFunc("/account/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "portal_session", Value: "abc", Path: "/"})
		http.Redirect(w, r, "/home", http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "dashboard")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background(), LoginForm{
		Action:       "/account/login",
		Method:       "POST",
		HiddenFields: map[string]string{},
		OriginUrl:    server.URL + "/",
	}, "user@example.com", "hunter2")
	require.NoError(t, err)

	return client, server
}

func TestSearchAutocompleteStructured(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/rpr")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search/autocomplete", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("portal_session")
		require.NoError(t, err)
		require.Equal(t, "abc", cookie.Value)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"matches":[{"address":"100 Elm St, Atlanta, GA 30310"}], "q":%q}`, r.URL.Query().Get("q"))
	})

	client, _ := loggedInTestClient(t, mux)
	result, err := client.SearchAutocomplete(context.Background(), "100 Elm St, Atlanta, GA 30310")
	require.NoError(t, err)
	require.True(t, result.IsStructured())

	payload, ok := result.Structured.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "100 Elm St, Atlanta, GA 30310", payload["q"])
}

func TestSearchAutocompleteRawFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/rpr")
	defer cleanup()

	for _, body := range []string{
		"<html><body>session expired</body></html>",
		"{not valid json",
		"plain text",
	} {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/search/autocomplete", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})

		client, _ := loggedInTestClient(t, mux)
		result, err := client.SearchAutocomplete(context.Background(), "100 Elm St")
		require.NoError(t, err, "body: %q", body)
		require.False(t, result.IsStructured(), "body: %q", body)
		require.Equal(t, body, result.Raw)
	}
}

func TestSearchRequiresLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/rpr")
	defer cleanup()

	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SearchAutocomplete(context.Background(), "100 Elm St")
	require.Error(t, err)
}

func TestBestMatch(t *testing.T) {
	result := SearchResult{Structured: map[string]any{
		"matches": []any{
			map[string]any{"address": "100 Elm St, Atlanta, GA 30310"},
			map[string]any{"address": "100 Elmwood Dr, Atlanta, GA 30311"},
		},
	}}

	best := BestMatch(result, "100 Elm St, Atlanta, GA 30310")
	require.Equal(t, "100 Elm St, Atlanta, GA 30310", best)

	require.Equal(t, "", BestMatch(SearchResult{Raw: "nope"}, "100 Elm St"))
}
