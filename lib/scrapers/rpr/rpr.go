// Package rpr logs into the RPR (Realtors Property Resource) portal
// with form credentials and runs authenticated property searches over
// the session it establishes.
package rpr

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"lotscout-backend/lib/htmlutil"
	"lotscout-backend/lib/restyutil"
	"lotscout-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrLoginFormNotFound = fmt.Errorf("could not find a login form on the entry page")
var ErrLoginFailed = fmt.Errorf("failed to login to the portal")

// markers the portal renders validation errors under
const errorSelector = `.error, .alert, [class*="error"], [class*="alert"]`

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	formSelector  string
	emailField    string
	passwordField string
	loggedIn      bool
}

type ClientOptions struct {
	BaseUrl string
	// CSS selector for the login form, defaults to "form" (first match
	// wins). override when the entry page grows a second form.
	FormSelector string
	// field names the login form expects the credentials under,
	// default to the portal's "Email"/"Password"
	EmailField    string
	PasswordField string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	// the login flow bounces through an auth subdomain, so no domain check here
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(time.Second * 15)

	telemetry.InstrumentResty(client, "scrapers/rpr/http")
	restyutil.InstrumentClient(client, restyInstrumentOutput)

	c := &Client{
		BaseUrl:       baseUrl,
		Http:          client,
		formSelector:  opts.FormSelector,
		emailField:    opts.EmailField,
		passwordField: opts.PasswordField,
	}
	if c.formSelector == "" {
		c.formSelector = "form"
	}
	if c.emailField == "" {
		c.emailField = "Email"
	}
	if c.passwordField == "" {
		c.passwordField = "Password"
	}
	return c, nil
}

// LoginForm is an immutable snapshot of the portal's login form:
// where to post, how, and the anti-forgery tokens that must ride along.
type LoginForm struct {
	Action       string
	Method       string
	HiddenFields map[string]string
	// final page url after redirects, relative actions resolve against it
	OriginUrl string
}

// ExtractLoginForm fetches the entry page and pulls the login form's
// action, method and hidden token fields out of it. Cookies set along
// the way stay in the client's jar.
func (c *Client) ExtractLoginForm(ctx context.Context) (LoginForm, error) {
	ctx, span := tracer.Start(ctx, "client:ExtractLoginForm")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch entry page")
		return LoginForm{}, err
	}

	originUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		originUrl = res.RawResponse.Request.URL.String()
	}
	span.SetAttributes(
		attribute.Int("status", res.StatusCode()),
		attribute.String("url", originUrl),
	)

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse entry page html")
		return LoginForm{}, err
	}

	form := doc.Find(c.formSelector).First()
	if len(form.Nodes) == 0 {
		span.SetStatus(codes.Error, ErrLoginFormNotFound.Error())
		return LoginForm{}, ErrLoginFormNotFound
	}

	hidden := map[string]string{}
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		hidden[name] = input.AttrOr("value", "")
	})

	return LoginForm{
		Action:       form.AttrOr("action", ""),
		Method:       strings.ToUpper(form.AttrOr("method", "GET")),
		HiddenFields: hidden,
		OriginUrl:    originUrl,
	}, nil
}

// LoginError carries whatever validation text the portal rendered
// alongside the rejected login. Diagnostics are best-effort and may
// be empty.
type LoginError struct {
	FinalUrl    string
	Diagnostics []string
}

func (e *LoginError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("%s: still on %s", ErrLoginFailed, e.FinalUrl)
	}
	return fmt.Sprintf("%s: %s", ErrLoginFailed, strings.Join(e.Diagnostics, "; "))
}

func (e *LoginError) Unwrap() error {
	return ErrLoginFailed
}

// ResolveAction resolves the form's action against the page it was
// extracted from, per standard base-url resolution.
func (f LoginForm) ResolveAction() (string, error) {
	action, err := url.Parse(f.Action)
	if err != nil {
		return "", err
	}
	if action.IsAbs() {
		return f.Action, nil
	}
	origin, err := url.Parse(f.OriginUrl)
	if err != nil {
		return "", err
	}
	return origin.ResolveReference(action).String(), nil
}

// Login submits the extracted form plus credentials. Success is
// classified off the final redirect target: landing on the home page
// wins outright, otherwise any url still mentioning auth or login
// means the portal bounced us. The session lives in the client's
// cookie jar and is read-only after a successful login.
func (c *Client) Login(ctx context.Context, form LoginForm, email, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	target, err := form.ResolveAction()
	if err != nil {
		span.SetStatus(codes.Error, "failed to resolve form action")
		return err
	}
	span.SetAttributes(attribute.String("action", target))

	payload := make(map[string]string, len(form.HiddenFields)+2)
	for name, value := range form.HiddenFields {
		payload[name] = value
	}
	payload[c.emailField] = email
	payload[c.passwordField] = password

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(payload).
		Post(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	span.SetAttributes(
		attribute.Int("status", res.StatusCode()),
		attribute.String("final_url", finalUrl),
	)

	if !classifyLoginUrl(finalUrl) {
		loginErr := &LoginError{FinalUrl: finalUrl}
		doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		if err == nil {
			loginErr.Diagnostics = htmlutil.SelectionTexts(doc.Find(errorSelector))
		}
		span.SetStatus(codes.Error, loginErr.Error())
		return loginErr
	}

	c.loggedIn = true
	return nil
}

// LoggedIn reports whether a login has been classified successful.
// search calls refuse to run before that.
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}

func classifyLoginUrl(finalUrl string) bool {
	u := strings.ToLower(finalUrl)
	if strings.Contains(u, "/home") {
		return true
	}
	// heuristic: the auth pages all carry one of these substrings,
	// nothing past them does
	return !strings.Contains(u, "auth") && !strings.Contains(u, "login")
}
