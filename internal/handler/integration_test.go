package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/msomdec/client-registry/internal/domain"
	"github.com/msomdec/client-registry/internal/handler"
	"github.com/msomdec/client-registry/internal/repository/sqlite"
	"github.com/msomdec/client-registry/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type testEnv struct {
	auth    *service.AuthService
	clients *service.ClientService
	images  *service.ImageStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	images := service.NewImageStore(db.FileStore(), "/images", 1<<20)
	return &testEnv{
		auth: service.NewAuthService(
			db.Users(),
			service.NewBcryptHasher(4),
			service.NewJWTTokenService(testJWTSecret, time.Hour),
		),
		clients: service.NewClientService(db.Clients(), images),
		images:  images,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return startServer(t, newTestEnv(t))
}

func startServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, env.auth, env.clients, env.images, 1<<20, nil)

	srv := httptest.NewServer(handler.SecurityHeaders(mux))
	t.Cleanup(srv.Close)
	return srv
}

func registerAndLogin(t *testing.T, auth *service.AuthService, email string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := auth.Register(ctx, service.RegisterInput{Username: "Tester", Email: email, Password: "password123"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	result, err := auth.Login(ctx, email, "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return result.Token
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *apiClient) do(method, path, contentType string, body io.Reader) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *apiClient) json(method, path string, payload any) *http.Response {
	c.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(method, path, "application/json", body)
}

func (c *apiClient) multipart(method, path string, fields map[string]string, icon []byte) *http.Response {
	c.t.Helper()
	return c.multipartTyped(method, path, fields, icon, "image/png")
}

// multipartTyped sends icon with the given part Content-Type; an empty type
// omits the header.
func (c *apiClient) multipartTyped(method, path string, fields map[string]string, icon []byte, iconType string) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			c.t.Fatalf("write field: %v", err)
		}
	}
	if icon != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="characterIcon"; filename="avatar.png"`)
		if iconType != "" {
			h.Set("Content-Type", iconType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			c.t.Fatalf("create part: %v", err)
		}
		part.Write(icon)
	}
	if err := mw.Close(); err != nil {
		c.t.Fatalf("close multipart: %v", err)
	}
	return c.do(method, path, mw.FormDataContentType(), &buf)
}

func expectStatus(t *testing.T, resp *http.Response, want int) map[string]any {
	t.Helper()
	body := decodeEnvelope(t, resp)
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d: %v", want, resp.StatusCode, body)
	}
	return body
}

func TestIntegration_RegisterLogin(t *testing.T) {
	srv := newTestServer(t)
	api := &apiClient{t: t, base: srv.URL}

	body := expectStatus(t, api.json(http.MethodPost, "/api/users", map[string]string{
		"username": "Integration", "email": "integ@gmail.com", "password": "password123",
	}), http.StatusCreated)
	user, _ := body["user"].(map[string]any)
	if user["email"] != "integ@gmail.com" || user["id"] == "" {
		t.Fatalf("unexpected user %v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}

	expectStatus(t, api.json(http.MethodPost, "/api/users", map[string]string{
		"username": "Again", "email": "integ@gmail.com", "password": "password123",
	}), http.StatusConflict)

	body = expectStatus(t, api.json(http.MethodPost, "/api/users", map[string]string{
		"email": "x@gmail.com",
	}), http.StatusBadRequest)
	missing, _ := body["missingFields"].([]any)
	if len(missing) != 2 || missing[0] != "username" || missing[1] != "password" {
		t.Fatalf("unexpected missingFields %v", body["missingFields"])
	}

	resp := api.json(http.MethodPost, "/api/users/login", map[string]string{
		"email": "integ@gmail.com", "password": "password123",
	})
	auth := resp.Header.Get("Authorization")
	body = expectStatus(t, resp, http.StatusOK)
	if !strings.HasPrefix(auth, "Bearer ") || len(auth) < 20 {
		t.Fatalf("expected bearer token header, got %q", auth)
	}
	if body["expiresIn"] != float64(3600) {
		t.Fatalf("expected expiresIn 3600, got %v", body["expiresIn"])
	}

	expectStatus(t, api.json(http.MethodPost, "/api/users/login", map[string]string{
		"email": "integ@gmail.com", "password": "wrong-password",
	}), http.StatusUnauthorized)
	expectStatus(t, api.json(http.MethodPost, "/api/users/login", map[string]string{
		"email": "ghost@gmail.com", "password": "password123",
	}), http.StatusNotFound)
}

func TestIntegration_ClientLifecycle(t *testing.T) {
	env := newTestEnv(t)
	srv := startServer(t, env)

	anon := &apiClient{t: t, base: srv.URL}
	expectStatus(t, anon.json(http.MethodGet, "/api/clients/page/1", nil), http.StatusUnauthorized)

	api := &apiClient{t: t, base: srv.URL, token: registerAndLogin(t, env.auth, "owner@gmail.com")}

	expectStatus(t, api.json(http.MethodGet, "/api/clients/page/1", nil), http.StatusNotFound)

	// Create with a numeric key and built-in icon via JSON.
	expectStatus(t, api.json(http.MethodPost, "/api/clients", map[string]any{
		"claveCliente": 1001, "nombre": "Ana", "celular": "5512345678",
		"email": "ana@gmail.com", "characterIcon": 3,
	}), http.StatusCreated)

	expectStatus(t, api.json(http.MethodPost, "/api/clients", map[string]any{
		"claveCliente": "1001", "nombre": "Dup", "celular": "5512345678",
		"email": "dup@gmail.com", "characterIcon": "1",
	}), http.StatusConflict)

	body := expectStatus(t, api.json(http.MethodGet, "/api/clients/1001", nil), http.StatusOK)
	client, _ := body["client"].(map[string]any)
	if client["characterIcon"] != float64(3) || client["claveCliente"] != "1001" {
		t.Fatalf("unexpected client %v", client)
	}

	// Create with an uploaded avatar via multipart.
	expectStatus(t, api.multipart(http.MethodPost, "/api/clients", map[string]string{
		"claveCliente": "C-2", "nombre": "Beto", "celular": "5587654321", "email": "beto@yahoo.com",
	}, pngBytes), http.StatusCreated)

	body = expectStatus(t, api.json(http.MethodGet, "/api/clients/C-2", nil), http.StatusOK)
	client, _ = body["client"].(map[string]any)
	icon, ok := client["characterIcon"].(map[string]any)
	if !ok {
		t.Fatalf("expected hosted icon object, got %v", client["characterIcon"])
	}
	imageURL, _ := icon["url"].(string)

	resp, err := http.Get(srv.URL + imageURL)
	if err != nil {
		t.Fatalf("GET image: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || !bytes.Equal(data, pngBytes) {
		t.Fatalf("unexpected image response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	// Partial update of the name only.
	body = expectStatus(t, api.json(http.MethodPut, "/api/clients/C-2", map[string]any{
		"nombre": "Roberto",
	}), http.StatusOK)
	client, _ = body["client"].(map[string]any)
	if client["nombre"] != "Roberto" || client["celular"] != "5587654321" {
		t.Fatalf("unexpected updated client %v", client)
	}
	if _, still := client["characterIcon"].(map[string]any); !still {
		t.Fatalf("expected icon unchanged, got %v", client["characterIcon"])
	}

	expectStatus(t, api.json(http.MethodPut, "/api/clients/C-2", map[string]any{}), http.StatusBadRequest)
	expectStatus(t, api.json(http.MethodPut, "/api/clients/ghost", map[string]any{"nombre": "X"}), http.StatusNotFound)

	body = expectStatus(t, api.json(http.MethodGet, "/api/clients/page/1", nil), http.StatusOK)
	if body["totalClients"] != float64(2) || body["totalPages"] != float64(1) || body["page"] != float64(1) {
		t.Fatalf("unexpected page body %v", body)
	}
	expectStatus(t, api.json(http.MethodGet, "/api/clients/page/2", nil), http.StatusBadRequest)
	expectStatus(t, api.json(http.MethodGet, "/api/clients/page/0", nil), http.StatusBadRequest)

	body = expectStatus(t, api.json(http.MethodGet, "/api/clients/page/abc", nil), http.StatusOK)
	if body["page"] != float64(1) {
		t.Fatalf("expected non-numeric page to fall back to 1, got %v", body["page"])
	}

	// Deleting the client removes its hosted image too.
	expectStatus(t, api.json(http.MethodDelete, "/api/clients/C-2", nil), http.StatusOK)
	expectStatus(t, api.json(http.MethodGet, "/api/clients/C-2", nil), http.StatusNotFound)
	expectStatus(t, api.json(http.MethodDelete, "/api/clients/C-2", nil), http.StatusNotFound)

	resp, err = http.Get(srv.URL + imageURL)
	if err != nil {
		t.Fatalf("GET image after delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected image gone after delete, got %d", resp.StatusCode)
	}
}

func TestIntegration_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	srv := startServer(t, env)

	api := &apiClient{t: t, base: srv.URL, token: registerAndLogin(t, env.auth, "v@gmail.com")}

	valid := func() map[string]any {
		return map[string]any{
			"claveCliente": "V-1", "nombre": "Ana", "celular": "5512345678",
			"email": "ana@gmail.com", "characterIcon": 0,
		}
	}

	tests := []struct {
		name        string
		mutate      func(map[string]any)
		wantMissing []string
	}{
		{"missing fields", func(m map[string]any) { delete(m, "nombre"); m["email"] = "" }, []string{"nombre", "email"}},
		{"missing icon", func(m map[string]any) { delete(m, "characterIcon") }, []string{"characterIcon"}},
		{"bad phone", func(m map[string]any) { m["celular"] = "123" }, nil},
		{"bad email domain", func(m map[string]any) { m["email"] = "ana@example.com" }, nil},
		{"icon out of range", func(m map[string]any) { m["characterIcon"] = 12 }, nil},
		{"hosted icon", func(m map[string]any) { m["characterIcon"] = map[string]any{"id": "x", "url": "y"} }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := valid()
			tt.mutate(payload)
			body := expectStatus(t, api.json(http.MethodPost, "/api/clients", payload), http.StatusBadRequest)
			if body["success"] != false {
				t.Fatalf("expected success=false, got %v", body["success"])
			}
			if tt.wantMissing == nil {
				return
			}
			got, _ := body["missingFields"].([]any)
			if fmt.Sprint(got) != fmt.Sprint(tt.wantMissing) {
				t.Fatalf("expected missingFields %v, got %v", tt.wantMissing, got)
			}
		})
	}

	// A text file is rejected even when declared as an image.
	expectStatus(t, api.multipart(http.MethodPost, "/api/clients", map[string]string{
		"claveCliente": "V-2", "nombre": "Ana", "celular": "5512345678", "email": "ana@gmail.com",
	}, []byte("definitely not an image")), http.StatusBadRequest)

	// Upload larger than the configured limit.
	big := append(append([]byte{}, pngBytes...), make([]byte, 1<<20)...)
	expectStatus(t, api.multipart(http.MethodPost, "/api/clients", map[string]string{
		"claveCliente": "V-3", "nombre": "Ana", "celular": "5512345678", "email": "ana@gmail.com",
	}, big), http.StatusBadRequest)
}

func TestIntegration_UploadWithoutPartContentType(t *testing.T) {
	env := newTestEnv(t)
	srv := startServer(t, env)
	api := &apiClient{t: t, base: srv.URL, token: registerAndLogin(t, env.auth, "untyped@gmail.com")}

	expectStatus(t, api.multipartTyped(http.MethodPost, "/api/clients", map[string]string{
		"claveCliente": "N-1", "nombre": "Nora", "celular": "5511112222", "email": "nora@outlook.com",
	}, pngBytes, ""), http.StatusCreated)

	body := expectStatus(t, api.json(http.MethodGet, "/api/clients/N-1", nil), http.StatusOK)
	client, _ := body["client"].(map[string]any)
	icon, ok := client["characterIcon"].(map[string]any)
	if !ok {
		t.Fatalf("expected hosted icon object, got %v", client["characterIcon"])
	}

	resp, err := http.Get(srv.URL + icon["url"].(string))
	if err != nil {
		t.Fatalf("GET image: %v", err)
	}
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected sniffed image/png, got %q", ct)
	}
}

func TestIntegration_DeletedUserTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	srv := startServer(t, env)

	token, err := service.NewJWTTokenService(testJWTSecret, time.Hour).
		Issue(domain.TokenClaims{UserID: "removed-user", Email: "removed@gmail.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	api := &apiClient{t: t, base: srv.URL, token: token}
	body := expectStatus(t, api.json(http.MethodGet, "/api/clients/page/1", nil), http.StatusUnauthorized)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
}
