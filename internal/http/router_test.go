package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	auditrepo "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/oauth2"
)

const testPassword = "secret123"

type testEnv struct {
	router  *gin.Engine
	auth    *auth.Service
	catalog *catalog.Service
	admin   *entities.User
	member  *entities.User
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	authCfg := config.Auth{SessionLifetime: time.Hour, BcryptCost: 4}
	authService := auth.NewService(db.DB, authCfg)
	sessions := auth.NewSessionManager(sqlDB, authCfg)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	catalogService := catalog.NewService(db.DB, auditService)

	ctx := context.Background()
	admin, err := authService.CreateAdmin(ctx, auth.RegisterInput{
		Username: "head_librarian", Email: "admin@library.test", Password: testPassword,
		FirstName: "Ada", LastName: "Admin",
	})
	require.NoError(t, err)
	member, err := authService.Register(ctx, nil, auth.RegisterInput{
		Username: "reader", Email: "reader@library.test", Password: testPassword,
		FirstName: "Rita", LastName: "Reader",
	})
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Catalog:         catalogService,
		Database:        db,
		Audit:           auditService,
		AuthService:     authService,
		SessionManager:  sessions,
		AuthMiddleware:  auth.NewMiddleware(authService, sessions),
		AuthController:  auth.NewAuthController(authService, sessions, oauth2.NewRegistry(), nil, auditService),
		ShowErrorDetail: true,
		Version:         "test",
	})

	return &testEnv{router: router, auth: authService, catalog: catalogService, admin: admin, member: member}
}

// client replays cookies between requests like a browser.
type client struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, router *gin.Engine) *client {
	return &client{t: t, router: router, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(c.t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return w
}

func (c *client) login(login string) {
	c.t.Helper()
	w := c.do("POST", "/auth/login", gin.H{"login": login, "password": testPassword})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	data, ok := decode(t, w)["data"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return data
}

func bookPayload(isbn string, copies int) gin.H {
	return gin.H{
		"title":           "The Left Hand of Darkness",
		"author":          "Ursula K. Le Guin",
		"isbn":            isbn,
		"genre":           "Fiction",
		"publicationYear": 1969,
		"publisher":       "Ace",
		"totalCopies":     copies,
	}
}

func createBook(t *testing.T, admin *client, isbn string, copies int) string {
	t.Helper()
	w := admin.do("POST", "/books", bookPayload(isbn, copies))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataOf(t, w)["_id"].(string)
}

func TestBooks_IDHandling(t *testing.T) {
	env := setupTestRouter(t)
	c := newClient(t, env.router)

	w := c.do("GET", "/books/123", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid book ID format", body["message"])

	w = c.do("GET", "/books/"+entities.NewID(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["message"], "Book not found")
}

func TestBooks_ListEnvelope(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")
	createBook(t, admin, "9780441478125", 2)

	w := newClient(t, env.router).do("GET", "/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["count"])
	assert.Len(t, body["data"], 1)
}

func TestBooks_Guards(t *testing.T) {
	env := setupTestRouter(t)

	anonymous := newClient(t, env.router)
	w := anonymous.do("POST", "/books", bookPayload("9780441478125", 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	member := newClient(t, env.router)
	member.login("reader")
	w = member.do("POST", "/books", bookPayload("9780441478125", 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied. Admin access required.", decode(t, w)["message"])

	admin := newClient(t, env.router)
	admin.login("head_librarian")
	w = admin.do("POST", "/books", bookPayload("9780441478125", 1))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Book created successfully", decode(t, w)["message"])
}

func TestBooks_Validation(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")

	w := admin.do("POST", "/books", gin.H{"title": "Untitled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Validation failed", body["message"])
	assert.NotEmpty(t, body["errors"])

	createBook(t, admin, "9780441478125", 1)
	w = admin.do("POST", "/books", bookPayload("9780441478125", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "isbn", errs[0].(map[string]any)["field"])
}

func TestBooks_UpdateAndDelete(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")
	id := createBook(t, admin, "9780441478125", 3)

	w := admin.do("PUT", "/books/"+id, gin.H{"publisher": "Gollancz"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Book updated successfully", body["message"])
	assert.Equal(t, float64(1), body["modifiedCount"])

	w = admin.do("DELETE", "/books/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{}, decode(t, w)["data"])

	w = admin.do("GET", "/books/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategories_BookCount(t *testing.T) {
	env := setupTestRouter(t)
	member := newClient(t, env.router)
	member.login("reader")
	admin := newClient(t, env.router)
	admin.login("head_librarian")

	w := newClient(t, env.router).do("POST", "/categories", gin.H{"name": "Science Fiction"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = member.do("POST", "/categories", gin.H{"name": "Science Fiction"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	categoryID := dataOf(t, w)["_id"].(string)

	payload := bookPayload("9780441478125", 1)
	payload["categoryId"] = categoryID
	w = admin.do("POST", "/books", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bookID := dataOf(t, w)["_id"].(string)

	w = member.do("GET", "/categories/"+categoryID, nil)
	assert.Equal(t, float64(1), dataOf(t, w)["bookCount"])

	w = member.do("GET", "/books/category/"+categoryID, nil)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	admin.do("DELETE", "/books/"+bookID, nil)
	w = member.do("GET", "/categories/"+categoryID, nil)
	assert.Equal(t, float64(0), dataOf(t, w)["bookCount"])

	w = member.do("POST", "/categories", gin.H{"name": "Science Fiction"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoans_RequireSession(t *testing.T) {
	env := setupTestRouter(t)
	c := newClient(t, env.router)

	for _, path := range []string{"/loans", "/loans/overdue", "/loans/user/" + env.member.ID} {
		w := c.do("GET", path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "You must be logged in to access this resource", decode(t, w)["message"])
	}
}

func TestLoans_CopyBookkeeping(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")
	member := newClient(t, env.router)
	member.login("reader")

	bookID := createBook(t, admin, "9780441478125", 5)
	availableCopies := func() float64 {
		w := member.do("GET", "/books/"+bookID, nil)
		return dataOf(t, w)["availableCopies"].(float64)
	}

	w := member.do("POST", "/loans", gin.H{"bookId": bookID, "userId": env.member.ID, "dueDate": "2099-01-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loanID := dataOf(t, w)["_id"].(string)
	assert.Equal(t, float64(4), availableCopies())

	w = member.do("GET", "/loans/"+loanID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	loan := dataOf(t, w)
	assert.Equal(t, "active", loan["status"])
	assert.Equal(t, "The Left Hand of Darkness", loan["book"].(map[string]any)["title"])

	w = member.do("PUT", "/loans/"+loanID, gin.H{"status": "returned"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(5), availableCopies())

	w = member.do("PUT", "/loans/"+loanID, gin.H{"status": "active"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = member.do("POST", "/loans", gin.H{"bookId": bookID, "userId": env.member.ID, "dueDate": "2099-01-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	second := dataOf(t, w)["_id"].(string)
	assert.Equal(t, float64(4), availableCopies())

	w = member.do("DELETE", "/loans/"+second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), availableCopies())
}

func TestLoans_NoCopiesAvailable(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")

	bookID := createBook(t, admin, "9780441478125", 1)
	loan := gin.H{"bookId": bookID, "userId": env.member.ID, "dueDate": "2099-01-01"}

	w := admin.do("POST", "/loans", loan)
	require.Equal(t, http.StatusCreated, w.Code)

	w = admin.do("POST", "/loans", loan)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "No copies available for this book", decode(t, w)["message"])
}

func TestLoans_Validation(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")
	bookID := createBook(t, admin, "9780441478125", 1)

	w := admin.do("POST", "/loans", gin.H{"bookId": "nope", "userId": env.member.ID, "dueDate": "2099-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = admin.do("POST", "/loans", gin.H{"bookId": bookID, "userId": env.member.ID, "dueDate": "2001-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = admin.do("POST", "/loans", gin.H{"bookId": entities.NewID(), "userId": env.member.ID, "dueDate": "2099-01-01"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = admin.do("GET", "/loans/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid loan ID format", decode(t, w)["message"])
}

func TestUsers_Registration(t *testing.T) {
	env := setupTestRouter(t)
	c := newClient(t, env.router)

	w := c.do("POST", "/users", gin.H{
		"username": "newcomer", "email": "new@library.test", "password": testPassword,
		"firstName": "New", "lastName": "Comer", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := dataOf(t, w)
	assert.Equal(t, "member", user["role"])
	assert.NotContains(t, user, "password")

	w = c.do("POST", "/users", gin.H{
		"username": "someone_else", "email": "NEW@library.test", "password": testPassword,
		"firstName": "Other", "lastName": "Person",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].(map[string]any)["field"])
}

func TestUsers_SelfOrAdmin(t *testing.T) {
	env := setupTestRouter(t)
	member := newClient(t, env.router)
	member.login("reader")

	w := member.do("PUT", "/users/"+env.admin.ID, gin.H{"firstName": "Mallory"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = member.do("PUT", "/users/"+env.member.ID, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = member.do("PUT", "/users/"+env.member.ID, gin.H{"city": "Lisbon"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Lisbon", dataOf(t, w)["city"])

	admin := newClient(t, env.router)
	admin.login("head_librarian")
	w = admin.do("PUT", "/users/"+env.member.ID, gin.H{"status": "suspended"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "suspended", dataOf(t, w)["status"])
}

func TestAudit_AdminOnly(t *testing.T) {
	env := setupTestRouter(t)
	member := newClient(t, env.router)
	member.login("reader")
	assert.Equal(t, http.StatusForbidden, member.do("GET", "/audit", nil).Code)

	admin := newClient(t, env.router)
	admin.login("head_librarian")
	bookID := createBook(t, admin, "9780441478125", 1)
	admin.do("DELETE", "/books/"+bookID, nil)

	w := admin.do("GET", "/audit?type=delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
}

func TestRouter_NotFoundAndRequestID(t *testing.T) {
	env := setupTestRouter(t)
	c := newClient(t, env.router)

	w := c.do("GET", "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Route not found", body["message"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestBooks_ListFilters(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")

	createBook(t, admin, "9780441478125", 1)
	science := bookPayload("9780553380163", 1)
	science["title"] = "A Brief History of Time"
	science["author"] = "Stephen Hawking"
	science["genre"] = "Science"
	w := admin.do("POST", "/books", science)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	anonymous := newClient(t, env.router)
	tests := []struct {
		query string
		count float64
		title string
	}{
		{query: "?genre=Science", count: 1, title: "A Brief History of Time"},
		{query: "?search=darkness", count: 1, title: "The Left Hand of Darkness"},
		{query: "?search=HAWKING", count: 1, title: "A Brief History of Time"},
		{query: "?genre=Fiction&search=hawking", count: 0},
		{query: "?genre=History", count: 0},
		{query: "", count: 2},
	}
	for _, tt := range tests {
		w := anonymous.do("GET", "/books"+tt.query, nil)
		require.Equal(t, http.StatusOK, w.Code, tt.query)
		body := decode(t, w)
		assert.Equal(t, tt.count, body["count"], tt.query)
		if tt.title != "" {
			first := body["data"].([]any)[0].(map[string]any)
			assert.Equal(t, tt.title, first["title"], tt.query)
		}
	}
}

func TestCategories_InactiveFlag(t *testing.T) {
	env := setupTestRouter(t)
	member := newClient(t, env.router)
	member.login("reader")

	w := member.do("POST", "/categories", gin.H{"name": "Archive", "isActive": false})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := dataOf(t, w)["_id"].(string)
	assert.Equal(t, false, dataOf(t, w)["isActive"])

	w = member.do("GET", "/categories/"+id, nil)
	assert.Equal(t, false, dataOf(t, w)["isActive"])

	w = member.do("PUT", "/categories/"+id, gin.H{"isActive": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = member.do("GET", "/categories/"+id, nil)
	assert.Equal(t, true, dataOf(t, w)["isActive"])

	w = member.do("POST", "/categories", gin.H{"name": "Reference"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, dataOf(t, w)["isActive"])
}

func TestLoans_OverdueWithOffsetDates(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")
	bookID := createBook(t, admin, "9780441478125", 2)

	// An hour ago, written at +05:00 so its wall clock is still ahead of UTC.
	plus5 := time.FixedZone("UTC+5", 5*60*60)
	now := time.Now()
	w := admin.do("POST", "/loans", gin.H{
		"bookId":   bookID,
		"userId":   env.member.ID,
		"loanDate": now.Add(-3 * time.Hour).In(plus5).Format(time.RFC3339),
		"dueDate":  now.Add(-time.Hour).In(plus5).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	overdueID := dataOf(t, w)["_id"].(string)
	assert.True(t, strings.HasSuffix(dataOf(t, w)["dueDate"].(string), "Z"))

	w = admin.do("POST", "/loans", gin.H{"bookId": bookID, "userId": env.member.ID, "dueDate": "2099-01-01"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = admin.do("GET", "/loans/overdue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, float64(1), body["count"])
	assert.Equal(t, overdueID, body["data"].([]any)[0].(map[string]any)["_id"])
}

func TestLoans_ReturnDateBeforeLoanDate(t *testing.T) {
	env := setupTestRouter(t)
	admin := newClient(t, env.router)
	admin.login("head_librarian")
	bookID := createBook(t, admin, "9780441478125", 1)

	w := admin.do("POST", "/loans", gin.H{
		"bookId": bookID, "userId": env.member.ID, "loanDate": "2030-05-10", "dueDate": "2030-05-24",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loanID := dataOf(t, w)["_id"].(string)

	w = admin.do("PUT", "/loans/"+loanID, gin.H{"returnDate": "2030-05-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "returnDate", errs[0].(map[string]any)["field"])
}
