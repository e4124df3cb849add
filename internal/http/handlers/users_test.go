package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

func seedUsers(t *testing.T, r *gin.Engine, token string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		body := fmt.Sprintf(`{"name":"User %02d","email":"user%02d@example.com","password":"secret1","age":%d}`, i, i, 20+i)

		w := doJSON(r, http.MethodPost, "/api/v1/users", body, token)

		if w.Code != http.StatusCreated {
			t.Fatalf("seed user %d got %d, body=%s", i, w.Code, w.Body.String())
		}
	}
}

func TestCreateUser_Conflict(t *testing.T) {
	r, _ := newTestAPI(t)

	token := registerJane(t, r)

	body := `{"name":"Copy Cat","email":"Jane@Example.com","password":"secret1","age":22}`
	w := doJSON(r, http.MethodPost, "/api/v1/users", body, token)

	if w.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409, body=%s", w.Code, w.Body.String())
	}
}

func TestListUsers_Pagination(t *testing.T) {
	r, _ := newTestAPI(t)

	token := registerJane(t, r)

	seedUsers(t, r, token, 12)

	// 13 users total including jane, limit 5 -> 3 pages
	w := doJSON(r, http.MethodGet, "/api/v1/users?page=2&limit=5", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("got %d, body=%s", w.Code, w.Body.String())
	}

	e := mustEnvelope(t, w)

	if e.Pagination == nil {
		t.Fatalf("list responses must carry pagination, body=%s", w.Body.String())
	}

	p := e.Pagination

	if p.Page != 2 || p.Limit != 5 || p.Total != 13 || p.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", p)
	}

	if !p.HasNext || !p.HasPrev {
		t.Fatalf("page 2 of 3 should have both neighbors: %+v", p)
	}

	var users []user.User
	_ = json.Unmarshal(e.Data["users"], &users)

	if len(users) != 5 {
		t.Fatalf("expected 5 users on page 2, got %d", len(users))
	}
}

func TestListUsers_LastPageAndOverrun(t *testing.T) {
	r, _ := newTestAPI(t)

	token := registerJane(t, r)

	seedUsers(t, r, token, 4)

	w := doJSON(r, http.MethodGet, "/api/v1/users?page=1&limit=10", "", token)
	e := mustEnvelope(t, w)

	if e.Pagination.HasNext || e.Pagination.HasPrev {
		t.Fatalf("single page should have no neighbors: %+v", e.Pagination)
	}

	// past the end: empty page, same totals
	w = doJSON(r, http.MethodGet, "/api/v1/users?page=9&limit=10", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("overrun page got %d", w.Code)
	}

	e = mustEnvelope(t, w)

	var users []user.User
	_ = json.Unmarshal(e.Data["users"], &users)

	if len(users) != 0 || e.Pagination.Total != 5 {
		t.Fatalf("expected empty page with total=5, got %d users, %+v", len(users), e.Pagination)
	}
}

func TestListUsers_FilterAndSort(t *testing.T) {
	r, _ := newTestAPI(t)

	token := registerJane(t, r)
	seedUsers(t, r, token, 3)

	// search matches name or email, case-insensitively
	w := doJSON(r, http.MethodGet, "/api/v1/users?search=USER+01", "", token)
	e := mustEnvelope(t, w)

	if e.Pagination.Total != 1 {
		t.Fatalf("search should match exactly one user, got %+v", e.Pagination)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/users?sortBy=age&sortOrder=asc&limit=100", "", token)
	e = mustEnvelope(t, w)

	var users []user.User
	_ = json.Unmarshal(e.Data["users"], &users)

	for i := 1; i < len(users); i++ {
		if users[i].Age < users[i-1].Age {
			t.Fatalf("users not sorted by age asc: %d before %d", users[i-1].Age, users[i].Age)
		}
	}
}

func TestListUsers_RejectsBadQuery(t *testing.T) {
	r, _ := newTestAPI(t)

	token := registerJane(t, r)

	for _, q := range []string{"page=-1", "limit=101", "sortBy=password_hash", "sortOrder=sideways"} {
		w := doJSON(r, http.MethodGet, "/api/v1/users?"+q, "", token)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %q got %d, want 400", q, w.Code)
		}
	}
}

func TestGetUser_NotFound(t *testing.T) {
	r, _ := newTestAPI(t)

	token := registerJane(t, r)

	w := doJSON(r, http.MethodGet, "/api/v1/users/u999", "", token)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", w.Code)
	}

	e := mustEnvelope(t, w)

	if e.Success || e.Error != "not_found" {
		t.Fatalf("expected the not_found error envelope, got %s", w.Body.String())
	}
}

func TestUpdateUser_SelfOnly(t *testing.T) {
	r, store := newTestAPI(t)

	token := registerJane(t, r)

	jane, _ := store.GetByEmail(context.Background(), "jane@example.com")

	w := doJSON(r, http.MethodPut, "/api/v1/users/"+jane.ID, `{"name":"Jane Updated"}`, token)

	if w.Code != http.StatusOK {
		t.Fatalf("own update got %d, body=%s", w.Code, w.Body.String())
	}

	after, _ := store.GetByID(context.Background(), jane.ID)

	if after.Name != "Jane Updated" {
		t.Fatalf("name not updated: %q", after.Name)
	}

	if after.Age != jane.Age {
		t.Fatalf("age must be untouched by a name-only update")
	}

	// acting on someone else is forbidden even for a valid token
	seedUsers(t, r, token, 1)

	w = doJSON(r, http.MethodPut, "/api/v1/users/u2", `{"name":"Hijacked"}`, token)

	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-user update got %d, want 403", w.Code)
	}
}

func TestUpdateUser_RequiresAField(t *testing.T) {
	r, store := newTestAPI(t)

	token := registerJane(t, r)
	jane, _ := store.GetByEmail(context.Background(), "jane@example.com")

	w := doJSON(r, http.MethodPut, "/api/v1/users/"+jane.ID, `{}`, token)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty update got %d, want 400", w.Code)
	}
}

func TestDeleteUser_SelfOnly(t *testing.T) {
	r, store := newTestAPI(t)

	token := registerJane(t, r)
	jane, _ := store.GetByEmail(context.Background(), "jane@example.com")

	seedUsers(t, r, token, 1)

	w := doJSON(r, http.MethodDelete, "/api/v1/users/u2", "", token)

	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-user delete got %d, want 403", w.Code)
	}

	w = doJSON(r, http.MethodDelete, "/api/v1/users/"+jane.ID, "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("own delete got %d, body=%s", w.Code, w.Body.String())
	}

	_, err := store.GetByID(context.Background(), jane.ID)

	if err == nil {
		t.Fatalf("user still present after delete")
	}
}

func TestUsersEndpointsRequireAuth(t *testing.T) {
	r, _ := newTestAPI(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPost, "/api/v1/users"},
		{http.MethodGet, "/api/v1/users/u1"},
		{http.MethodPut, "/api/v1/users/u1"},
		{http.MethodDelete, "/api/v1/users/u1"},
	} {
		w := doJSON(r, tc.method, tc.path, "", "")

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s got %d, want 401", tc.method, tc.path, w.Code)
		}
	}
}
