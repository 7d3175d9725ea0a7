package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileJar_PersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cookies.json")

	jar, err := LoadFileJar(path)
	if err != nil {
		t.Fatal(err)
	}
	jar.SetCookies(nil, []*http.Cookie{{Name: "ATTRMESH_SESSION", Value: "abc"}})
	if err := jar.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	reloaded, err := LoadFileJar(path)
	if err != nil {
		t.Fatal(err)
	}
	cookies := reloaded.Cookies(nil)
	if len(cookies) != 1 || cookies[0].Value != "abc" {
		t.Errorf("Cookies() = %v, want the saved cookie", cookies)
	}
}

func TestFileJar_DeleteAndExpiry(t *testing.T) {
	jar, err := LoadFileJar("")
	if err != nil {
		t.Fatal(err)
	}

	jar.SetCookies(nil, []*http.Cookie{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "2", Expires: time.Now().Add(-time.Minute)},
		{Name: "c", Value: "3", MaxAge: 60},
	})
	jar.SetCookies(nil, []*http.Cookie{{Name: "a", MaxAge: -1}})

	got := map[string]string{}
	for _, c := range jar.Cookies(nil) {
		got[c.Name] = c.Value
	}
	if len(got) != 1 || got["c"] != "3" {
		t.Errorf("Cookies() = %v, want only c", got)
	}

	jar.Clear()
	if len(jar.Cookies(nil)) != 0 {
		t.Error("Clear() should drop every cookie")
	}
	if err := jar.Save(); err != nil {
		t.Errorf("Save() without path error = %v", err)
	}
}

func TestFileJar_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileJar(path); err == nil {
		t.Error("LoadFileJar() should reject a corrupt file")
	}
}

func TestFileJar_WithClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("sid"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s1", Path: "/"})
			w.Header().Set("X-Seen", "no")
		} else {
			w.Header().Set("X-Seen", "yes")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	jar, _ := LoadFileJar("")
	c := NewHTTPClient(srv.URL, WithJar(jar))
	for i := 0; i < 2; i++ {
		if err := c.Do(context.Background(), http.MethodGet, "/", nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	cookies := jar.Cookies(nil)
	if len(cookies) != 1 || cookies[0].Value != "s1" {
		t.Errorf("jar = %v, want sid=s1", cookies)
	}
}
