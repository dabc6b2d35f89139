package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/artpar/autoadmin/adapters/memory"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func newUsers(t *testing.T, opts *resource.DecoratorOptions) *memory.Collection {
	t.Helper()
	c := memory.NewCollection(memory.Schema{
		Name:     "users",
		Database: "main",
		Properties: []resource.PropertyOptions{
			{Name: "id", ID: true},
			{Name: "name"},
			{Name: "email"},
			{Name: "age", Type: resource.PropertyNumber},
			{Name: "active", Type: resource.PropertyBoolean},
			{Name: "password_hash", Type: resource.PropertyPassword},
		},
	}, nil)
	if opts != nil {
		d, err := resource.NewDecorator(c, *opts)
		if err != nil {
			t.Fatalf("NewDecorator failed: %v", err)
		}
		c.AssignDecorator(d)
	}
	return c
}

func testRecords(res resource.Resource) []*resource.Record {
	return []*resource.Record{
		resource.NewRecord(res, resource.Params{"id": "1", "name": "Alice", "email": "alice@example.com", "age": int64(30), "active": true, "password_hash": "$2a$10$x"}),
		resource.NewRecord(res, resource.Params{"id": "2", "name": "Bob", "email": "bob@example.com", "age": int64(25), "active": false, "password_hash": "$2a$10$y"}),
	}
}

// ===========================================
// Registry Tests
// ===========================================

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	f := NewTableFormatter()
	if err := r.Register(f); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	err := r.Register(f)
	if err == nil {
		t.Fatal("expected error when registering duplicate formatter")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("error message should mention 'already registered', got: %v", err)
	}
}

func TestRegistry_GetDefault(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewTableFormatter())

	f, ok := r.Get("")
	if !ok || f.Name() != "table" {
		t.Errorf("Get(\"\") = %v, %v; want table formatter", f, ok)
	}
	if _, ok := r.Get("xml"); ok {
		t.Error("Get(xml) should fail")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if diff := cmp.Diff([]string{"json", "table", "yaml"}, List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	for _, name := range List() {
		f, ok := Get(name)
		if !ok {
			t.Fatalf("Get(%s) failed", name)
		}
		if f.Description() == "" {
			t.Errorf("%s has no description", name)
		}
	}
}

// ===========================================
// Table Formatter Tests
// ===========================================

func TestTable_FormatList(t *testing.T) {
	users := newUsers(t, nil)
	var buf bytes.Buffer

	err := NewTableFormatter().FormatList(&buf, users, testRecords(users), FormatOptions{Total: 5})
	if err != nil {
		t.Fatalf("FormatList failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ID", "NAME", "EMAIL", "Alice", "bob@example.com", "yes", "no", "2 of 5 records"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "PASSWORD_HASH") || strings.Contains(out, "$2a$") {
		t.Errorf("password column leaked:\n%s", out)
	}
}

func TestTable_FormatList_Options(t *testing.T) {
	users := newUsers(t, nil)
	records := testRecords(users)
	var buf bytes.Buffer

	err := NewTableFormatter().FormatList(&buf, users, records, FormatOptions{
		Columns:  []string{"email"},
		NoHeader: true,
		MaxWidth: 8,
	})
	if err != nil {
		t.Fatalf("FormatList failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if diff := cmp.Diff([]string{"alice...", "bob@e..."}, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_FormatList_DecoratorColumns(t *testing.T) {
	users := newUsers(t, &resource.DecoratorOptions{
		ListProperties: []string{"name", "greeting"},
		Computed:       map[string]string{"greeting": `"Hi " + name`},
	})
	records := testRecords(users)
	for _, rec := range records {
		if err := users.Decorator().Populate(rec); err != nil {
			t.Fatalf("Populate failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := NewTableFormatter().FormatList(&buf, users, records, FormatOptions{}); err != nil {
		t.Fatalf("FormatList failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "GREETING") || !strings.Contains(out, "Hi Alice") {
		t.Errorf("computed column missing:\n%s", out)
	}
	if strings.Contains(out, "EMAIL") {
		t.Errorf("email should not be listed:\n%s", out)
	}
}

func TestTable_FormatList_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter().FormatList(&buf, newUsers(t, nil), nil, FormatOptions{}); err != nil {
		t.Fatalf("FormatList failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No records found") {
		t.Errorf("got %q", buf.String())
	}
}

func TestTable_UnknownColumn(t *testing.T) {
	users := newUsers(t, nil)
	var buf bytes.Buffer
	err := NewTableFormatter().FormatList(&buf, users, testRecords(users), FormatOptions{Columns: []string{"nope"}})
	if err == nil || !strings.Contains(err.Error(), `"nope"`) {
		t.Errorf("err = %v, want unknown property error", err)
	}
}

func TestTable_FormatRecord(t *testing.T) {
	users := newUsers(t, nil)
	var buf bytes.Buffer

	if err := NewTableFormatter().FormatRecord(&buf, users, testRecords(users)[0], FormatOptions{}); err != nil {
		t.Fatalf("FormatRecord failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Name:", "Alice", "Email:", "alice@example.com", "Age:", "30"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	_ = NewTableFormatter().FormatRecord(&buf, users, nil, FormatOptions{})
	if !strings.Contains(buf.String(), "Record not found") {
		t.Errorf("got %q", buf.String())
	}
}

func TestTable_FormatResources(t *testing.T) {
	users := newUsers(t, &resource.DecoratorOptions{Name: "Members"})
	var buf bytes.Buffer

	if err := NewTableFormatter().FormatResources(&buf, []resource.Resource{users}); err != nil {
		t.Fatalf("FormatResources failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"DATABASE", "users", "Members", "main", "memory", "id, name, email"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTable_FormatError(t *testing.T) {
	var buf bytes.Buffer
	_ = NewTableFormatter().FormatError(&buf, errors.New("boom"))
	if buf.String() != "Error: boom\n" {
		t.Errorf("got %q", buf.String())
	}
}

// ===========================================
// JSON / YAML Formatter Tests
// ===========================================

func TestJSON_FormatList(t *testing.T) {
	users := newUsers(t, nil)
	var buf bytes.Buffer

	err := NewJSONFormatter().FormatList(&buf, users, testRecords(users), FormatOptions{Columns: []string{"id", "name", "password_hash"}, Compact: true})
	if err != nil {
		t.Fatalf("FormatList failed: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact output should be one line: %q", buf.String())
	}

	var got struct {
		Resource string           `json:"resource"`
		Count    int              `json:"count"`
		Total    int              `json:"total"`
		Data     []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Resource != "users" || got.Count != 2 || got.Total != 2 {
		t.Errorf("envelope = %+v", got)
	}
	want := []map[string]any{{"id": "1", "name": "Alice"}, {"id": "2", "name": "Bob"}}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON_FormatRecord(t *testing.T) {
	users := newUsers(t, nil)
	var buf bytes.Buffer

	if err := NewJSONFormatter().FormatRecord(&buf, users, testRecords(users)[1], FormatOptions{}); err != nil {
		t.Fatalf("FormatRecord failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["id"] != "2" {
		t.Errorf("id = %v, want 2", got["id"])
	}
	data := got["data"].(map[string]any)
	if data["email"] != "bob@example.com" || data["active"] != false {
		t.Errorf("data = %v", data)
	}
	if _, ok := data["password_hash"]; ok {
		t.Error("password_hash should be hidden")
	}
}

func TestJSON_FormatResourcesAndError(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()

	if err := f.FormatResources(&buf, []resource.Resource{newUsers(t, nil)}); err != nil {
		t.Fatalf("FormatResources failed: %v", err)
	}
	var got struct {
		Resources []resourceSummary `json:"resources"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Resources) != 1 || got.Resources[0].Database != "main" || !got.Resources[0].Properties[0].ID {
		t.Errorf("resources = %+v", got.Resources)
	}

	buf.Reset()
	_ = f.FormatError(&buf, errors.New("boom"))
	if !strings.Contains(buf.String(), `"error": "boom"`) {
		t.Errorf("got %q", buf.String())
	}
}

func TestYAML_FormatList(t *testing.T) {
	users := newUsers(t, nil)
	var buf bytes.Buffer

	if err := NewYAMLFormatter().FormatList(&buf, users, testRecords(users), FormatOptions{Total: 10}); err != nil {
		t.Fatalf("FormatList failed: %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got["resource"] != "users" || got["total"] != 10 || got["count"] != 2 {
		t.Errorf("envelope = %v", got)
	}
	if strings.Contains(buf.String(), "password_hash") {
		t.Errorf("password leaked:\n%s", buf.String())
	}
}

func TestYAML_FormatRecordNil(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLFormatter().FormatRecord(&buf, newUsers(t, nil), nil, FormatOptions{}); err != nil {
		t.Fatalf("FormatRecord failed: %v", err)
	}
	if !strings.Contains(buf.String(), "data: null") {
		t.Errorf("got %q", buf.String())
	}
}
