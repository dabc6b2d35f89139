package resource_test

import (
	"strings"
	"testing"

	"github.com/artpar/autoadmin/adapters/idgen"
	"github.com/artpar/autoadmin/adapters/memory"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/google/go-cmp/cmp"
)

func people() *memory.Collection {
	return memory.NewCollection(memory.Schema{
		Name:     "people",
		Database: "crm",
		Properties: []resource.PropertyOptions{
			{Name: "first_name"},
			{Name: "last_name"},
			{Name: "email"},
			{Name: "password", Type: resource.PropertyPassword},
			{Name: "bio", Type: resource.PropertyRichText},
			{Name: "age", Type: resource.PropertyNumber},
			{Name: "city"},
			{Name: "country"},
		},
	}, idgen.NewSequential("p"))
}

func paths(props []resource.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Path()
	}
	return out
}

func TestNewDecorator_Defaults(t *testing.T) {
	res := people()
	d, err := resource.NewDecorator(res, resource.DecoratorOptions{})
	if err != nil {
		t.Fatalf("NewDecorator failed: %v", err)
	}

	if d.ResourceName() != "People" {
		t.Errorf("ResourceName() = %s, want People", d.ResourceName())
	}
	if d.Parent().Name != "crm" {
		t.Errorf("Parent().Name = %s, want crm", d.Parent().Name)
	}

	wantList := []string{"id", "first_name", "last_name", "email", "bio", "age"}
	if diff := cmp.Diff(wantList, paths(d.ListProperties())); diff != "" {
		t.Errorf("ListProperties mismatch (-want +got):\n%s", diff)
	}

	wantShow := []string{"id", "first_name", "last_name", "email", "bio", "age", "city", "country"}
	if diff := cmp.Diff(wantShow, paths(d.ShowProperties())); diff != "" {
		t.Errorf("ShowProperties mismatch (-want +got):\n%s", diff)
	}

	wantEdit := []string{"first_name", "last_name", "email", "password", "bio", "age", "city", "country"}
	if diff := cmp.Diff(wantEdit, paths(d.EditProperties())); diff != "" {
		t.Errorf("EditProperties mismatch (-want +got):\n%s", diff)
	}

	wantFilter := []string{"id", "first_name", "last_name", "email", "age", "city", "country"}
	if diff := cmp.Diff(wantFilter, paths(d.FilterProperties())); diff != "" {
		t.Errorf("FilterProperties mismatch (-want +got):\n%s", diff)
	}

	if d.TitleProperty() == nil || d.TitleProperty().Path() != "email" {
		t.Errorf("TitleProperty() = %v, want email", d.TitleProperty())
	}
	if d.PerPage() != resource.DefaultPerPage {
		t.Errorf("PerPage() = %d", d.PerPage())
	}
	if d.DefaultSort() != (resource.Sort{}) {
		t.Errorf("DefaultSort() = %+v, want zero", d.DefaultSort())
	}
}

func TestNewDecorator_Options(t *testing.T) {
	res := people()
	d, err := resource.NewDecorator(res, resource.DecoratorOptions{
		Name:           "Contacts",
		Parent:         &resource.Parent{Name: "Sales", Icon: "users"},
		ListProperties: []string{"last_name", "first_name"},
		TitleProperty:  "last_name",
		Labels:         map[string]string{"last_name": "Surname"},
		SortBy:         "age",
		SortDirection:  "DESC",
		PerPage:        25,
	})
	if err != nil {
		t.Fatalf("NewDecorator failed: %v", err)
	}

	if d.ResourceName() != "Contacts" {
		t.Errorf("ResourceName() = %s", d.ResourceName())
	}
	if d.Parent() != (resource.Parent{Name: "Sales", Icon: "users"}) {
		t.Errorf("Parent() = %+v", d.Parent())
	}
	if diff := cmp.Diff([]string{"last_name", "first_name"}, paths(d.ListProperties())); diff != "" {
		t.Errorf("ListProperties mismatch (-want +got):\n%s", diff)
	}
	if got := d.ListProperties()[0].Label(); got != "Surname" {
		t.Errorf("label = %s, want Surname", got)
	}
	if d.TitleProperty().Path() != "last_name" {
		t.Errorf("TitleProperty() = %s", d.TitleProperty().Path())
	}
	if d.DefaultSort() != (resource.Sort{Field: "age", Direction: resource.Desc}) {
		t.Errorf("DefaultSort() = %+v", d.DefaultSort())
	}
	if d.PerPage() != 25 {
		t.Errorf("PerPage() = %d", d.PerPage())
	}
}

func TestNewDecorator_UnknownProperty(t *testing.T) {
	tests := []resource.DecoratorOptions{
		{ListProperties: []string{"nope"}},
		{ShowProperties: []string{"nope"}},
		{EditProperties: []string{"nope"}},
		{FilterProperties: []string{"nope"}},
		{TitleProperty: "nope"},
		{SortBy: "nope"},
	}
	for i, opts := range tests {
		_, err := resource.NewDecorator(people(), opts)
		if err == nil || !strings.Contains(err.Error(), "nope") {
			t.Errorf("case %d: err = %v, want unknown property error", i, err)
		}
	}
}

func TestNewDecorator_Computed(t *testing.T) {
	res := people()
	d, err := resource.NewDecorator(res, resource.DecoratorOptions{
		ListProperties: []string{"full_name", "age"},
		Computed:       map[string]string{"full_name": `first_name + " " + last_name`},
	})
	if err != nil {
		t.Fatalf("NewDecorator failed: %v", err)
	}

	full := d.ListProperties()[0]
	if full.IsEditable() || full.IsSortable() {
		t.Error("computed property should be read-only and unsortable")
	}
	if full.Label() != "Full name" {
		t.Errorf("Label() = %s", full.Label())
	}

	rec := resource.NewRecord(res, resource.Params{"first_name": "Ada", "last_name": "Lovelace"})
	if err := d.Populate(rec); err != nil {
		t.Fatalf("Populate failed: %v", err)
	}
	if rec.Param("full_name") != "Ada Lovelace" {
		t.Errorf("full_name = %v, want Ada Lovelace", rec.Param("full_name"))
	}

	// Computed properties appear last in the default show view.
	d2, _ := resource.NewDecorator(res, resource.DecoratorOptions{
		Computed: map[string]string{"full_name": `first_name + " " + last_name`},
	})
	show := paths(d2.ShowProperties())
	if show[len(show)-1] != "full_name" {
		t.Errorf("show = %v, want full_name last", show)
	}
}

func TestNewDecorator_ComputedErrors(t *testing.T) {
	if _, err := resource.NewDecorator(people(), resource.DecoratorOptions{
		Computed: map[string]string{"broken": "first_name +"},
	}); err == nil {
		t.Error("expected compile error")
	}
	if _, err := resource.NewDecorator(people(), resource.DecoratorOptions{
		Computed: map[string]string{"email": "first_name"},
	}); err == nil {
		t.Error("expected shadowing error")
	}
}

func TestNewDecorator_SortBy(t *testing.T) {
	tests := []struct {
		name string
		opts resource.DecoratorOptions
		want string
	}{
		{"computed", resource.DecoratorOptions{
			Computed: map[string]string{"full_name": `first_name + " " + last_name`},
			SortBy:   "full_name",
		}, `unknown sort property "full_name"`},
		{"rich text", resource.DecoratorOptions{SortBy: "bio"}, `"bio" is not sortable`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resource.NewDecorator(people(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
		})
	}

	d, err := resource.NewDecorator(people(), resource.DecoratorOptions{SortBy: "age", SortDirection: "desc"})
	if err != nil {
		t.Fatalf("NewDecorator failed: %v", err)
	}
	if got := d.DefaultSort(); got.Field != "age" || got.Direction != resource.Desc {
		t.Errorf("DefaultSort() = %+v", got)
	}
}

func TestNewDecorator_ComputedBuiltinNames(t *testing.T) {
	res := memory.NewCollection(memory.Schema{
		Name: "names",
		Properties: []resource.PropertyOptions{
			{Name: "first"},
			{Name: "last"},
			{Name: "len", Type: resource.PropertyNumber},
		},
	}, idgen.NewSequential("n"))
	d, err := resource.NewDecorator(res, resource.DecoratorOptions{
		Computed: map[string]string{
			"full":   `first + " " + last`,
			"longer": `len + 1`,
		},
	})
	if err != nil {
		t.Fatalf("NewDecorator failed: %v", err)
	}

	rec := resource.NewRecord(res, resource.Params{"first": "Ada", "last": "Lovelace", "len": 2})
	if err := d.Populate(rec); err != nil {
		t.Fatalf("Populate failed: %v", err)
	}
	if rec.Param("full") != "Ada Lovelace" {
		t.Errorf("full = %v, want Ada Lovelace", rec.Param("full"))
	}
	if rec.Param("longer") != 3 {
		t.Errorf("longer = %v, want 3", rec.Param("longer"))
	}
}

func TestDecorate(t *testing.T) {
	res := people()
	d, err := resource.Decorate(resource.DecoratorOptions{Name: "Folks"})(res)
	if err != nil {
		t.Fatalf("Decorate failed: %v", err)
	}
	if d.ResourceName() != "Folks" {
		t.Errorf("ResourceName() = %s", d.ResourceName())
	}

	def, err := resource.DefaultDecorator(res)
	if err != nil {
		t.Fatalf("DefaultDecorator failed: %v", err)
	}
	if def.ResourceName() != "People" {
		t.Errorf("default ResourceName() = %s", def.ResourceName())
	}
}
