package web

import (
	"github.com/artpar/autoadmin/admin"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/artpar/autoadmin/ports"
	"github.com/artpar/autoadmin/web/view"
)

// ResourceGroup is one navigation section: a parent and its resources.
type ResourceGroup struct {
	Parent    resource.Parent
	Resources []resource.Resource
}

// Controller renders pages for one request. It is cheap to build and must
// not be shared between requests.
type Controller struct {
	admin   *admin.Admin
	current *ports.CurrentAdmin
	groups  []ResourceGroup
	context map[string]any
}

// NewController builds the view context for the given admin and the
// logged-in user, which may be nil.
func NewController(a *admin.Admin, current *ports.CurrentAdmin) *Controller {
	c := &Controller{
		admin:   a,
		current: current,
		groups:  GroupResources(a.Resources()),
	}
	c.context = map[string]any{
		"resources": c.groups,
		"h":         a.Helpers(),
		"branding":  a.Branding(),
	}
	if current != nil {
		c.context["currentAdmin"] = *current
	}
	return c
}

// GroupResources buckets resources by parent name. Groups keep the order in
// which their parent is first seen, resources keep list order, and the first
// resource of a group decides the group's icon.
func GroupResources(resources []resource.Resource) []ResourceGroup {
	var groups []ResourceGroup
	index := make(map[string]int)
	for _, r := range resources {
		parent := parentOf(r)
		i, ok := index[parent.Name]
		if !ok {
			i = len(groups)
			index[parent.Name] = i
			groups = append(groups, ResourceGroup{Parent: parent})
		}
		groups[i].Resources = append(groups[i].Resources, r)
	}
	return groups
}

func parentOf(r resource.Resource) resource.Parent {
	if d := r.Decorator(); d != nil {
		return d.Parent()
	}
	return r.Parent()
}

// Groups returns the navigation groups.
func (c *Controller) Groups() []ResourceGroup {
	return c.groups
}

// Admin returns the orchestrator the controller was built for.
func (c *Controller) Admin() *admin.Admin {
	return c.admin
}

// Helpers returns the view helpers of the context.
func (c *Controller) Helpers() *view.Helpers {
	return c.admin.Helpers()
}

// ViewContext returns a copy of the per-request context.
func (c *Controller) ViewContext() map[string]any {
	out := make(map[string]any, len(c.context))
	for k, v := range c.context {
		out[k] = v
	}
	return out
}

// Render renders viewPath with the view context overlaid by data. Keys in
// data win.
func (c *Controller) Render(viewPath string, data map[string]any) (string, error) {
	merged := c.ViewContext()
	for k, v := range data {
		merged[k] = v
	}
	return view.New(viewPath, merged).Render()
}
