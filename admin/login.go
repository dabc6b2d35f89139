package admin

import "github.com/artpar/autoadmin/web/view"

// LoginParams fill the login page.
type LoginParams struct {
	// Action is the URL the form posts to.
	Action       string
	ErrorMessage string
}

// RenderLogin renders the login page. It has no side effects and does not
// need an Admin.
func RenderLogin(p LoginParams) (string, error) {
	return view.New("login", map[string]any{
		"action":       p.Action,
		"errorMessage": p.ErrorMessage,
		"branding":     DefaultOptions().Branding.view(),
		"title":        "Log in",
	}).Render()
}

// RenderLogin renders the login page with this admin's branding.
func (a *Admin) RenderLogin(p LoginParams) (string, error) {
	return view.New("login", map[string]any{
		"action":       p.Action,
		"errorMessage": p.ErrorMessage,
		"branding":     a.Branding(),
		"h":            a.helpers,
		"title":        "Log in",
	}).Render()
}
