package admin

import (
	"testing"
)

func TestMergeOptions_Defaults(t *testing.T) {
	got, err := MergeOptions(Options{})
	if err != nil {
		t.Fatalf("MergeOptions() error = %v", err)
	}
	want := DefaultOptions()
	if got.RootPath != want.RootPath || got.LoginPath != want.LoginPath || got.LogoutPath != want.LogoutPath {
		t.Errorf("paths = %s %s %s", got.RootPath, got.LoginPath, got.LogoutPath)
	}
	if got.Branding.CompanyName != DefaultCompanyName || got.Branding.LogoURL != "" {
		t.Errorf("branding = %+v", got.Branding)
	}
	if !got.Branding.ShowFooter() {
		t.Error("footer should default to on")
	}
}

func TestMergeOptions_UserWins(t *testing.T) {
	got, err := MergeOptions(Options{
		RootPath: "/backoffice",
		Branding: Branding{LogoURL: "/logo.png", SoftwareBrothers: Bool(false)},
	})
	if err != nil {
		t.Fatalf("MergeOptions() error = %v", err)
	}
	if got.RootPath != "/backoffice" {
		t.Errorf("RootPath = %s", got.RootPath)
	}
	if got.LoginPath != DefaultLoginPath || got.LogoutPath != DefaultLogoutPath {
		t.Error("omitted paths should keep their defaults")
	}
	if got.Branding.LogoURL != "/logo.png" || got.Branding.CompanyName != DefaultCompanyName {
		t.Errorf("branding = %+v", got.Branding)
	}
	if got.Branding.ShowFooter() {
		t.Error("explicit false should hide the footer")
	}
}

func TestMergeOptions_DoesNotLeakBetweenCalls(t *testing.T) {
	if _, err := MergeOptions(Options{Branding: Branding{CompanyName: "Acme"}}); err != nil {
		t.Fatal(err)
	}
	if DefaultOptions().Branding.CompanyName != DefaultCompanyName {
		t.Error("defaults were modified")
	}
}
