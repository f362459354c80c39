package screens

import (
	"context"
	"time"

	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/identity"
	"github.com/jrsteele09/secure-health/navigation"
)

const LoggingOutText = "Logging out..."

// MenuItem is a dashboard action. Target is empty for actions that do not navigate.
type MenuItem struct {
	Command string
	Label   string
	Target  navigation.Screen
}

var dashboardMenu = []MenuItem{
	{Command: "go TakePhoto", Label: "Take Photo", Target: navigation.TakePhoto},
	{Command: "go Readings", Label: "Go to Readings", Target: navigation.Readings},
	{Command: "logout", Label: "Log out"},
}

// Dashboard is the signed-in home screen.
type Dashboard struct {
	view    authsession.View
	actions authsession.Actions
	title   string
	nowTime func() time.Time
}

func NewDashboard(view authsession.View, actions authsession.Actions, title string, nowTime func() time.Time) *Dashboard {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Dashboard{view: view, actions: actions, title: title, nowTime: nowTime}
}

func (d *Dashboard) Name() navigation.Screen { return navigation.Dashboard }
func (d *Dashboard) Title() string           { return d.title }

// Greeting greets by time of day, by name when the ID token carries one.
func (d *Dashboard) Greeting() string {
	greeting := Greeting(d.nowTime())
	s := d.view.Session()
	if s == nil {
		return greeting
	}
	id, err := identity.ParseIdentity(s.IDToken)
	if err != nil || id.DisplayName() == "" {
		return greeting
	}
	return greeting + ", " + id.DisplayName()
}

// Greeting returns the time of day greeting for t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good Morning"
	case h < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

func (d *Dashboard) Menu() []MenuItem {
	return append([]MenuItem(nil), dashboardMenu...)
}

func (d *Dashboard) Logout(ctx context.Context) error {
	return d.actions.Logout(ctx)
}

func (d *Dashboard) Render() []string {
	if d.view.Flags().IsLoggingOut {
		return []string{LoggingOutText}
	}
	if d.view.Session() == nil {
		return []string{LoadingText}
	}
	lines := []string{d.Greeting()}
	for _, item := range dashboardMenu {
		lines = append(lines, "["+item.Command+"] "+item.Label)
	}
	if d.view.Flags().IsLogoutError {
		lines = append(lines, "Log out failed, please try again")
	}
	return lines
}
