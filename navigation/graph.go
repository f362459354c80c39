package navigation

// Screen names a screen of the app.
type Screen string

const (
	Welcome     Screen = "Welcome"
	Photos      Screen = "Photos"
	Dashboard   Screen = "Dashboard"
	TakePhoto   Screen = "TakePhoto"
	PhotoDetail Screen = "PhotoDetail"
	Readings    Screen = "Readings"
)

var (
	signedOutScreens = []Screen{Welcome, Photos}
	signedInScreens  = []Screen{Dashboard, TakePhoto, Readings}
)

// SignedIn is what the graph is built from.
type SignedIn interface {
	IsSignedIn() bool
}

// Graph is the set of screens reachable for one sign-in state. It is fixed when built
// and only changes by building a new one.
type Graph struct {
	signedIn bool
	screens  []Screen
}

// Build picks the signed-in or signed-out screen group from the current sign-in state.
func Build(view SignedIn) Graph {
	if view.IsSignedIn() {
		return Graph{signedIn: true, screens: signedInScreens}
	}
	return Graph{signedIn: false, screens: signedOutScreens}
}

func (g Graph) SignedIn() bool {
	return g.signedIn
}

// Initial is the screen the graph opens on.
func (g Graph) Initial() Screen {
	return g.screens[0]
}

// Screens returns the screens in the group, initial first.
func (g Graph) Screens() []Screen {
	return append([]Screen(nil), g.screens...)
}

func (g Graph) Has(s Screen) bool {
	for _, gs := range g.screens {
		if gs == s {
			return true
		}
	}
	return false
}
